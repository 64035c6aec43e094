// Package completion calls an OpenAI-compatible chat completions endpoint.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/fincoach/internal/config"
	"github.com/smallbiznis/fincoach/internal/observability/metrics"
	"github.com/smallbiznis/fincoach/internal/observability/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// Temperature and MaxTokens are fixed for every request.
	Temperature = 0.7
	MaxTokens   = 1000

	maxErrorBody = 4096
)

var ErrMissingAPIKey = errors.New("completion_api_key_missing")

// ProviderError reports a failed or malformed provider response. Body is kept
// for logs only and is not part of Error().
type ProviderError struct {
	StatusCode int
	Body       string
	Reason     string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("completion provider: %s (status %d)", e.Reason, e.StatusCode)
	}
	return "completion provider: " + e.Reason
}

func (e *ProviderError) SafeMessage() string {
	return e.Reason
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type Params struct {
	fx.In

	Config   config.Config
	Settings *config.CompletionSettingsHolder
	Log      *zap.Logger
	Metrics  *metrics.Metrics `optional:"true"`
}

type Client struct {
	apiKey   string
	settings *config.CompletionSettingsHolder
	http     *http.Client
	log      *zap.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

func New(p Params) *Client {
	return &Client{
		apiKey:   strings.TrimSpace(p.Config.Completion.APIKey),
		settings: p.Settings,
		http:     &http.Client{},
		log:      p.Log.Named("completion.client"),
		metrics:  p.Metrics,
		tracer:   otel.Tracer("fincoach/completion"),
	}
}

// Complete sends the instruction as the system message and the utterance as
// the only user message. It makes exactly one attempt.
func (c *Client) Complete(ctx context.Context, instruction, utterance string) (reply string, err error) {
	settings := c.settings.Get()

	ctx, span := c.tracer.Start(ctx, "completion.Complete", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(tracing.SafeAttributes(
		attribute.String("llm.model", settings.Model),
		attribute.Int("llm.max_tokens", MaxTokens),
	)...)

	start := time.Now()
	status := "ok"
	defer func() {
		if err != nil {
			status = failureStatus(err)
			span.RecordError(tracing.SafeError(err))
			span.SetStatus(codes.Error, status)
		}
		c.metrics.RecordCompletion(ctx, settings.Model, status, time.Since(start))
		span.End()
	}()

	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	payload, err := json.Marshal(chatRequest{
		Model: settings.Model,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: utterance},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	timeout := time.Duration(settings.TimeoutSeconds) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	endpoint := strings.TrimRight(settings.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling completion provider: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		perr := &ProviderError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body)),
			Reason:     "unexpected status",
		}
		c.log.Warn("completion provider returned error status",
			zap.Int("status_code", perr.StatusCode),
			zap.String("body", perr.Body),
		)
		return "", perr
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Body: truncate(string(body)), Reason: "undecodable response"}
	}
	if len(decoded.Choices) == 0 ||
		decoded.Choices[0].Message == nil ||
		decoded.Choices[0].Message.Content == nil ||
		strings.TrimSpace(*decoded.Choices[0].Message.Content) == "" {
		return "", &ProviderError{StatusCode: resp.StatusCode, Body: truncate(string(body)), Reason: "missing reply content"}
	}

	return *decoded.Choices[0].Message.Content, nil
}

func failureStatus(err error) string {
	var perr *ProviderError
	switch {
	case errors.As(err, &perr) && perr.StatusCode >= http.StatusMultipleChoices:
		return strconv.Itoa(perr.StatusCode)
	case errors.As(err, &perr):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrMissingAPIKey):
		return "unconfigured"
	default:
		return "transport"
	}
}

func truncate(body string) string {
	if len(body) <= maxErrorBody {
		return body
	}
	return body[:maxErrorBody]
}
