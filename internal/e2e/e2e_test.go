package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/smallbiznis/fincoach/internal/auth"
	"github.com/smallbiznis/fincoach/internal/clock"
	"github.com/smallbiznis/fincoach/internal/coach"
	"github.com/smallbiznis/fincoach/internal/config"
	"github.com/smallbiznis/fincoach/internal/conversation"
	"github.com/smallbiznis/fincoach/internal/credit"
	"github.com/smallbiznis/fincoach/internal/goal"
	"github.com/smallbiznis/fincoach/internal/observability"
	obsmetrics "github.com/smallbiznis/fincoach/internal/observability/metrics"
	"github.com/smallbiznis/fincoach/internal/profile"
	"github.com/smallbiznis/fincoach/internal/providers/completion"
	"github.com/smallbiznis/fincoach/internal/server"
	"github.com/smallbiznis/fincoach/internal/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const (
	testSecret = "e2e-secret"
	testAPIKey = "provider-key"
)

type providerCall struct {
	Authorization string
	Body          struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
}

// fakeProvider is an OpenAI-compatible completions endpoint.
type fakeProvider struct {
	mu     sync.Mutex
	status int
	reply  string
	calls  []providerCall
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var call providerCall
	call.Authorization = r.Header.Get("Authorization")
	_ = json.NewDecoder(r.Body).Decode(&call.Body)

	p.mu.Lock()
	p.calls = append(p.calls, call)
	status, reply := p.status, p.reply
	p.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		http.Error(w, `{"error":{"message":"quota exhausted"}}`, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": reply}},
		},
	})
}

func (p *fakeProvider) lastCall(t *testing.T) providerCall {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.calls)
	return p.calls[len(p.calls)-1]
}

type testEnv struct {
	baseURL  string
	db       *gorm.DB
	provider *fakeProvider
	verifier *auth.JWTVerifier
}

func startEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	provider := &fakeProvider{reply: "Put 20% of every paycheck toward the down payment."}
	providerSrv := httptest.NewServer(provider)
	t.Cleanup(providerSrv.Close)

	cfg := config.Config{
		AppName:       "fincoach",
		Environment:   "test",
		AuthJWTSecret: testSecret,
		Completion: config.CompletionConfig{
			APIKey:         testAPIKey,
			BaseURL:        providerSrv.URL,
			Model:          "coach-test",
			TimeoutSeconds: 5,
		},
	}
	dbConn := storetest.Open(t)
	clk := clock.NewFakeClock(time.Now())

	var (
		engine   *gin.Engine
		srv      *server.Server
		verifier *auth.JWTVerifier
	)
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, dbConn, observability.Config{}),
		fx.Provide(func() *zap.Logger { return zaptest.NewLogger(t) }),
		fx.Provide(func() clock.Clock { return clk }),
		fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(1) }),
		fx.Provide(config.NewCompletionSettingsHolder),
		fx.Provide(obsmetrics.NewHTTPMetrics),
		auth.Module,
		profile.Module,
		credit.Module,
		goal.Module,
		conversation.Module,
		completion.Module,
		coach.Module,
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Populate(&engine, &srv, &verifier),
	)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	t.Cleanup(func() { _ = app.Stop(context.Background()) })

	httpSrv := httptest.NewServer(engine)
	t.Cleanup(httpSrv.Close)

	return &testEnv{
		baseURL:  httpSrv.URL,
		db:       dbConn,
		provider: provider,
		verifier: verifier,
	}
}

func (e *testEnv) tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	raw, err := e.verifier.Sign(userID, time.Hour)
	require.NoError(t, err)
	return raw
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.baseURL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}
	return resp.StatusCode, decoded
}

func countMessages(t *testing.T, dbConn *gorm.DB, userID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, dbConn.Table("chat_messages").Where("user_id = ?", userID.String()).Count(&n).Error)
	return n
}

func TestE2E_HealthCheck(t *testing.T) {
	env := startEnv(t)

	resp, err := http.Get(env.baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestE2E_ChatTurnUsesStoredState(t *testing.T) {
	env := startEnv(t)
	userID := uuid.New()
	token := env.tokenFor(t, userID)

	status, _ := env.doJSON(t, http.MethodPut, "/api/profile", token, map[string]any{
		"first_name": "Ana",
		"last_name":  "Silva",
		"age":        29,
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.doJSON(t, http.MethodPut, "/api/credit", token, map[string]any{
		"credit_score":       640,
		"total_debt":         12000,
		"credit_utilization": 45,
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.doJSON(t, http.MethodPost, "/api/goals", token, map[string]any{
		"title":         "Buy a house",
		"target_amount": 60000,
		"target_date":   "2028-01-01",
		"priority":      "high",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := env.doJSON(t, http.MethodPost, "/api/chat", token, map[string]any{
		"message": "How should I save for a down payment?",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Put 20% of every paycheck toward the down payment.", body["response"])

	call := env.provider.lastCall(t)
	assert.Equal(t, "Bearer "+testAPIKey, call.Authorization)
	assert.Equal(t, "coach-test", call.Body.Model)
	assert.InDelta(t, completion.Temperature, call.Body.Temperature, 1e-9)
	assert.Equal(t, completion.MaxTokens, call.Body.MaxTokens)
	require.Len(t, call.Body.Messages, 2)
	assert.Equal(t, "system", call.Body.Messages[0].Role)
	assert.Contains(t, call.Body.Messages[0].Content, "- Name: Ana Silva")
	assert.Contains(t, call.Body.Messages[0].Content, "- Credit Score: 640")
	assert.Contains(t, call.Body.Messages[0].Content, "- Late Payments: 0")
	assert.Contains(t, call.Body.Messages[0].Content, "1. Buy a house")
	assert.Equal(t, "user", call.Body.Messages[1].Role)
	assert.Equal(t, "How should I save for a down payment?", call.Body.Messages[1].Content)

	status, body = env.doJSON(t, http.MethodGet, "/api/chat/history", token, nil)
	require.Equal(t, http.StatusOK, status)
	history := body["data"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, true, history[0].(map[string]any)["is_user"])
	assert.Equal(t, "How should I save for a down payment?", history[0].(map[string]any)["message"])
	assert.Equal(t, false, history[1].(map[string]any)["is_user"])
}

func TestE2E_ChatTurnWithoutStoredState(t *testing.T) {
	env := startEnv(t)
	token := env.tokenFor(t, uuid.New())

	status, _ := env.doJSON(t, http.MethodPost, "/api/chat", token, map[string]any{"message": "Where do I start?"})
	require.Equal(t, http.StatusOK, status)

	instruction := env.provider.lastCall(t).Body.Messages[0].Content
	assert.Contains(t, instruction, "- Name: Unknown")
	assert.NotContains(t, instruction, "Credit Information:")
	assert.NotContains(t, instruction, "Financial Goals:")
}

func TestE2E_ProviderFailureRecordsNothing(t *testing.T) {
	env := startEnv(t)
	userID := uuid.New()
	token := env.tokenFor(t, userID)
	env.provider.status = http.StatusInternalServerError

	status, body := env.doJSON(t, http.MethodPost, "/api/chat", token, map[string]any{"message": "Hello"})

	require.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "failed to generate response", body["error"])
	assert.Zero(t, countMessages(t, env.db, userID))
}

func TestE2E_RejectsMissingToken(t *testing.T) {
	env := startEnv(t)

	status, body := env.doJSON(t, http.MethodPost, "/api/chat", "", map[string]any{"message": "Hello"})

	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])
	env.provider.mu.Lock()
	defer env.provider.mu.Unlock()
	assert.Empty(t, env.provider.calls)
}

func TestE2E_GoalsAreScopedToOwner(t *testing.T) {
	env := startEnv(t)
	owner := env.tokenFor(t, uuid.New())
	other := env.tokenFor(t, uuid.New())

	status, body := env.doJSON(t, http.MethodPost, "/api/goals", owner, map[string]any{"title": "Emergency fund"})
	require.Equal(t, http.StatusCreated, status)
	goalID := body["data"].(map[string]any)["id"].(string)

	status, _ = env.doJSON(t, http.MethodGet, "/api/goals/"+goalID, other, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.doJSON(t, http.MethodGet, "/api/goals", other, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["data"])

	status, _ = env.doJSON(t, http.MethodDelete, "/api/goals/"+goalID, other, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.doJSON(t, http.MethodDelete, "/api/goals/"+goalID, owner, nil)
	assert.Equal(t, http.StatusNoContent, status)
}
