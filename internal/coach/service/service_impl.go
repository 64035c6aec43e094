package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/smallbiznis/fincoach/internal/clock"
	"github.com/smallbiznis/fincoach/internal/coach/domain"
	"github.com/smallbiznis/fincoach/internal/coach/prompt"
	creditdomain "github.com/smallbiznis/fincoach/internal/credit/domain"
	goaldomain "github.com/smallbiznis/fincoach/internal/goal/domain"
	"github.com/smallbiznis/fincoach/internal/observability/logger"
	"github.com/smallbiznis/fincoach/internal/observability/metrics"
	"github.com/smallbiznis/fincoach/internal/observability/tracing"
	"github.com/smallbiznis/fincoach/internal/ownercontext"
	profiledomain "github.com/smallbiznis/fincoach/internal/profile/domain"
	"github.com/smallbiznis/fincoach/pkg/rls"
	"github.com/smallbiznis/fincoach/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	outcomeOK       = "ok"
	outcomeDegraded = "degraded"
	outcomeFailed   = "failed"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Reader    domain.StateReader
	Completer domain.Completer
	Recorder  domain.Recorder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	reader    domain.StateReader
	completer domain.Completer
	recorder  domain.Recorder
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("coach.service"),
		clock:     p.Clock,
		reader:    p.Reader,
		completer: p.Completer,
		recorder:  p.Recorder,
		metrics:   p.Metrics,
		tracer:    otel.Tracer("fincoach/coach"),
	}
}

type financialState struct {
	profile  domain.Result[*profiledomain.Profile]
	credit   domain.Result[*creditdomain.Credit]
	goals    domain.Result[[]goaldomain.Goal]
	degraded bool
}

// Turn answers one user message. The reply is only recorded after the
// provider succeeds, and recording problems never fail the turn.
func (s *Service) Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResponse, error) {
	ctx, turnID := correlation.EnsureTurnID(ctx, s.clock.Now())
	ctx, span := s.tracer.Start(ctx, "coach.Turn")
	defer span.End()
	span.SetAttributes(correlation.AttributeKey.String(turnID))

	log := logger.WithContext(ctx, s.log)
	fail := func(state domain.State, err error) (domain.TurnResponse, error) {
		log.Debug("turn failed", zap.String("state", string(state)), zap.Error(tracing.SafeError(err)))
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, string(state))
		s.metrics.RecordChatTurn(ctx, outcomeFailed)
		return domain.TurnResponse{TurnID: turnID}, err
	}

	s.transition(log, domain.StateAuthenticating)
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return fail(domain.StateAuthenticating, domain.ErrUnauthenticated)
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return fail(domain.StateAuthenticating, domain.ErrInvalidMessage)
	}
	if utf8.RuneCountInString(message) > domain.MaxMessageRunes {
		return fail(domain.StateAuthenticating, domain.ErrMessageTooLong)
	}
	scope := rls.NewScope(s.db, userID)

	s.transition(log, domain.StateReadingState)
	state := s.readState(ctx, scope)
	if state.profile.IsFatal() || state.credit.IsFatal() || state.goals.IsFatal() {
		return fail(domain.StateReadingState, domain.ErrUnauthenticated)
	}
	span.SetAttributes(attribute.Bool("coach.degraded", state.degraded))

	s.transition(log, domain.StateSynthesizing)
	instruction := prompt.Synthesize(state.profile.Value, state.credit.Value, state.goals.Value)

	s.transition(log, domain.StateInvoking)
	reply, err := s.completer.Complete(ctx, instruction, message)
	if err != nil {
		log.Warn("completion failed", zap.Error(tracing.SafeError(err)))
		return fail(domain.StateInvoking, fmt.Errorf("%w: %w", domain.ErrProvider, err))
	}

	// The exchange is kept even if the caller has gone away by now.
	s.transition(log, domain.StateRecording)
	recordCtx := context.WithoutCancel(ctx)
	s.record(recordCtx, log, scope, message, true)
	s.record(recordCtx, log, scope, reply, false)

	s.transition(log, domain.StateResponding)
	outcome := outcomeOK
	if state.degraded {
		outcome = outcomeDegraded
	}
	s.metrics.RecordChatTurn(ctx, outcome)

	return domain.TurnResponse{TurnID: turnID, Response: reply}, nil
}

// readState issues the three reads concurrently. Each read owns its own
// transaction, so they share nothing but the scope value.
func (s *Service) readState(ctx context.Context, scope rls.Scope) financialState {
	var (
		state financialState
		wg    sync.WaitGroup
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		state.profile = s.reader.ReadProfile(ctx, scope)
	}()
	go func() {
		defer wg.Done()
		state.credit = s.reader.ReadCredit(ctx, scope)
	}()
	go func() {
		defer wg.Done()
		state.goals = s.reader.ReadGoals(ctx, scope)
	}()
	wg.Wait()

	state.degraded = state.profile.Outcome == domain.OutcomeDegraded ||
		state.credit.Outcome == domain.OutcomeDegraded ||
		state.goals.Outcome == domain.OutcomeDegraded
	return state
}

func (s *Service) record(ctx context.Context, log *zap.Logger, scope rls.Scope, text string, isUser bool) {
	direction := "assistant"
	if isUser {
		direction = "user"
	}
	if err := s.recorder.Append(ctx, scope, text, isUser); err != nil {
		log.Warn("recording failed", zap.String("direction", direction), zap.Error(err))
		s.metrics.RecordRecordingFailure(ctx, direction)
	}
}

func (s *Service) transition(log *zap.Logger, state domain.State) {
	log.Debug("turn state", zap.String("state", string(state)))
}
