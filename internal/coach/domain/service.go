package domain

import (
	"context"
	"errors"

	creditdomain "github.com/smallbiznis/fincoach/internal/credit/domain"
	goaldomain "github.com/smallbiznis/fincoach/internal/goal/domain"
	profiledomain "github.com/smallbiznis/fincoach/internal/profile/domain"
	"github.com/smallbiznis/fincoach/pkg/rls"
)

// MaxMessageRunes bounds a single user utterance.
const MaxMessageRunes = 4000

// State names the steps a chat turn moves through.
type State string

const (
	StateAuthenticating State = "authenticating"
	StateReadingState   State = "reading_state"
	StateSynthesizing   State = "synthesizing"
	StateInvoking       State = "invoking"
	StateRecording      State = "recording"
	StateResponding     State = "responding"
	StateFailed         State = "failed"
)

// StateReader loads the financial state that personalizes a turn. A nil
// pointer value means the record does not exist.
type StateReader interface {
	ReadProfile(ctx context.Context, scope rls.Scope) Result[*profiledomain.Profile]
	ReadCredit(ctx context.Context, scope rls.Scope) Result[*creditdomain.Credit]
	ReadGoals(ctx context.Context, scope rls.Scope) Result[[]goaldomain.Goal]
}

type Completer interface {
	Complete(ctx context.Context, instruction, utterance string) (string, error)
}

type Recorder interface {
	Append(ctx context.Context, scope rls.Scope, text string, isUser bool) error
}

type TurnRequest struct {
	Message string
}

type TurnResponse struct {
	TurnID   string
	Response string
}

type Service interface {
	Turn(context.Context, TurnRequest) (TurnResponse, error)
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidMessage  = errors.New("invalid_message")
	ErrMessageTooLong  = errors.New("message_too_long")
	ErrProvider        = errors.New("provider_error")
)
