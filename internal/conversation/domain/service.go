package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/fincoach/pkg/rls"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
)

type Service interface {
	// Append stores a single message inside the given scope.
	Append(ctx context.Context, scope rls.Scope, text string, isUser bool) error
	History(ctx context.Context, limit int) ([]Message, error)
}

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrEmptyMessage = errors.New("empty_message")
	ErrInvalidLimit = errors.New("invalid_limit")
)
