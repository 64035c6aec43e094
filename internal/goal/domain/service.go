package domain

import (
	"context"
	"errors"
)

type CreateGoalRequest struct {
	Title        string
	Description  *string
	TargetAmount *float64
	TargetDate   *string
	Priority     *string
	Status       *string
	Notes        *string
}

// UpdateGoalRequest applies only the fields that are set.
type UpdateGoalRequest struct {
	Title        *string
	Description  *string
	TargetAmount *float64
	TargetDate   *string
	Priority     *string
	Status       *string
	Notes        *string
}

type Service interface {
	Create(context.Context, CreateGoalRequest) (Goal, error)
	List(context.Context) ([]Goal, error)
	GetByID(context.Context, string) (Goal, error)
	Update(context.Context, string, UpdateGoalRequest) (Goal, error)
	Delete(context.Context, string) error
}

var (
	ErrInvalidOwner        = errors.New("invalid_owner")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidTargetAmount = errors.New("invalid_target_amount")
	ErrInvalidTargetDate   = errors.New("invalid_target_date")
	ErrInvalidPriority     = errors.New("invalid_priority")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrNotFound            = errors.New("not_found")
)
