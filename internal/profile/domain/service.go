package domain

import (
	"context"
	"errors"
)

type UpsertProfileRequest struct {
	FirstName *string
	LastName  *string
	Age       *int
	Email     *string
}

type Service interface {
	Get(context.Context) (Profile, error)
	Upsert(context.Context, UpsertProfileRequest) (Profile, error)
}

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidAge   = errors.New("invalid_age")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrNotFound     = errors.New("not_found")
)
