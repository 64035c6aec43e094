package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// FindByUserID returns nil, nil when the user has no profile yet.
	FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*Profile, error)
	Upsert(ctx context.Context, db *gorm.DB, profile *Profile) error
}
