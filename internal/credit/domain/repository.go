package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// FindByUserID returns nil, nil when no snapshot has been stored.
	FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*Credit, error)
	Upsert(ctx context.Context, db *gorm.DB, credit *Credit) error
}
