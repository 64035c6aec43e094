package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, goal *Goal) error
	// FindByID returns nil, nil when the goal does not exist for the owner.
	FindByID(ctx context.Context, db *gorm.DB, userID uuid.UUID, id snowflake.ID) (*Goal, error)
	// ListByUser returns goals newest first.
	ListByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]Goal, error)
	Update(ctx context.Context, db *gorm.DB, goal *Goal) error
	Delete(ctx context.Context, db *gorm.DB, userID uuid.UUID, id snowflake.ID) (int64, error)
}
