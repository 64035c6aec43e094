package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, msg *Message) error
	// ListRecent returns the latest limit messages in ascending order.
	ListRecent(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]Message, error)
}
