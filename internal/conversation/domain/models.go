package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// Message is one side of a chat exchange. Messages are append-only.
type Message struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:char(36);not null;index" json:"user_id"`
	Message   string       `gorm:"type:text;not null" json:"message"`
	IsUser    bool         `gorm:"not null" json:"is_user"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Message) TableName() string {
	return "chat_messages"
}
