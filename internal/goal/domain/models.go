package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusPaused    Status = "paused"
)

// ParsePriority accepts only the exact lowercase values of the closed set.
func ParsePriority(value string) (Priority, error) {
	switch p := Priority(value); p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	default:
		return "", ErrInvalidPriority
	}
}

// ParseStatus accepts only the exact lowercase values of the closed set.
func ParseStatus(value string) (Status, error) {
	switch st := Status(value); st {
	case StatusActive, StatusCompleted, StatusPaused:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

type Goal struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID       uuid.UUID       `gorm:"type:char(36);not null;index" json:"user_id"`
	Title        string          `gorm:"type:text;not null" json:"title"`
	Description  *string         `gorm:"type:text" json:"description"`
	TargetAmount *float64        `gorm:"column:target_amount" json:"target_amount"`
	TargetDate   *datatypes.Date `gorm:"column:target_date" json:"target_date"`
	Priority     Priority        `gorm:"type:text;not null;default:'medium'" json:"priority"`
	Status       Status          `gorm:"type:text;not null;default:'active'" json:"status"`
	Notes        *string         `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Goal) TableName() string {
	return "goals"
}

// TargetDateString renders the target date as YYYY-MM-DD, or "" when unset.
func (g Goal) TargetDateString() string {
	if g.TargetDate == nil {
		return ""
	}
	return time.Time(*g.TargetDate).Format(DateLayout)
}

const DateLayout = "2006-01-02"
