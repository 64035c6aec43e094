package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the identity and demographic snapshot of a user. Every field
// except UserID may be absent until onboarding is complete.
type Profile struct {
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey" json:"user_id"`
	FirstName *string   `gorm:"column:first_name" json:"first_name"`
	LastName  *string   `gorm:"column:last_name" json:"last_name"`
	Age       *int      `gorm:"column:age" json:"age"`
	Email     *string   `gorm:"column:email" json:"email"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
