package domain

import (
	"time"

	"github.com/google/uuid"
)

// Credit is the latest credit snapshot reported for a user.
type Credit struct {
	UserID            uuid.UUID `gorm:"type:char(36);primaryKey" json:"user_id"`
	CreditScore       *int      `gorm:"column:credit_score" json:"credit_score"`
	TotalDebt         *float64  `gorm:"column:total_debt" json:"total_debt"`
	LatePayments      *int      `gorm:"column:late_payments" json:"late_payments"`
	CreditUtilization *float64  `gorm:"column:credit_utilization" json:"credit_utilization"`
	CreatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Credit) TableName() string {
	return "credit_data"
}
