package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smallbiznis/fincoach/internal/credit/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*domain.Credit, error) {
	var rows []domain.Credit
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, credit *domain.Credit) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"credit_score",
				"total_debt",
				"late_payments",
				"credit_utilization",
				"updated_at",
			}),
		}).
		Create(credit).Error
}
