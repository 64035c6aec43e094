package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/smallbiznis/fincoach/internal/profile/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*domain.Profile, error) {
	var profiles []domain.Profile
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, profile *domain.Profile) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "age", "email", "updated_at"}),
		}).
		Create(profile).Error
}
