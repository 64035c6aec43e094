package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/fincoach/internal/goal/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, goal *domain.Goal) error {
	return db.WithContext(ctx).Create(goal).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID uuid.UUID, id snowflake.ID) (*domain.Goal, error) {
	var goals []domain.Goal
	err := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Limit(1).
		Find(&goals).Error
	if err != nil {
		return nil, err
	}
	if len(goals) == 0 {
		return nil, nil
	}
	return &goals[0], nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]domain.Goal, error) {
	var goals []domain.Goal
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&goals).Error
	if err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, goal *domain.Goal) error {
	return db.WithContext(ctx).
		Model(&domain.Goal{}).
		Where("user_id = ? AND id = ?", goal.UserID, goal.ID).
		Updates(map[string]any{
			"title":         goal.Title,
			"description":   goal.Description,
			"target_amount": goal.TargetAmount,
			"target_date":   goal.TargetDate,
			"priority":      goal.Priority,
			"status":        goal.Status,
			"notes":         goal.Notes,
			"updated_at":    goal.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID uuid.UUID, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&domain.Goal{})
	return result.RowsAffected, result.Error
}
