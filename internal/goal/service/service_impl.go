package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/fincoach/internal/clock"
	"github.com/smallbiznis/fincoach/internal/goal/domain"
	"github.com/smallbiznis/fincoach/internal/ownercontext"
	"github.com/smallbiznis/fincoach/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("goal.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateGoalRequest) (domain.Goal, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Goal{}, domain.ErrInvalidOwner
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Goal{}, domain.ErrInvalidTitle
	}
	if err := validateAmount(req.TargetAmount); err != nil {
		return domain.Goal{}, err
	}
	targetDate, err := parseTargetDate(req.TargetDate)
	if err != nil {
		return domain.Goal{}, err
	}
	priority, status := domain.PriorityMedium, domain.StatusActive
	if req.Priority != nil {
		if priority, err = domain.ParsePriority(*req.Priority); err != nil {
			return domain.Goal{}, err
		}
	}
	if req.Status != nil {
		if status, err = domain.ParseStatus(*req.Status); err != nil {
			return domain.Goal{}, err
		}
	}

	now := s.clock.Now()
	goal := domain.Goal{
		ID:           s.genID.Generate(),
		UserID:       userID,
		Title:        title,
		Description:  trimOptional(req.Description),
		TargetAmount: req.TargetAmount,
		TargetDate:   targetDate,
		Priority:     priority,
		Status:       status,
		Notes:        trimOptional(req.Notes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &goal)
	})
	if err != nil {
		return domain.Goal{}, err
	}

	s.log.Debug("goal created",
		zap.String("user_id", userID.String()),
		zap.String("goal_id", goal.ID.String()),
	)
	return goal, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Goal, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOwner
	}

	var goals []domain.Goal
	err := rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		var err error
		goals, err = s.repo.ListByUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []domain.Goal{}
	}
	return goals, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Goal, error) {
	userID, goalID, err := s.resolve(ctx, id)
	if err != nil {
		return domain.Goal{}, err
	}

	var item *domain.Goal
	err = rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		var err error
		item, err = s.repo.FindByID(ctx, tx, userID, goalID)
		return err
	})
	if err != nil {
		return domain.Goal{}, err
	}
	if item == nil {
		return domain.Goal{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateGoalRequest) (domain.Goal, error) {
	userID, goalID, err := s.resolve(ctx, id)
	if err != nil {
		return domain.Goal{}, err
	}

	var updated domain.Goal
	err = rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, userID, goalID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
		if err := applyUpdate(item, req); err != nil {
			return err
		}
		item.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		updated = *item
		return nil
	})
	if err != nil {
		return domain.Goal{}, err
	}

	s.log.Debug("goal updated",
		zap.String("user_id", userID.String()),
		zap.String("goal_id", goalID.String()),
	)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	userID, goalID, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}

	var affected int64
	err = rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		var err error
		affected, err = s.repo.Delete(ctx, tx, userID, goalID)
		return err
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.log.Debug("goal deleted",
		zap.String("user_id", userID.String()),
		zap.String("goal_id", goalID.String()),
	)
	return nil
}

func (s *Service) resolve(ctx context.Context, id string) (uuid.UUID, snowflake.ID, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, 0, domain.ErrInvalidOwner
	}
	goalID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || goalID <= 0 {
		return uuid.Nil, 0, domain.ErrInvalidID
	}
	return userID, goalID, nil
}

func applyUpdate(item *domain.Goal, req domain.UpdateGoalRequest) error {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.ErrInvalidTitle
		}
		item.Title = title
	}
	if req.Description != nil {
		item.Description = trimOptional(req.Description)
	}
	if req.TargetAmount != nil {
		if err := validateAmount(req.TargetAmount); err != nil {
			return err
		}
		item.TargetAmount = req.TargetAmount
	}
	if req.TargetDate != nil {
		date, err := parseTargetDate(req.TargetDate)
		if err != nil {
			return err
		}
		item.TargetDate = date
	}
	if req.Priority != nil {
		priority, err := domain.ParsePriority(*req.Priority)
		if err != nil {
			return err
		}
		item.Priority = priority
	}
	if req.Status != nil {
		status, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return err
		}
		item.Status = status
	}
	if req.Notes != nil {
		item.Notes = trimOptional(req.Notes)
	}
	return nil
}

func validateAmount(amount *float64) error {
	if amount != nil && *amount < 0 {
		return domain.ErrInvalidTargetAmount
	}
	return nil
}

// parseTargetDate accepts YYYY-MM-DD; a blank value clears the date.
func parseTargetDate(value *string) (*datatypes.Date, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse(domain.DateLayout, trimmed)
	if err != nil {
		return nil, domain.ErrInvalidTargetDate
	}
	date := datatypes.Date(parsed)
	return &date, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
