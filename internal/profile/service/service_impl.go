package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/fincoach/internal/clock"
	"github.com/smallbiznis/fincoach/internal/ownercontext"
	"github.com/smallbiznis/fincoach/internal/profile/domain"
	"github.com/smallbiznis/fincoach/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxAge = 150

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("profile.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Profile, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Profile{}, domain.ErrInvalidOwner
	}

	var item *domain.Profile
	err := rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		var err error
		item, err = s.repo.FindByUserID(ctx, tx, userID)
		return err
	})
	if err != nil {
		return domain.Profile{}, err
	}
	if item == nil {
		return domain.Profile{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertProfileRequest) (domain.Profile, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Profile{}, domain.ErrInvalidOwner
	}

	if req.Age != nil && (*req.Age < 0 || *req.Age > maxAge) {
		return domain.Profile{}, domain.ErrInvalidAge
	}

	email := trimOptional(req.Email)
	if email != nil && !strings.Contains(*email, "@") {
		return domain.Profile{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	profile := domain.Profile{
		UserID:    userID,
		FirstName: trimOptional(req.FirstName),
		LastName:  trimOptional(req.LastName),
		Age:       req.Age,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var stored *domain.Profile
	err := rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, &profile); err != nil {
			return err
		}
		var err error
		stored, err = s.repo.FindByUserID(ctx, tx, userID)
		return err
	})
	if err != nil {
		return domain.Profile{}, err
	}
	if stored == nil {
		return profile, nil
	}

	s.log.Debug("profile upserted", zap.String("user_id", userID.String()))
	return *stored, nil
}

// trimOptional maps blank strings to absent.
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
