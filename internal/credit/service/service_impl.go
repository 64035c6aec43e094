package service

import (
	"context"

	"github.com/smallbiznis/fincoach/internal/clock"
	"github.com/smallbiznis/fincoach/internal/credit/domain"
	"github.com/smallbiznis/fincoach/internal/ownercontext"
	"github.com/smallbiznis/fincoach/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	minCreditScore = 300
	maxCreditScore = 850
)

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
		log:   p.Log.Named("credit.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context) (domain.Credit, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Credit{}, domain.ErrInvalidOwner
	}

	var item *domain.Credit
	err := rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		var err error
		item, err = s.repo.FindByUserID(ctx, tx, userID)
		return err
	})
	if err != nil {
		return domain.Credit{}, err
	}
	if item == nil {
		return domain.Credit{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertCreditRequest) (domain.Credit, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return domain.Credit{}, domain.ErrInvalidOwner
	}
	if err := validate(req); err != nil {
		return domain.Credit{}, err
	}

	latePayments := req.LatePayments
	if latePayments == nil {
		zero := 0
		latePayments = &zero
	}

	now := s.clock.Now()
	credit := domain.Credit{
		UserID:            userID,
		CreditScore:       req.CreditScore,
		TotalDebt:         req.TotalDebt,
		LatePayments:      latePayments,
		CreditUtilization: req.CreditUtilization,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var stored *domain.Credit
	err := rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Upsert(ctx, tx, &credit); err != nil {
			return err
		}
		var err error
		stored, err = s.repo.FindByUserID(ctx, tx, userID)
		return err
	})
	if err != nil {
		return domain.Credit{}, err
	}
	if stored == nil {
		return credit, nil
	}

	s.log.Debug("credit snapshot upserted", zap.String("user_id", userID.String()))
	return *stored, nil
}

func validate(req domain.UpsertCreditRequest) error {
	if req.CreditScore != nil && (*req.CreditScore < minCreditScore || *req.CreditScore > maxCreditScore) {
		return domain.ErrInvalidCreditScore
	}
	if req.TotalDebt != nil && *req.TotalDebt < 0 {
		return domain.ErrInvalidTotalDebt
	}
	if req.LatePayments != nil && *req.LatePayments < 0 {
		return domain.ErrInvalidLatePayments
	}
	if req.CreditUtilization != nil && (*req.CreditUtilization < 0 || *req.CreditUtilization > 100) {
		return domain.ErrInvalidUtilization
	}
	return nil
}
