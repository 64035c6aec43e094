package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/fincoach/internal/clock"
	"github.com/smallbiznis/fincoach/internal/conversation/domain"
	"github.com/smallbiznis/fincoach/internal/ownercontext"
	"github.com/smallbiznis/fincoach/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("conversation.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Append(ctx context.Context, scope rls.Scope, text string, isUser bool) error {
	if scope.UserID == uuid.Nil {
		return domain.ErrInvalidOwner
	}
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyMessage
	}

	msg := domain.Message{
		ID:        s.genID.Generate(),
		UserID:    scope.UserID,
		Message:   text,
		IsUser:    isUser,
		CreatedAt: s.clock.Now(),
	}
	return scope.Run(ctx, func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &msg)
	})
}

func (s *Service) History(ctx context.Context, limit int) ([]domain.Message, error) {
	userID, ok := ownercontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOwner
	}
	switch {
	case limit == 0:
		limit = domain.DefaultHistoryLimit
	case limit < 0 || limit > domain.MaxHistoryLimit:
		return nil, domain.ErrInvalidLimit
	}

	var messages []domain.Message
	err := rls.NewScope(s.db, userID).Run(ctx, func(tx *gorm.DB) error {
		var err error
		messages, err = s.repo.ListRecent(ctx, tx, userID, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}
