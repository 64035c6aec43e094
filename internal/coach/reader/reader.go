// Package reader loads the stored financial state for a chat turn. Storage
// failures never abort a turn; they degrade to an absent value instead.
package reader

import (
	"context"

	"github.com/google/uuid"
	coachdomain "github.com/smallbiznis/fincoach/internal/coach/domain"
	creditdomain "github.com/smallbiznis/fincoach/internal/credit/domain"
	goaldomain "github.com/smallbiznis/fincoach/internal/goal/domain"
	"github.com/smallbiznis/fincoach/internal/observability/logger"
	"github.com/smallbiznis/fincoach/internal/observability/metrics"
	profiledomain "github.com/smallbiznis/fincoach/internal/profile/domain"
	"github.com/smallbiznis/fincoach/pkg/rls"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sourceProfile = "profile"
	sourceCredit  = "credit"
	sourceGoals   = "goals"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Metrics     *metrics.Metrics `optional:"true"`
	ProfileRepo profiledomain.Repository
	CreditRepo  creditdomain.Repository
	GoalRepo    goaldomain.Repository
}

type Reader struct {
	log         *zap.Logger
	metrics     *metrics.Metrics
	profileRepo profiledomain.Repository
	creditRepo  creditdomain.Repository
	goalRepo    goaldomain.Repository
}

func New(p Params) coachdomain.StateReader {
	return &Reader{
		log:         p.Log.Named("coach.reader"),
		metrics:     p.Metrics,
		profileRepo: p.ProfileRepo,
		creditRepo:  p.CreditRepo,
		goalRepo:    p.GoalRepo,
	}
}

func (r *Reader) ReadProfile(ctx context.Context, scope rls.Scope) coachdomain.Result[*profiledomain.Profile] {
	if err := checkScope(scope); err != nil {
		return coachdomain.Fatal[*profiledomain.Profile](err)
	}

	var item *profiledomain.Profile
	err := scope.Run(ctx, func(tx *gorm.DB) error {
		var err error
		item, err = r.profileRepo.FindByUserID(ctx, tx, scope.UserID)
		return err
	})
	if err != nil {
		r.degraded(ctx, sourceProfile, err)
		return coachdomain.Degraded[*profiledomain.Profile](nil, err)
	}
	return coachdomain.OK(item)
}

func (r *Reader) ReadCredit(ctx context.Context, scope rls.Scope) coachdomain.Result[*creditdomain.Credit] {
	if err := checkScope(scope); err != nil {
		return coachdomain.Fatal[*creditdomain.Credit](err)
	}

	var item *creditdomain.Credit
	err := scope.Run(ctx, func(tx *gorm.DB) error {
		var err error
		item, err = r.creditRepo.FindByUserID(ctx, tx, scope.UserID)
		return err
	})
	if err != nil {
		r.degraded(ctx, sourceCredit, err)
		return coachdomain.Degraded[*creditdomain.Credit](nil, err)
	}
	return coachdomain.OK(item)
}

func (r *Reader) ReadGoals(ctx context.Context, scope rls.Scope) coachdomain.Result[[]goaldomain.Goal] {
	if err := checkScope(scope); err != nil {
		return coachdomain.Fatal[[]goaldomain.Goal](err)
	}

	var goals []goaldomain.Goal
	err := scope.Run(ctx, func(tx *gorm.DB) error {
		var err error
		goals, err = r.goalRepo.ListByUser(ctx, tx, scope.UserID)
		return err
	})
	if err != nil {
		r.degraded(ctx, sourceGoals, err)
		return coachdomain.Degraded([]goaldomain.Goal{}, err)
	}
	if goals == nil {
		goals = []goaldomain.Goal{}
	}
	return coachdomain.OK(goals)
}

func (r *Reader) degraded(ctx context.Context, source string, err error) {
	logger.WithContext(ctx, r.log).Warn("state read degraded",
		zap.String("source", source),
		zap.Error(err),
	)
	if r.metrics != nil {
		r.metrics.RecordDegradedRead(ctx, source)
	}
}

// checkScope separates a missing identity, which no read can recover from,
// from storage problems that surface later as degraded reads.
func checkScope(scope rls.Scope) error {
	if scope.UserID == uuid.Nil {
		return rls.ErrMissingOwner
	}
	return nil
}
