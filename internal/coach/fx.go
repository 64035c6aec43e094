package coach

import (
	"github.com/smallbiznis/fincoach/internal/coach/domain"
	"github.com/smallbiznis/fincoach/internal/coach/reader"
	"github.com/smallbiznis/fincoach/internal/coach/service"
	conversationdomain "github.com/smallbiznis/fincoach/internal/conversation/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("coach.service",
	fx.Provide(reader.New),
	fx.Provide(func(svc conversationdomain.Service) domain.Recorder { return svc }),
	fx.Provide(service.New),
)
