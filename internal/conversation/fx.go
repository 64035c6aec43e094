package conversation

import (
	"github.com/smallbiznis/fincoach/internal/conversation/repository"
	"github.com/smallbiznis/fincoach/internal/conversation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("conversation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
