package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/fincoach/internal/auth"
	"github.com/smallbiznis/fincoach/internal/clock"
	"github.com/smallbiznis/fincoach/internal/coach"
	"github.com/smallbiznis/fincoach/internal/config"
	"github.com/smallbiznis/fincoach/internal/conversation"
	"github.com/smallbiznis/fincoach/internal/credit"
	"github.com/smallbiznis/fincoach/internal/goal"
	"github.com/smallbiznis/fincoach/internal/migration"
	"github.com/smallbiznis/fincoach/internal/observability"
	"github.com/smallbiznis/fincoach/internal/profile"
	"github.com/smallbiznis/fincoach/internal/providers/completion"
	"github.com/smallbiznis/fincoach/internal/ratelimit"
	"github.com/smallbiznis/fincoach/internal/server"
	"github.com/smallbiznis/fincoach/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		auth.Module,
		profile.Module,
		credit.Module,
		goal.Module,
		conversation.Module,
		completion.Module,
		coach.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
