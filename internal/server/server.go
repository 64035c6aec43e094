package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/fincoach/internal/auth"
	coachdomain "github.com/smallbiznis/fincoach/internal/coach/domain"
	"github.com/smallbiznis/fincoach/internal/config"
	conversationdomain "github.com/smallbiznis/fincoach/internal/conversation/domain"
	creditdomain "github.com/smallbiznis/fincoach/internal/credit/domain"
	goaldomain "github.com/smallbiznis/fincoach/internal/goal/domain"
	"github.com/smallbiznis/fincoach/internal/observability"
	obsmiddleware "github.com/smallbiznis/fincoach/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fincoach/internal/observability/metrics"
	obstracing "github.com/smallbiznis/fincoach/internal/observability/tracing"
	profiledomain "github.com/smallbiznis/fincoach/internal/profile/domain"
	"github.com/smallbiznis/fincoach/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	verifier        auth.Verifier
	coachSvc        coachdomain.Service
	conversationSvc conversationdomain.Service
	profileSvc      profiledomain.Service
	creditSvc       creditdomain.Service
	goalSvc         goaldomain.Service
	chatLimiter     *ratelimit.ChatTurnLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Verifier        auth.Verifier
	CoachSvc        coachdomain.Service
	ConversationSvc conversationdomain.Service
	ProfileSvc      profiledomain.Service
	CreditSvc       creditdomain.Service
	GoalSvc         goaldomain.Service
	ChatLimiter     *ratelimit.ChatTurnLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		verifier:        p.Verifier,
		coachSvc:        p.CoachSvc,
		conversationSvc: p.ConversationSvc,
		profileSvc:      p.ProfileSvc,
		creditSvc:       p.CreditSvc,
		goalSvc:         p.GoalSvc,
		chatLimiter:     p.ChatLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", CORS())
	api.OPTIONS("/*path", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	authed := api.Group("", s.RequireIdentity())
	{
		authed.POST("/chat", s.ChatTurnRateLimit(), s.Chat)
		authed.GET("/chat/history", s.ChatHistory)

		authed.GET("/profile", s.GetProfile)
		authed.PUT("/profile", s.UpsertProfile)

		authed.GET("/credit", s.GetCredit)
		authed.PUT("/credit", s.UpsertCredit)

		authed.GET("/goals", s.ListGoals)
		authed.POST("/goals", s.CreateGoal)
		authed.GET("/goals/:id", s.GetGoal)
		authed.PATCH("/goals/:id", s.UpdateGoal)
		authed.DELETE("/goals/:id", s.DeleteGoal)
	}
}
