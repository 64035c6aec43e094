package server

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fincoach/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fincoach/internal/observability/metrics"
	"github.com/smallbiznis/fincoach/internal/ownercontext"
	"go.uber.org/zap"
)

const (
	rateLimitReasonIdentityRate = "identity-rate"
	rateLimitReasonTurnInFlight = "turn-in-flight"
)

// ChatTurnRateLimit throttles chat turns per identity and keeps at most one
// turn in flight per identity. Limiter failures let the request through.
func (s *Server) ChatTurnRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.chatLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		userID, ok := ownercontext.UserIDFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		log := logger.FromContext(ctx)

		res, err := s.chatLimiter.Allow(ctx, userID)
		if err != nil {
			log.Warn("chat rate limit check failed, allowing turn", zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			denyChatTurn(c, endpoint, rateLimitReasonIdentityRate, res.RetryAfter, s.obsMetrics)
			return
		}

		lease, acquired, err := s.chatLimiter.Begin(ctx, userID)
		if err != nil {
			log.Warn("chat turn lock failed, allowing turn", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			denyChatTurn(c, endpoint, rateLimitReasonTurnInFlight, time.Second, s.obsMetrics)
			return
		}
		defer func() {
			if err := s.chatLimiter.End(context.WithoutCancel(ctx), lease); err != nil {
				log.Warn("chat turn unlock failed", zap.Error(err))
			}
		}()

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denyChatTurn(c *gin.Context, endpoint, reason string, retryAfter time.Duration, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("chat turn rate limited",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", retryAfterSeconds(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int64(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
