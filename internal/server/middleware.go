package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fincoach/internal/auth"
	"github.com/smallbiznis/fincoach/internal/observability/logger"
	"github.com/smallbiznis/fincoach/internal/ownercontext"
	"go.uber.org/zap"
)

const (
	contextUserIDKey = "user_id"

	corsAllowHeaders = "authorization, x-client-info, apikey, content-type"
	corsAllowMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
)

// CORS sets permissive headers on every response and answers preflight
// requests with 204.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
		c.Header("Access-Control-Allow-Methods", corsAllowMethods)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequireIdentity verifies the bearer token and binds the caller's identity
// to the request context. Nothing downstream runs without it.
func (s *Server) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if s.verifier == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		userID, err := s.verifier.Verify(raw)
		if err != nil {
			logger.FromContext(c.Request.Context()).Debug("bearer token rejected", zap.Error(err))
			AbortWithError(c, err)
			return
		}

		ctx := ownercontext.WithUserID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, userID.String())
		c.Next()
	}
}
