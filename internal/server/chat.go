package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	coachdomain "github.com/smallbiznis/fincoach/internal/coach/domain"
	conversationdomain "github.com/smallbiznis/fincoach/internal/conversation/domain"
	obstracing "github.com/smallbiznis/fincoach/internal/observability/tracing"
)

const headerTurnID = obstracing.TurnIDHeader

type chatRequest struct {
	Message *string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type chatMessageResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	IsUser    bool      `json:"is_user"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat runs one coaching turn for the authenticated identity.
func (s *Server) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == nil {
		AbortWithError(c, coachdomain.ErrInvalidMessage)
		return
	}

	resp, err := s.coachSvc.Turn(c.Request.Context(), coachdomain.TurnRequest{
		Message: *req.Message,
	})
	if resp.TurnID != "" {
		c.Header(headerTurnID, resp.TurnID)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{Response: resp.Response})
}

func (s *Server) ChatHistory(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, conversationdomain.ErrInvalidLimit)
			return
		}
		limit = parsed
	}

	messages, err := s.conversationSvc.History(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]chatMessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, chatMessageResponse{
			ID:        m.ID.String(),
			Message:   m.Message,
			IsUser:    m.IsUser,
			CreatedAt: m.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
