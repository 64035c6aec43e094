package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goaldomain "github.com/smallbiznis/fincoach/internal/goal/domain"
)

type createGoalRequest struct {
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	TargetAmount *float64 `json:"target_amount"`
	TargetDate   *string  `json:"target_date"`
	Priority     *string  `json:"priority"`
	Status       *string  `json:"status"`
	Notes        *string  `json:"notes"`
}

type updateGoalRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	TargetAmount *float64 `json:"target_amount"`
	TargetDate   *string  `json:"target_date"`
	Priority     *string  `json:"priority"`
	Status       *string  `json:"status"`
	Notes        *string  `json:"notes"`
}

// goalResponse renders ids as strings and dates as YYYY-MM-DD.
type goalResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	TargetAmount *float64  `json:"target_amount"`
	TargetDate   *string   `json:"target_date"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	Notes        *string   `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newGoalResponse(g goaldomain.Goal) goalResponse {
	resp := goalResponse{
		ID:           g.ID.String(),
		Title:        g.Title,
		Description:  g.Description,
		TargetAmount: g.TargetAmount,
		Priority:     string(g.Priority),
		Status:       string(g.Status),
		Notes:        g.Notes,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
	if date := g.TargetDateString(); date != "" {
		resp.TargetDate = &date
	}
	return resp
}

func (s *Server) CreateGoal(c *gin.Context) {
	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	goal, err := s.goalSvc.Create(c.Request.Context(), goaldomain.CreateGoalRequest{
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		TargetDate:   req.TargetDate,
		Priority:     req.Priority,
		Status:       req.Status,
		Notes:        req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newGoalResponse(goal)})
}

func (s *Server) ListGoals(c *gin.Context) {
	goals, err := s.goalSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, newGoalResponse(g))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) GetGoal(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	goal, err := s.goalSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newGoalResponse(goal)})
}

func (s *Server) UpdateGoal(c *gin.Context) {
	var req updateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	goal, err := s.goalSvc.Update(c.Request.Context(), id, goaldomain.UpdateGoalRequest{
		Title:        req.Title,
		Description:  req.Description,
		TargetAmount: req.TargetAmount,
		TargetDate:   req.TargetDate,
		Priority:     req.Priority,
		Status:       req.Status,
		Notes:        req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newGoalResponse(goal)})
}

func (s *Server) DeleteGoal(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.goalSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
