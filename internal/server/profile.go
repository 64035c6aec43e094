package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	profiledomain "github.com/smallbiznis/fincoach/internal/profile/domain"
)

type upsertProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Age       *int    `json:"age"`
	Email     *string `json:"email"`
}

func (s *Server) GetProfile(c *gin.Context) {
	profile, err := s.profileSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}

func (s *Server) UpsertProfile(c *gin.Context) {
	var req upsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	profile, err := s.profileSvc.Upsert(c.Request.Context(), profiledomain.UpsertProfileRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
		Email:     req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": profile})
}
