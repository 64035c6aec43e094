package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/smallbiznis/fincoach/internal/credit/domain"
)

type upsertCreditRequest struct {
	CreditScore       *int     `json:"credit_score"`
	TotalDebt         *float64 `json:"total_debt"`
	LatePayments      *int     `json:"late_payments"`
	CreditUtilization *float64 `json:"credit_utilization"`
}

func (s *Server) GetCredit(c *gin.Context) {
	credit, err := s.creditSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": credit})
}

func (s *Server) UpsertCredit(c *gin.Context) {
	var req upsertCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	credit, err := s.creditSvc.Upsert(c.Request.Context(), creditdomain.UpsertCreditRequest{
		CreditScore:       req.CreditScore,
		TotalDebt:         req.TotalDebt,
		LatePayments:      req.LatePayments,
		CreditUtilization: req.CreditUtilization,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": credit})
}
