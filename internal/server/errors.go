package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fincoach/internal/auth"
	coachdomain "github.com/smallbiznis/fincoach/internal/coach/domain"
	conversationdomain "github.com/smallbiznis/fincoach/internal/conversation/domain"
	creditdomain "github.com/smallbiznis/fincoach/internal/credit/domain"
	goaldomain "github.com/smallbiznis/fincoach/internal/goal/domain"
	profiledomain "github.com/smallbiznis/fincoach/internal/profile/domain"
	"github.com/smallbiznis/fincoach/pkg/db"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

// errorResponse is the body of every failed /api response. Clients read
// "error"; "errors" only accompanies field validation failures.
type errorResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

// fieldError describes how a domain validation sentinel surfaces to clients.
type fieldError struct {
	field   string
	message string
}

var validationErrors = map[error]fieldError{
	ErrInvalidRequest:                   {"request", "invalid request"},
	coachdomain.ErrInvalidMessage:       {"message", "message is required"},
	coachdomain.ErrMessageTooLong:       {"message", "message is too long"},
	conversationdomain.ErrInvalidLimit:  {"limit", "limit must be between 1 and 500"},
	profiledomain.ErrInvalidAge:         {"age", "age must be between 0 and 150"},
	profiledomain.ErrInvalidEmail:       {"email", "email is invalid"},
	creditdomain.ErrInvalidCreditScore:  {"credit_score", "credit score must be between 300 and 850"},
	creditdomain.ErrInvalidTotalDebt:    {"total_debt", "total debt must not be negative"},
	creditdomain.ErrInvalidLatePayments: {"late_payments", "late payments must not be negative"},
	creditdomain.ErrInvalidUtilization:  {"credit_utilization", "credit utilization must be between 0 and 100"},
	goaldomain.ErrInvalidID:             {"id", "goal id is invalid"},
	goaldomain.ErrInvalidTitle:          {"title", "title is required"},
	goaldomain.ErrInvalidTargetAmount:   {"target_amount", "target amount must not be negative"},
	goaldomain.ErrInvalidTargetDate:     {"target_date", "target date must be YYYY-MM-DD"},
	goaldomain.ErrInvalidPriority:       {"priority", "priority must be one of high, medium, low"},
	goaldomain.ErrInvalidStatus:         {"status", "status must be one of active, completed, paused"},
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		message := "validation error"
		if len(vErr.Errors) == 1 {
			message = vErr.Errors[0].Message
		}
		return http.StatusBadRequest, errorResponse{Error: message, Errors: vErr.Errors}
	}

	if sentinel, fe, ok := lookupValidationError(err); ok {
		return http.StatusBadRequest, errorResponse{
			Error: fe.message,
			Errors: []ValidationError{{
				Field:   fe.field,
				Code:    sentinel.Error(),
				Message: fe.message,
			}},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized"}
	case isNotFoundError(err):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"}
	case errors.Is(err, coachdomain.ErrProvider):
		return http.StatusBadGateway, errorResponse{Error: "failed to generate response"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

// classifyErrorForLog reports a coarse type and a stable code for request
// logs without exposing error text.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if asValidationErrors(err) != nil {
		return "validation_error", "invalid_request"
	}
	if sentinel, _, ok := lookupValidationError(err); ok {
		return "validation_error", sentinel.Error()
	}

	switch {
	case isUnauthorizedError(err):
		return "unauthorized", "unauthorized"
	case isNotFoundError(err):
		return "not_found", "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited", "rate_limited"
	case errors.Is(err, coachdomain.ErrProvider):
		return "upstream_error", "provider_error"
	default:
		return "internal_error", "internal_error"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func lookupValidationError(err error) (error, fieldError, bool) {
	for sentinel, fe := range validationErrors {
		if errors.Is(err, sentinel) {
			return sentinel, fe, true
		}
	}
	return nil, fieldError{}, false
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingOwner),
		errors.Is(err, coachdomain.ErrUnauthenticated),
		errors.Is(err, profiledomain.ErrInvalidOwner),
		errors.Is(err, creditdomain.ErrInvalidOwner),
		errors.Is(err, goaldomain.ErrInvalidOwner),
		errors.Is(err, conversationdomain.ErrInvalidOwner):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, profiledomain.ErrNotFound),
		errors.Is(err, creditdomain.ErrNotFound),
		errors.Is(err, goaldomain.ErrNotFound),
		db.IsNotFound(err):
		return true
	default:
		return false
	}
}
