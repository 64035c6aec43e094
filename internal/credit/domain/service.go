package domain

import (
	"context"
	"errors"
)

type UpsertCreditRequest struct {
	CreditScore       *int
	TotalDebt         *float64
	LatePayments      *int
	CreditUtilization *float64
}

type Service interface {
	Get(context.Context) (Credit, error)
	Upsert(context.Context, UpsertCreditRequest) (Credit, error)
}

var (
	ErrInvalidOwner        = errors.New("invalid_owner")
	ErrInvalidCreditScore  = errors.New("invalid_credit_score")
	ErrInvalidTotalDebt    = errors.New("invalid_total_debt")
	ErrInvalidLatePayments = errors.New("invalid_late_payments")
	ErrInvalidUtilization  = errors.New("invalid_credit_utilization")
	ErrNotFound            = errors.New("not_found")
)
