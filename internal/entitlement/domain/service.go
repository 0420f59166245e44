package domain

import (
	"context"
	"errors"
	"time"
)

type UpsertRequest struct {
	CallerID         string     `json:"caller_id"`
	PlanCode         string     `json:"plan_code"`
	Status           Status     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

// Checker resolves paid status. Results may be cached; Invalidate drops the
// cached answer for one caller.
type Checker interface {
	IsActive(ctx context.Context, callerID string) (bool, error)
	Invalidate(callerID string)
	Upsert(ctx context.Context, req UpsertRequest) (*Entitlement, error)
}

var (
	ErrInvalidCaller = errors.New("invalid_caller")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrInvalidPlan   = errors.New("invalid_plan")
)
