package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type IncrementRequest struct {
	CallerID       string
	IdempotencyKey string
	MediaKind      string
	Model          string
	Metadata       map[string]any
}

// Summary is the caller-facing view of the free-tier allowance.
type Summary struct {
	CallerID  string `json:"-"`
	Count     int64  `json:"count"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
}

// Ledger gates free-tier generations. Implementations own their own
// concurrency control; callers never lock around it.
type Ledger interface {
	CheckRemaining(ctx context.Context, callerID string) (bool, error)
	Increment(ctx context.Context, req IncrementRequest) error
	Get(ctx context.Context, callerID string) (Summary, error)
}

type Repository interface {
	FindRecord(ctx context.Context, db *gorm.DB, callerID string) (*UsageRecord, error)
	// InsertEvent reports false when the idempotency key was already recorded.
	InsertEvent(ctx context.Context, db *gorm.DB, event *UsageEvent) (bool, error)
	IncrementCount(ctx context.Context, db *gorm.DB, callerID string, at time.Time) error
}

var (
	ErrInvalidCaller         = errors.New("invalid_caller")
	ErrInvalidIdempotencyKey = errors.New("invalid_idempotency_key")
)
