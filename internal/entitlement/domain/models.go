package domain

import "time"

type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// Entitlement is the caller's paid-plan state as reported by billing.
type Entitlement struct {
	CallerID         string     `gorm:"primaryKey;type:varchar(191)" json:"caller_id"`
	PlanCode         string     `gorm:"type:varchar(64);not null" json:"plan_code"`
	Status           Status     `gorm:"type:varchar(32);not null" json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

func (Entitlement) TableName() string { return "entitlements" }

// ActiveAt reports whether the entitlement bypasses the free tier at now.
func (e Entitlement) ActiveAt(now time.Time) bool {
	switch e.Status {
	case StatusActive, StatusTrialing:
	default:
		return false
	}
	if e.CurrentPeriodEnd == nil {
		return true
	}
	return e.CurrentPeriodEnd.After(now)
}
