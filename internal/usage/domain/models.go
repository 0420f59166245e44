// Package domain contains the free-tier usage ledger models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// UsageRecord is the per-caller count of billable generations. It only grows.
type UsageRecord struct {
	CallerID  string    `gorm:"primaryKey;type:varchar(191)"`
	Count     int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (UsageRecord) TableName() string { return "usage_records" }

// UsageEvent records one charged generation. The unique idempotency key
// makes a retried charge a no-op.
type UsageEvent struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	CallerID       string            `gorm:"type:varchar(191);not null;index"`
	IdempotencyKey string            `gorm:"type:varchar(191);not null;uniqueIndex"`
	MediaKind      string            `gorm:"type:varchar(16);not null"`
	Model          string            `gorm:"type:varchar(255);not null"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"not null"`
}

func (UsageEvent) TableName() string { return "usage_events" }
