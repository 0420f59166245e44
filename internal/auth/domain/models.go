package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
)

type AuthType string

const (
	AuthTypeSession AuthType = "session"
	AuthTypeAPIKey  AuthType = "api_key"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID       string
	AuthType AuthType
}

// Resolver extracts a caller from request credentials. ErrNoCredentials
// means the resolver found nothing it understands, so the next resolver may
// try.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) (*Caller, error)
}

var (
	ErrNoCredentials      = errors.New("no_credentials")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidCaller      = errors.New("invalid_caller")
	ErrInvalidName        = errors.New("invalid_name")
)

// APIKey stores a hashed credential bound to one caller.
type APIKey struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	CallerID   string       `gorm:"column:caller_id;type:varchar(191);not null;index"`
	Name       string       `gorm:"type:varchar(191);not null"`
	KeyHash    string       `gorm:"column:key_hash;type:varchar(64);not null;uniqueIndex"`
	IsActive   bool         `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time    `gorm:"not null"`
	UpdatedAt  time.Time    `gorm:"not null"`
	LastUsedAt *time.Time   `gorm:"column:last_used_at"`
	ExpiresAt  *time.Time   `gorm:"column:expires_at"`
}

func (APIKey) TableName() string { return "api_keys" }

// HashAPIKey hashes the raw API key using the same strategy as key creation.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssuedKey carries the plaintext key. It is returned once and never stored.
type IssuedKey struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}
