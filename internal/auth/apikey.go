package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/genstudio/internal/auth/domain"
	"github.com/smallbiznis/genstudio/internal/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeyPrefix      = "gs_"
	apiKeySecretBytes = 24
)

// APIKeyStore resolves callers from hashed API keys and issues new ones.
type APIKeyStore struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	header string
}

func NewAPIKeyStore(db *gorm.DB, log *zap.Logger, genID *snowflake.Node, clk clock.Clock, header string) *APIKeyStore {
	header = strings.TrimSpace(header)
	if header == "" {
		header = "X-API-Key"
	}
	return &APIKeyStore{
		db:     db,
		log:    log.Named("auth.apikey"),
		genID:  genID,
		clock:  clk,
		header: header,
	}
}

func (s *APIKeyStore) Resolve(ctx context.Context, req *http.Request) (*authdomain.Caller, error) {
	raw := strings.TrimSpace(req.Header.Get(s.header))
	if raw == "" {
		return nil, authdomain.ErrNoCredentials
	}

	hash := authdomain.HashAPIKey(raw)
	now := s.clock.Now()

	var record authdomain.APIKey
	err := s.db.WithContext(ctx).
		Where("key_hash = ? AND is_active = ?", hash, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, authdomain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(record.KeyHash), []byte(hash)) != 1 {
		return nil, authdomain.ErrInvalidCredentials
	}

	if err := s.db.WithContext(ctx).Model(&authdomain.APIKey{}).
		Where("id = ?", record.ID).
		Update("last_used_at", now).Error; err != nil {
		s.log.Warn("failed to touch api key", zap.String("api_key_id", record.ID.String()), zap.Error(err))
	}

	return &authdomain.Caller{ID: record.CallerID, AuthType: authdomain.AuthTypeAPIKey}, nil
}

// Issue creates a key for the caller. The plaintext is only in the result.
func (s *APIKeyStore) Issue(ctx context.Context, callerID, name string, ttl time.Duration) (*authdomain.IssuedKey, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return nil, authdomain.ErrInvalidCaller
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, authdomain.ErrInvalidName
	}

	plain, hash, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	key := &authdomain.APIKey{
		ID:        s.genID.Generate(),
		CallerID:  callerID,
		Name:      name,
		KeyHash:   hash,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		key.ExpiresAt = &expires
	}
	if err := s.db.WithContext(ctx).Create(key).Error; err != nil {
		return nil, err
	}
	return &authdomain.IssuedKey{ID: key.ID.String(), Name: key.Name, APIKey: plain}, nil
}

func generateAPIKey() (string, string, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}
	plain := apiKeyPrefix + hex.EncodeToString(secret)
	return plain, authdomain.HashAPIKey(plain), nil
}
