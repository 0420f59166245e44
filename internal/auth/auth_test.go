package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/smallbiznis/genstudio/internal/auth/domain"
	"github.com/smallbiznis/genstudio/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func bearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/music", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestJWTResolver(t *testing.T) {
	r := NewJWTResolver(testSecret, "https://idp.example")
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	cases := []struct {
		name    string
		req     *http.Request
		wantID  string
		wantErr error
	}{
		{
			name:   "valid",
			req:    bearerRequest(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://idp.example", ExpiresAt: future})),
			wantID: "user_1",
		},
		{
			name:    "no header",
			req:     bearerRequest(""),
			wantErr: authdomain.ErrNoCredentials,
		},
		{
			name:    "not a jwt",
			req:     bearerRequest("gs_abcdef"),
			wantErr: authdomain.ErrNoCredentials,
		},
		{
			name:    "expired",
			req:     bearerRequest(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://idp.example", ExpiresAt: past})),
			wantErr: authdomain.ErrInvalidCredentials,
		},
		{
			name:    "missing expiry",
			req:     bearerRequest(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://idp.example"})),
			wantErr: authdomain.ErrInvalidCredentials,
		},
		{
			name:    "wrong secret",
			req:     bearerRequest(signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://idp.example", ExpiresAt: future})),
			wantErr: authdomain.ErrInvalidCredentials,
		},
		{
			name:    "wrong issuer",
			req:     bearerRequest(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://evil.example", ExpiresAt: future})),
			wantErr: authdomain.ErrInvalidCredentials,
		},
		{
			name:    "wrong algorithm",
			req:     bearerRequest(signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{Subject: "user_1", Issuer: "https://idp.example", ExpiresAt: future})),
			wantErr: authdomain.ErrInvalidCredentials,
		},
		{
			name:    "empty subject",
			req:     bearerRequest(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Issuer: "https://idp.example", ExpiresAt: future})),
			wantErr: authdomain.ErrInvalidCredentials,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			caller, err := r.Resolve(context.Background(), tc.req)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, caller)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantID, caller.ID)
			assert.Equal(t, authdomain.AuthTypeSession, caller.AuthType)
		})
	}
}

func TestNewJWTResolver_EmptySecret(t *testing.T) {
	assert.Nil(t, NewJWTResolver("  ", ""))
}

func setupKeyStore(t *testing.T) (*APIKeyStore, *clock.FakeClock, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&authdomain.APIKey{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewAPIKeyStore(db, zap.NewNop(), node, clk, ""), clk, db
}

func keyRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/video", nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	return req
}

func TestAPIKeyStore_IssueAndResolve(t *testing.T) {
	store, _, db := setupKeyStore(t)
	ctx := context.Background()

	issued, err := store.Issue(ctx, "user_9", "ci", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(issued.APIKey, apiKeyPrefix))

	var stored authdomain.APIKey
	require.NoError(t, db.Take(&stored).Error)
	assert.NotEqual(t, issued.APIKey, stored.KeyHash)
	assert.Equal(t, authdomain.HashAPIKey(issued.APIKey), stored.KeyHash)

	caller, err := store.Resolve(ctx, keyRequest(issued.APIKey))
	require.NoError(t, err)
	assert.Equal(t, "user_9", caller.ID)
	assert.Equal(t, authdomain.AuthTypeAPIKey, caller.AuthType)

	require.NoError(t, db.Take(&stored).Error)
	require.NotNil(t, stored.LastUsedAt)
}

func TestAPIKeyStore_Rejections(t *testing.T) {
	store, clk, db := setupKeyStore(t)
	ctx := context.Background()

	_, err := store.Resolve(ctx, keyRequest(""))
	assert.ErrorIs(t, err, authdomain.ErrNoCredentials)

	_, err = store.Resolve(ctx, keyRequest("gs_unknown"))
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	expiring, err := store.Issue(ctx, "user_1", "short", time.Minute)
	require.NoError(t, err)
	_, err = store.Resolve(ctx, keyRequest(expiring.APIKey))
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)
	_, err = store.Resolve(ctx, keyRequest(expiring.APIKey))
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	revoked, err := store.Issue(ctx, "user_1", "revoked", 0)
	require.NoError(t, err)
	require.NoError(t, db.Model(&authdomain.APIKey{}).
		Where("key_hash = ?", authdomain.HashAPIKey(revoked.APIKey)).
		Update("is_active", false).Error)
	_, err = store.Resolve(ctx, keyRequest(revoked.APIKey))
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestAPIKeyStore_IssueValidation(t *testing.T) {
	store, _, _ := setupKeyStore(t)
	_, err := store.Issue(context.Background(), " ", "x", 0)
	assert.ErrorIs(t, err, authdomain.ErrInvalidCaller)
	_, err = store.Issue(context.Background(), "user_1", "", 0)
	assert.ErrorIs(t, err, authdomain.ErrInvalidName)
}

type stubResolver struct {
	caller *authdomain.Caller
	err    error
	calls  int
}

func (s *stubResolver) Resolve(context.Context, *http.Request) (*authdomain.Caller, error) {
	s.calls++
	return s.caller, s.err
}

func TestChain(t *testing.T) {
	skip := &stubResolver{err: authdomain.ErrNoCredentials}
	reject := &stubResolver{err: authdomain.ErrInvalidCredentials}
	accept := &stubResolver{caller: &authdomain.Caller{ID: "u1"}}

	caller, err := Chain{skip, nil, accept}.Resolve(context.Background(), bearerRequest(""))
	require.NoError(t, err)
	assert.Equal(t, "u1", caller.ID)

	_, err = Chain{reject, accept}.Resolve(context.Background(), bearerRequest(""))
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = Chain{skip}.Resolve(context.Background(), bearerRequest(""))
	assert.ErrorIs(t, err, authdomain.ErrNoCredentials)
	assert.Equal(t, 2, skip.calls)
}
