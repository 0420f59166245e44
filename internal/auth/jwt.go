package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/smallbiznis/genstudio/internal/auth/domain"
)

// JWTResolver accepts HS256 session tokens issued by the identity provider.
// The subject claim is the caller id.
type JWTResolver struct {
	secret []byte
	issuer string
}

func NewJWTResolver(secret, issuer string) *JWTResolver {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &JWTResolver{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

func (r *JWTResolver) Resolve(_ context.Context, req *http.Request) (*authdomain.Caller, error) {
	if r == nil {
		return nil, authdomain.ErrNoCredentials
	}
	raw, ok := bearerToken(req)
	if !ok {
		return nil, authdomain.ErrNoCredentials
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, authdomain.ErrNoCredentials
		}
		return nil, authdomain.ErrInvalidCredentials
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, authdomain.ErrInvalidCredentials
	}
	return &authdomain.Caller{ID: subject, AuthType: authdomain.AuthTypeSession}, nil
}

func bearerToken(req *http.Request) (string, bool) {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
