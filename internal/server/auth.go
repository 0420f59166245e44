package server

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/genstudio/internal/auth/domain"
	obscontext "github.com/smallbiznis/genstudio/internal/observability/context"
	"github.com/smallbiznis/genstudio/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	contextCallerIDKey = "caller_id"
	contextAuthTypeKey = "auth_type"

	headerInternalToken = "X-Internal-Token"
)

// CallerRequired resolves the caller from a session token or API key.
func (s *Server) CallerRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		caller, err := s.resolver.Resolve(ctx, c.Request)
		if err != nil {
			if !errors.Is(err, authdomain.ErrNoCredentials) && !errors.Is(err, authdomain.ErrInvalidCredentials) {
				logger.FromContext(ctx).Error("caller resolution failed", zap.Error(err))
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if caller == nil || strings.TrimSpace(caller.ID) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx = obscontext.WithCaller(ctx, string(caller.AuthType), caller.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextCallerIDKey, caller.ID)
		c.Set(contextAuthTypeKey, string(caller.AuthType))
		c.Next()
	}
}

// SessionRequired allows only callers authenticated by session token.
func (s *Server) SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(contextAuthTypeKey) != string(authdomain.AuthTypeSession) {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// InternalTokenRequired guards endpoints called by the billing collaborator.
func (s *Server) InternalTokenRequired() gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(s.cfg.Auth.InternalToken))
	return func(c *gin.Context) {
		got := []byte(strings.TrimSpace(c.GetHeader(headerInternalToken)))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func callerID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetString(contextCallerIDKey))
	return id, id != ""
}
