package auth

import (
	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/genstudio/internal/auth/domain"
	"github.com/smallbiznis/genstudio/internal/clock"
	"github.com/smallbiznis/genstudio/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("auth",
	fx.Provide(provideAPIKeyStore),
	fx.Provide(provideResolver),
)

func provideAPIKeyStore(cfg config.Config, db *gorm.DB, log *zap.Logger, genID *snowflake.Node, clk clock.Clock) *APIKeyStore {
	return NewAPIKeyStore(db, log, genID, clk, cfg.Auth.APIKeyHeader)
}

func provideResolver(cfg config.Config, keys *APIKeyStore, log *zap.Logger) authdomain.Resolver {
	jwtResolver := NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if jwtResolver == nil {
		log.Warn("AUTH_JWT_SECRET not set, session tokens are rejected")
		return Chain{keys}
	}
	return Chain{jwtResolver, keys}
}
