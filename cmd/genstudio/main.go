package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/genstudio/internal/auth"
	"github.com/smallbiznis/genstudio/internal/clock"
	"github.com/smallbiznis/genstudio/internal/config"
	"github.com/smallbiznis/genstudio/internal/entitlement"
	"github.com/smallbiznis/genstudio/internal/generation"
	"github.com/smallbiznis/genstudio/internal/migration"
	"github.com/smallbiznis/genstudio/internal/observability"
	"github.com/smallbiznis/genstudio/internal/quota"
	"github.com/smallbiznis/genstudio/internal/ratelimit"
	"github.com/smallbiznis/genstudio/internal/scheduler"
	"github.com/smallbiznis/genstudio/internal/server"
	"github.com/smallbiznis/genstudio/internal/usage"
	"github.com/smallbiznis/genstudio/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		usage.Module,
		entitlement.Module,
		generation.Module,
		quota.Module,
		auth.Module,
		ratelimit.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
