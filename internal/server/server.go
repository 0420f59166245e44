package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/genstudio/internal/auth"
	authdomain "github.com/smallbiznis/genstudio/internal/auth/domain"
	"github.com/smallbiznis/genstudio/internal/config"
	entitlementdomain "github.com/smallbiznis/genstudio/internal/entitlement/domain"
	generationdomain "github.com/smallbiznis/genstudio/internal/generation/domain"
	"github.com/smallbiznis/genstudio/internal/observability"
	obsmiddleware "github.com/smallbiznis/genstudio/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/genstudio/internal/observability/metrics"
	obstracing "github.com/smallbiznis/genstudio/internal/observability/tracing"
	"github.com/smallbiznis/genstudio/internal/quota"
	"github.com/smallbiznis/genstudio/internal/ratelimit"
	"github.com/smallbiznis/genstudio/internal/ui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(provideQuotaGate),
	fx.Provide(provideAPIKeyIssuer),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// QuotaGate admits, charges and reports free-tier usage.
type QuotaGate interface {
	Check(ctx context.Context, callerID string, kind generationdomain.MediaKind) (quota.Decision, error)
	Charge(ctx context.Context, decision quota.Decision, req generationdomain.Request, res *generationdomain.Result) error
	Account(ctx context.Context, callerID string) (quota.Account, error)
	Refresh(callerID string)
}

type APIKeyIssuer interface {
	Issue(ctx context.Context, callerID, name string, ttl time.Duration) (*authdomain.IssuedKey, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func provideQuotaGate(g *quota.Gate) QuotaGate { return g }

func provideAPIKeyIssuer(s *auth.APIKeyStore) APIKeyIssuer { return s }

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	resolver     authdomain.Resolver
	apiKeys      APIKeyIssuer
	generator    generationdomain.Service
	quota        QuotaGate
	entitlements entitlementdomain.Checker
	limiter      *ratelimit.GenerationLimiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Resolver     authdomain.Resolver
	APIKeys      APIKeyIssuer
	Generator    generationdomain.Service
	Quota        QuotaGate
	Entitlements entitlementdomain.Checker
	Limiter      *ratelimit.GenerationLimiter `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics          `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		resolver:     p.Resolver,
		apiKeys:      p.APIKeys,
		generator:    p.Generator,
		quota:        p.Quota,
		entitlements: p.Entitlements,
		limiter:      p.Limiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerInternalRoutes()
	svc.registerUIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.CallerRequired())

	api.POST("/music", s.GenerationRateLimit(), s.GenerateMusic)
	api.POST("/video", s.GenerationRateLimit(), s.GenerateVideo)

	api.GET("/account/usage", s.GetAccountUsage)
	api.POST("/account/api-keys", s.SessionRequired(), s.IssueAPIKey)
}

func (s *Server) registerInternalRoutes() {
	if s.cfg.Auth.InternalToken == "" {
		return
	}
	internal := s.engine.Group("/internal", s.InternalTokenRequired())
	internal.PUT("/entitlements", s.SyncEntitlement)
}

func (s *Server) registerUIRoutes() {
	ui.Register(s.engine)
}
