package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/genstudio/internal/cache"
	"github.com/smallbiznis/genstudio/internal/clock"
	entitlementdomain "github.com/smallbiznis/genstudio/internal/entitlement/domain"
	"github.com/smallbiznis/genstudio/internal/entitlement/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultCacheTTL = 45 * time.Second

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	Repo  repository.Repository
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	repo  repository.Repository
	clock clock.Clock
	cache *cache.TTLCache[string, bool]
	ttl   time.Duration
}

func NewService(p ServiceParam) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:   p.Log.Named("entitlement.service"),
		repo:  p.Repo,
		clock: clk,
		cache: cache.NewTTLCache[string, bool](clk),
		ttl:   defaultCacheTTL,
	}
}

func (s *Service) IsActive(ctx context.Context, callerID string) (bool, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return false, entitlementdomain.ErrInvalidCaller
	}

	// Caller ids are opaque and case-sensitive.
	if active, ok := s.cache.Get(callerID); ok {
		return active, nil
	}

	gen := s.cache.Generation()
	ent, err := s.repo.FindByCaller(ctx, callerID)
	if err != nil {
		return false, err
	}

	active := ent != nil && ent.ActiveAt(s.clock.Now())
	s.cache.SetIfGeneration(callerID, active, s.ttl, gen)
	return active, nil
}

func (s *Service) Invalidate(callerID string) {
	s.cache.Delete(strings.TrimSpace(callerID))
}

// Purge drops expired cache entries; the janitor calls it periodically.
func (s *Service) Purge() int {
	return s.cache.Purge()
}

func (s *Service) Upsert(ctx context.Context, req entitlementdomain.UpsertRequest) (*entitlementdomain.Entitlement, error) {
	callerID := strings.TrimSpace(req.CallerID)
	if callerID == "" {
		return nil, entitlementdomain.ErrInvalidCaller
	}
	planCode := strings.TrimSpace(req.PlanCode)
	if planCode == "" {
		return nil, entitlementdomain.ErrInvalidPlan
	}
	status := entitlementdomain.Status(strings.ToLower(strings.TrimSpace(string(req.Status))))
	switch status {
	case entitlementdomain.StatusActive, entitlementdomain.StatusTrialing,
		entitlementdomain.StatusPastDue, entitlementdomain.StatusCanceled:
	default:
		return nil, entitlementdomain.ErrInvalidStatus
	}

	now := s.clock.Now()
	ent := &entitlementdomain.Entitlement{
		CallerID:         callerID,
		PlanCode:         planCode,
		Status:           status,
		CurrentPeriodEnd: req.CurrentPeriodEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Upsert(ctx, ent); err != nil {
		return nil, err
	}
	s.Invalidate(callerID)

	s.log.Info("entitlement upserted",
		zap.String("caller_id", callerID),
		zap.String("plan_code", planCode),
		zap.String("status", string(status)),
	)
	return ent, nil
}

var _ entitlementdomain.Checker = (*Service)(nil)
