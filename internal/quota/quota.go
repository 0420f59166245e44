// Package quota decides whether a caller may generate and charges the free
// tier after a successful generation.
package quota

import (
	"context"
	"errors"
	"fmt"

	entitlementdomain "github.com/smallbiznis/genstudio/internal/entitlement/domain"
	generationdomain "github.com/smallbiznis/genstudio/internal/generation/domain"
	obsmetrics "github.com/smallbiznis/genstudio/internal/observability/metrics"
	"github.com/smallbiznis/genstudio/internal/observability/logger"
	usagedomain "github.com/smallbiznis/genstudio/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrQuotaExceeded = errors.New("quota_exceeded")

// Decision is the outcome of a successful Check.
type Decision struct {
	CallerID string
	Entitled bool
}

type Params struct {
	fx.In

	Log         *zap.Logger
	Ledger      usagedomain.Ledger
	Entitlement entitlementdomain.Checker
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Gate struct {
	log         *zap.Logger
	ledger      usagedomain.Ledger
	entitlement entitlementdomain.Checker
	metrics     *obsmetrics.Metrics
}

func NewGate(p Params) *Gate {
	return &Gate{
		log:         p.Log.Named("quota"),
		ledger:      p.Ledger,
		entitlement: p.Entitlement,
		metrics:     p.Metrics,
	}
}

// Check admits a caller with free generations left or an active entitlement.
// Both collaborators are consulted so a paid caller with an exhausted free
// tier is still admitted.
func (g *Gate) Check(ctx context.Context, callerID string, kind generationdomain.MediaKind) (Decision, error) {
	remaining, err := g.ledger.CheckRemaining(ctx, callerID)
	if err != nil {
		return Decision{}, fmt.Errorf("check usage: %w", err)
	}
	entitled, err := g.entitlement.IsActive(ctx, callerID)
	if err != nil {
		return Decision{}, fmt.Errorf("check entitlement: %w", err)
	}
	if !remaining && !entitled {
		g.metrics.RecordQuotaDenied(ctx, string(kind))
		logger.WithContext(ctx, g.log).Info("free tier exhausted",
			zap.String("media_kind", string(kind)),
		)
		return Decision{}, ErrQuotaExceeded
	}
	return Decision{CallerID: callerID, Entitled: entitled}, nil
}

// Charge records one free-tier generation. Entitled callers are never
// charged. The request id is the idempotency key.
func (g *Gate) Charge(ctx context.Context, decision Decision, req generationdomain.Request, res *generationdomain.Result) error {
	if decision.Entitled || res == nil {
		return nil
	}
	return g.ledger.Increment(ctx, usagedomain.IncrementRequest{
		CallerID:       decision.CallerID,
		IdempotencyKey: req.ID,
		MediaKind:      string(res.MediaKind),
		Model:          res.Model,
		Metadata:       map[string]any{"fallback": res.Fallback},
	})
}

// Account is the caller's allowance plus paid status.
type Account struct {
	usagedomain.Summary
	Entitled bool `json:"entitled"`
}

func (g *Gate) Account(ctx context.Context, callerID string) (Account, error) {
	summary, err := g.ledger.Get(ctx, callerID)
	if err != nil {
		return Account{}, err
	}
	entitled, err := g.entitlement.IsActive(ctx, callerID)
	if err != nil {
		return Account{}, err
	}
	return Account{Summary: summary, Entitled: entitled}, nil
}

// Refresh drops cached paid status so the next read sees billing changes.
func (g *Gate) Refresh(callerID string) {
	g.entitlement.Invalidate(callerID)
}

var Module = fx.Module("quota",
	fx.Provide(NewGate),
)
