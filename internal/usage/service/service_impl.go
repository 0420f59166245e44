package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/genstudio/internal/clock"
	"github.com/smallbiznis/genstudio/internal/config"
	obsmetrics "github.com/smallbiznis/genstudio/internal/observability/metrics"
	usagedomain "github.com/smallbiznis/genstudio/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Cfg     config.Config
	Clock   clock.Clock
	Repo    usagedomain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  usagedomain.Repository
	limit int64

	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) usagedomain.Ledger {
	limit := p.Cfg.Usage.FreeTierLimit
	if limit < 0 {
		limit = 0
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("usage.ledger"),
		genID:   p.GenID,
		clock:   clk,
		repo:    p.Repo,
		limit:   limit,
		metrics: p.Metrics,
	}
}

func (s *Service) CheckRemaining(ctx context.Context, callerID string) (bool, error) {
	summary, err := s.Get(ctx, callerID)
	if err != nil {
		return false, err
	}
	return summary.Count < summary.Limit, nil
}

func (s *Service) Get(ctx context.Context, callerID string) (usagedomain.Summary, error) {
	callerID = strings.TrimSpace(callerID)
	if callerID == "" {
		return usagedomain.Summary{}, usagedomain.ErrInvalidCaller
	}

	record, err := s.repo.FindRecord(ctx, s.db, callerID)
	if err != nil {
		return usagedomain.Summary{}, err
	}

	var count int64
	if record != nil {
		count = record.Count
	}
	remaining := s.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return usagedomain.Summary{
		CallerID:  callerID,
		Count:     count,
		Limit:     s.limit,
		Remaining: remaining,
	}, nil
}

// Increment records one charged generation. Replaying an idempotency key
// leaves the count unchanged.
func (s *Service) Increment(ctx context.Context, req usagedomain.IncrementRequest) error {
	callerID := strings.TrimSpace(req.CallerID)
	if callerID == "" {
		return usagedomain.ErrInvalidCaller
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return usagedomain.ErrInvalidIdempotencyKey
	}

	now := s.clock.Now()
	event := &usagedomain.UsageEvent{
		ID:             s.genID.Generate(),
		CallerID:       callerID,
		IdempotencyKey: key,
		MediaKind:      strings.TrimSpace(req.MediaKind),
		Model:          strings.TrimSpace(req.Model),
		Metadata:       datatypes.JSONMap(req.Metadata),
		CreatedAt:      now,
	}

	duplicate := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inserted, err := s.repo.InsertEvent(ctx, tx, event)
		if err != nil {
			return err
		}
		if !inserted {
			duplicate = true
			return nil
		}
		return s.repo.IncrementCount(ctx, tx, callerID, now)
	})
	if err != nil {
		s.log.Error("usage increment failed",
			zap.String("caller_id", callerID),
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
		return err
	}

	if duplicate {
		s.log.Debug("usage increment deduplicated",
			zap.String("caller_id", callerID),
			zap.String("idempotency_key", key),
		)
		return nil
	}

	s.metrics.RecordUsageIncrement(ctx, event.MediaKind)
	return nil
}
