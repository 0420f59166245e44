// Package scheduler runs periodic housekeeping jobs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/genstudio/internal/cache"
	"github.com/smallbiznis/genstudio/internal/clock"
	obscontext "github.com/smallbiznis/genstudio/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobCacheSweep = "cache_sweep"

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Purgers []cache.Purger `group:"cache_purgers"`
	Config  Config         `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	purgers []cache.Purger
	cron    *cron.Cron
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     cfg,
		genID:   p.GenID,
		clock:   p.Clock,
		purgers: p.Purgers,
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := s.cron.AddFunc(cfg.CacheSweepSpec, func() {
		if err := s.runJob(context.Background(), jobCacheSweep, s.CacheSweepJob); err != nil {
			s.log.Warn("scheduled job failed", zap.String("job", jobCacheSweep), zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, jobCacheSweep, err)
	}
	return s, nil
}

// Start begins the cron loop. Stop waits for running jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	runID := s.genID.Generate().String()
	ctx = obscontext.WithRequestID(ctx, runID)
	log := s.log.With(zap.String("job", name), zap.String("run_id", runID))

	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	if err == nil {
		log.Debug("job finished", zap.Duration("duration", elapsed))
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// CacheSweepJob drops expired entries from every registered cache.
func (s *Scheduler) CacheSweepJob(ctx context.Context) error {
	removed := 0
	for _, p := range s.purgers {
		if err := ctx.Err(); err != nil {
			return err
		}
		removed += p.Purge()
	}
	if removed > 0 {
		s.log.Debug("expired cache entries purged", zap.Int("removed", removed))
	}
	return nil
}
