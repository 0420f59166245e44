package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/genstudio/internal/cache"
	"github.com/smallbiznis/genstudio/internal/clock"
	"go.uber.org/zap"
)

func newTestScheduler(t *testing.T, cfg Config, purgers ...cache.Purger) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	s, err := New(Params{
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Purgers: purgers,
		Config:  cfg,
	})
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s
}

func TestRunJobTimeoutDoesNotReturnError(t *testing.T) {
	s := newTestScheduler(t, Config{JobTimeout: 5 * time.Millisecond})
	err := s.runJob(context.Background(), "timeout_job", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestRunJobWrapsFailure(t *testing.T) {
	s := newTestScheduler(t, Config{})
	boom := errors.New("boom")
	err := s.runJob(context.Background(), "failing_job", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "failing_job: ") {
		t.Fatalf("expected job name prefix, got %q", err.Error())
	}
}

func TestCacheSweepJobPurgesEveryCache(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	a := cache.NewTTLCache[string, bool](clk)
	b := cache.NewTTLCache[string, int](clk)
	a.Set("x", true, time.Second)
	a.Set("y", true, time.Hour)
	b.Set("z", 1, time.Second)
	clk.Advance(2 * time.Second)

	s := newTestScheduler(t, Config{}, a, b)
	if err := s.CacheSweepJob(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if a.Len() != 1 || b.Len() != 0 {
		t.Fatalf("unexpected sizes after sweep: a=%d b=%d", a.Len(), b.Len())
	}
}

func TestCacheSweepJobStopsOnCanceledContext(t *testing.T) {
	s := newTestScheduler(t, Config{}, cache.NewTTLCache[string, bool](clock.SystemClock{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.CacheSweepJob(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	node, _ := snowflake.NewNode(1)
	_, err := New(Params{
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.SystemClock{},
		Config: Config{CacheSweepSpec: "every now and then"},
	})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(t, Config{})
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
