package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

// Warmer computes (or confirms) a cached forecast.
type Warmer interface {
	FetchOrCompute(ctx context.Context, symbol string, horizon int) (*models.Prediction, error)
}

// Scheduler runs the periodic forecast warmup.
type Scheduler struct {
	cron     *cron.Cron
	warmer   Warmer
	symbols  []string
	horizons []int
	l        *applogger.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(warmer Warmer, symbols []string, horizons []int, l *applogger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		warmer:   warmer,
		symbols:  symbols,
		horizons: horizons,
		l:        l.With(applogger.String("component", "scheduler")),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds the warmup task on spec (six-field cron, seconds first).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.warmup); err != nil {
		return fmt.Errorf("register warmup task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started", applogger.Int("entries", len(s.cron.Entries())))
}

// Stop cancels a running warmup and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.l.Info("scheduler stopped")
}

// RunNow executes the warmup immediately.
func (s *Scheduler) RunNow() { s.warmup() }

func (s *Scheduler) warmup() {
	start := time.Now()
	ok, failed := 0, 0
	for _, sym := range s.symbols {
		for _, h := range s.horizons {
			if s.ctx.Err() != nil {
				return
			}
			if _, err := s.warmer.FetchOrCompute(s.ctx, sym, h); err != nil {
				failed++
				s.l.Warn("warmup forecast failed",
					applogger.String("symbol", sym),
					applogger.Int("horizon", h),
					applogger.Error(err))
				continue
			}
			ok++
		}
	}
	s.l.Info("warmup done",
		applogger.Int("ok", ok),
		applogger.Int("failed", failed),
		applogger.Duration("took_ms", time.Since(start)))
}
