package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

const defaultInterval = time.Minute

// Tickable is anything the Scheduler can trigger periodically.
type Tickable interface {
	Symbol() string
	Interval() time.Duration
	Evaluate(ctx context.Context) (*TickResult, error)
}

// Scheduler runs every evaluator on its own ticker. Evaluators for different
// symbols never block each other.
type Scheduler struct {
	evaluators []Tickable
	logger     *zap.Logger
}

func NewScheduler(evaluators []Tickable, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		evaluators: evaluators,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled and all evaluator loops have returned.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Starting scheduler", zap.Int("strategies", len(s.evaluators)))

	var wg sync.WaitGroup
	for _, ev := range s.evaluators {
		wg.Add(1)
		go func(ev Tickable) {
			defer wg.Done()
			s.loop(ctx, ev)
		}(ev)
	}
	wg.Wait()

	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, ev Tickable) {
	interval := ev.Interval()
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run immediately first time
	s.tick(ctx, ev)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, ev)
		}
	}
}

// tick runs to completion even if ctx is cancelled meanwhile, so an entry is
// never cut off before its protective order. Run waits for it on shutdown.
func (s *Scheduler) tick(ctx context.Context, ev Tickable) {
	res, err := ev.Evaluate(context.WithoutCancel(ctx))
	switch {
	case errors.Is(err, domain.ErrTickInProgress):
		s.logger.Warn("Previous tick still running, skipping", zap.String("symbol", ev.Symbol()))
	case errors.Is(err, domain.ErrUnprotectedPosition):
		s.logger.Error("Tick left an unprotected position", zap.String("symbol", ev.Symbol()), zap.Error(err))
	case err != nil:
		s.logger.Warn("Tick failed", zap.String("symbol", ev.Symbol()), zap.Error(err))
	case res != nil:
		s.logger.Debug("Tick done",
			zap.String("symbol", ev.Symbol()),
			zap.String("action", string(res.Action)),
			zap.Stringer("mark_price", res.MarkPrice))
	}
}
