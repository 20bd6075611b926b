package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

type TickAction string

const (
	ActionMarketEntry   TickAction = "market_entry"
	ActionLadderEntry   TickAction = "ladder_entry"
	ActionNoEligible    TickAction = "no_eligible_rung"
	ActionAlreadyOnRung TickAction = "rung_unchanged"
)

// TickResult describes what one evaluation did.
type TickResult struct {
	Action    TickAction
	Rung      decimal.Decimal
	MarkPrice decimal.Decimal
	Placement *domain.PlacementResult
}

// EvaluatorStatus is the JSON view served by the status endpoint.
type EvaluatorStatus struct {
	Symbol     string                 `json:"symbol"`
	Position   domain.PositionState   `json:"position"`
	Market     *domain.MarketSnapshot `json:"market,omitempty"`
	Ladder     []decimal.Decimal      `json:"ladder"`
	LastTick   time.Time              `json:"last_tick"`
	LastAction TickAction             `json:"last_action,omitempty"`
	LastError  string                 `json:"last_error,omitempty"`
}

// StrategyEvaluator decides, once per trigger, whether to enter or scale into
// the ladder for a single symbol. It owns that symbol's position state.
type StrategyEvaluator struct {
	params    domain.LadderParams
	exchange  domain.Exchange
	sequencer *OrderSequencer
	tracker   *PositionTracker
	market    *SnapshotCell
	metrics   *Metrics
	logger    *zap.Logger

	running sync.Mutex // held for the duration of a tick

	mu         sync.Mutex
	lastTick   time.Time
	lastAction TickAction
	lastErr    error
}

func NewStrategyEvaluator(
	params domain.LadderParams,
	exchange domain.Exchange,
	sequencer *OrderSequencer,
	tracker *PositionTracker,
	market *SnapshotCell,
	metrics *Metrics,
	logger *zap.Logger,
) *StrategyEvaluator {
	return &StrategyEvaluator{
		params:    params,
		exchange:  exchange,
		sequencer: sequencer,
		tracker:   tracker,
		market:    market,
		metrics:   metrics,
		logger:    logger.With(zap.String("symbol", params.Symbol)),
	}
}

func (e *StrategyEvaluator) Symbol() string {
	return e.params.Symbol
}

func (e *StrategyEvaluator) Interval() time.Duration {
	return e.params.Interval
}

// Evaluate runs one tick. It returns ErrTickInProgress without doing anything
// if another tick for the same symbol has not finished yet.
func (e *StrategyEvaluator) Evaluate(ctx context.Context) (*TickResult, error) {
	if !e.running.TryLock() {
		e.metrics.Tick(e.params.Symbol, "skipped")
		return nil, domain.ErrTickInProgress
	}
	defer e.running.Unlock()

	res, err := e.evaluate(ctx)

	e.mu.Lock()
	e.lastTick = time.Now()
	e.lastErr = err
	if res != nil {
		e.lastAction = res.Action
	}
	e.mu.Unlock()

	switch {
	case err != nil:
		e.metrics.Tick(e.params.Symbol, tickErrorOutcome(err))
	case res != nil:
		e.metrics.Tick(e.params.Symbol, string(res.Action))
	}
	return res, err
}

func (e *StrategyEvaluator) evaluate(ctx context.Context) (*TickResult, error) {
	if err := e.checkBalance(ctx); err != nil {
		return nil, err
	}

	if e.tracker.Phase() == domain.PhaseFlat {
		return e.enterMarket(ctx)
	}

	snap, ok := e.market.Load()
	if !ok {
		return nil, domain.ErrNoMarkPrice
	}

	ladder := ComputeLadder(e.params.ReferencePrice, e.params.EntryOffsets)
	rung, ok := HighestEligible(ladder, snap.MarkPrice)
	if !ok {
		e.logger.Debug("No eligible rung", zap.Stringer("mark_price", snap.MarkPrice))
		return &TickResult{Action: ActionNoEligible, MarkPrice: snap.MarkPrice}, nil
	}

	current := e.tracker.CurrentEntryPrice()
	if !rung.GreaterThan(current) {
		e.logger.Debug("Highest eligible rung already entered",
			zap.Stringer("rung", rung),
			zap.Stringer("entry_price", current),
			zap.Stringer("mark_price", snap.MarkPrice))
		return &TickResult{Action: ActionAlreadyOnRung, Rung: rung, MarkPrice: snap.MarkPrice}, nil
	}

	q, err := e.quantizer(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Placing order at highest eligible rung",
		zap.Stringer("rung", rung),
		zap.Stringer("entry_price", current),
		zap.Stringer("mark_price", snap.MarkPrice))

	intent, err := e.sequencer.BuildIntent(e.params.Symbol, rung, q)
	if err != nil {
		return nil, err
	}
	placement, err := e.sequencer.Execute(ctx, intent)
	if placement != nil && placement.Entry != nil {
		// The entry is live even if its protective order failed.
		e.tracker.RecordEntry(rung)
		e.metrics.EntryPrice(e.params.Symbol, rung)
	}
	if err != nil {
		return nil, err
	}

	return &TickResult{Action: ActionLadderEntry, Rung: rung, MarkPrice: snap.MarkPrice, Placement: placement}, nil
}

func (e *StrategyEvaluator) enterMarket(ctx context.Context) (*TickResult, error) {
	q, err := e.quantizer(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info("No position yet, placing market entry")

	intent, err := e.sequencer.BuildIntent(e.params.Symbol, decimal.Zero, q)
	if err != nil {
		return nil, err
	}
	placement, err := e.sequencer.Execute(ctx, intent)
	if placement != nil && placement.Entry != nil {
		fill := placement.Entry.AvgPrice
		if !fill.IsPositive() {
			if snap, ok := e.market.Load(); ok {
				fill = snap.MarkPrice
			}
		}
		e.tracker.RecordMarketEntry(fill)
	}
	if err != nil {
		return nil, err
	}

	res := &TickResult{Action: ActionMarketEntry, Placement: placement}
	if snap, ok := e.market.Load(); ok {
		res.MarkPrice = snap.MarkPrice
	}
	return res, nil
}

func (e *StrategyEvaluator) checkBalance(ctx context.Context) error {
	acc, err := e.exchange.GetAccountInformation(ctx)
	if err != nil {
		return fmt.Errorf("get account information: %w", err)
	}
	balance, err := AvailableBalance(acc, e.params.Asset)
	if err != nil {
		return err
	}
	if balance.LessThan(e.params.MinBalance) {
		e.logger.Warn("Available balance not enough",
			zap.String("asset", e.params.Asset),
			zap.Stringer("available", balance),
			zap.Stringer("min_balance", e.params.MinBalance))
		return fmt.Errorf("%w: %s %s < %s", domain.ErrInsufficientBalance, e.params.Asset, balance, e.params.MinBalance)
	}
	return nil
}

func (e *StrategyEvaluator) quantizer(ctx context.Context) (domain.Quantizer, error) {
	info, err := e.exchange.GetExchangeInfo(ctx)
	if err != nil {
		return domain.Quantizer{}, fmt.Errorf("get exchange info: %w", err)
	}
	return FiltersFor(info, e.params.Symbol)
}

// Status returns a snapshot for reporting. It does not wait for a running tick.
func (e *StrategyEvaluator) Status() EvaluatorStatus {
	st := EvaluatorStatus{
		Symbol:   e.params.Symbol,
		Position: e.tracker.Snapshot(),
		Ladder:   ComputeLadder(e.params.ReferencePrice, e.params.EntryOffsets),
	}
	if snap, ok := e.market.Load(); ok {
		st.Market = &snap
	}

	e.mu.Lock()
	st.LastTick = e.lastTick
	st.LastAction = e.lastAction
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	e.mu.Unlock()
	return st
}

func tickErrorOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, domain.ErrSymbolNotFound):
		return "symbol_not_found"
	case errors.Is(err, domain.ErrUnprotectedPosition):
		return "unprotected"
	case errors.Is(err, domain.ErrOrderRejected):
		return "order_rejected"
	case errors.Is(err, domain.ErrNoMarkPrice):
		return "no_mark_price"
	}
	return "error"
}
