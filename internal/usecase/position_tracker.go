package usecase

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

// PositionTracker holds the ladder rung last entered for one symbol.
//
// lastEntryPrice is zero or a rung price and never decreases. The initial
// market entry is tracked separately so the next tick does not treat the
// symbol as flat again while lastEntryPrice is still zero.
type PositionTracker struct {
	mu             sync.RWMutex
	lastEntryPrice decimal.Decimal
	marketEntered  bool
	marketFill     decimal.Decimal
	updatedAt      time.Time
	timeNow        func() time.Time // For testing
}

func NewPositionTracker() *PositionTracker {
	return &PositionTracker{timeNow: time.Now}
}

func (p *PositionTracker) CurrentEntryPrice() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastEntryPrice
}

func (p *PositionTracker) Phase() domain.PositionPhase {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.phaseLocked()
}

func (p *PositionTracker) phaseLocked() domain.PositionPhase {
	if !p.marketEntered && p.lastEntryPrice.IsZero() {
		return domain.PhaseFlat
	}
	return domain.PhaseLaddered
}

// RecordEntry stores a confirmed laddered entry. Prices below the current
// entry are ignored and reported as false.
func (p *PositionTracker) RecordEntry(price decimal.Decimal) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if price.LessThanOrEqual(p.lastEntryPrice) {
		return false
	}
	p.lastEntryPrice = price
	p.updatedAt = p.timeNow()
	return true
}

// RecordMarketEntry marks the unladdered entry as done. fill is kept for
// reporting only.
func (p *PositionTracker) RecordMarketEntry(fill decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marketEntered = true
	p.marketFill = fill
	p.updatedAt = p.timeNow()
}

// Snapshot returns a copy of the tracker state.
func (p *PositionTracker) Snapshot() domain.PositionState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return domain.PositionState{
		Phase:          p.phaseLocked(),
		LastEntryPrice: p.lastEntryPrice,
		MarketFill:     p.marketFill,
		UpdatedAt:      p.updatedAt,
	}
}
