package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LadderParams describes the entry ladder traded on one symbol.
type LadderParams struct {
	Symbol         string
	Asset          string            // margin asset checked by the balance gate
	ReferencePrice decimal.Decimal   // origin the rungs are computed from
	EntryOffsets   []decimal.Decimal // ascending, e.g. 0.02 means +2%
	TakeProfitPct  decimal.Decimal   // applied to the rung price, may be negative
	StopLossPct    decimal.Decimal   // applied to the reference price
	Quantity       decimal.Decimal   // raw quantity before LOT_SIZE rounding
	MinBalance     decimal.Decimal
	Interval       time.Duration
}

type PositionPhase string

const (
	PhaseFlat     PositionPhase = "FLAT"
	PhaseLaddered PositionPhase = "LADDERED"
)

// PositionState is a read-only copy of the tracker state.
type PositionState struct {
	Phase          PositionPhase   `json:"phase"`
	LastEntryPrice decimal.Decimal `json:"last_entry_price"`
	MarketFill     decimal.Decimal `json:"market_fill_price"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
