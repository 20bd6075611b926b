package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is the latest mark price update for a symbol.
// It is replaced wholesale on every tick.
type MarketSnapshot struct {
	Symbol          string          `json:"symbol"`
	MarkPrice       decimal.Decimal `json:"mark_price"`
	IndexPrice      decimal.Decimal `json:"index_price"`
	FundingRate     decimal.Decimal `json:"funding_rate"`
	NextFundingTime *time.Time      `json:"next_funding_time,omitempty"`
	ReceivedAt      time.Time       `json:"received_at"`
}

const (
	FilterLotSize     = "LOT_SIZE"
	FilterPriceFilter = "PRICE_FILTER"
)

type SymbolFilter struct {
	FilterType string
	StepSize   decimal.Decimal
	TickSize   decimal.Decimal
}

// SymbolInfo is the part of the exchange metadata the engine cares about.
type SymbolInfo struct {
	Symbol  string
	Status  string
	Filters []SymbolFilter
}

type ExchangeInfo struct {
	Symbols []SymbolInfo
}

type AssetBalance struct {
	Asset            string
	WalletBalance    decimal.Decimal
	AvailableBalance decimal.Decimal
}

type AccountInfo struct {
	Assets []AssetBalance
}

// Quantizer rounds prices and quantities down to the exchange increments.
type Quantizer struct {
	StepSize decimal.Decimal
	TickSize decimal.Decimal
}

func (q Quantizer) FloorQuantity(qty decimal.Decimal) decimal.Decimal {
	return floorTo(qty, q.StepSize)
}

func (q Quantizer) FloorPrice(price decimal.Decimal) decimal.Decimal {
	return floorTo(price, q.TickSize)
}

// floorTo returns floor(v/inc)*inc. A non-positive increment leaves v untouched.
func floorTo(v, inc decimal.Decimal) decimal.Decimal {
	if !inc.IsPositive() {
		return v
	}
	q, r := v.QuoRem(inc, 0)
	if r.IsNegative() {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q.Mul(inc)
}
