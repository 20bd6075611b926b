package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderType string

const (
	OrderTypeMarket           OrderType = "MARKET"
	OrderTypeLimit            OrderType = "LIMIT"
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
	OrderTypeStopMarket       OrderType = "STOP_MARKET"
)

const TimeInForceGTC = "GTC"

// Protect is the kind of protective order attached to an entry.
type Protect string

const (
	ProtectNone       Protect = ""
	ProtectTakeProfit Protect = "TAKE_PROFIT"
	ProtectStopLoss   Protect = "STOP_LOSS"
)

// OrderRole tags journal rows so entries and their protective orders can be told apart.
type OrderRole string

const (
	RoleEntry      OrderRole = "entry"
	RoleTakeProfit OrderRole = "take_profit"
	RoleStopLoss   OrderRole = "stop_loss"
	RoleManual     OrderRole = "manual"
)

// OrderIntent describes an entry and its protective order before anything is sent.
// Price is zero for a market entry.
type OrderIntent struct {
	Symbol              string
	Side                Side
	PriceMode           OrderType
	Price               decimal.Decimal
	RungPrice           decimal.Decimal
	Quantity            decimal.Decimal
	Protect             Protect
	ProtectTriggerPrice decimal.Decimal
}

func (i OrderIntent) IsLaddered() bool {
	return i.PriceMode == OrderTypeLimit
}

// OrderRequest maps to a single newOrder call. Zero decimals are omitted.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	StopPrice     decimal.Decimal
	TimeInForce   string
	ClosePosition bool
	ClientOrderID string
}

// OrderRecord is the exchange's acknowledgement of a placed order.
type OrderRecord struct {
	OrderID       string          `json:"order_id"`
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Side          Side            `json:"side"`
	Type          OrderType       `json:"type"`
	Role          OrderRole       `json:"role"`
	Status        string          `json:"status"`
	Price         decimal.Decimal `json:"price"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	Quantity      decimal.Decimal `json:"quantity"`
	CreatedAt     time.Time       `json:"created_at"`
}

// PlacementResult is what the sequencer returns for an entry attempt.
// Protective is nil when the protective order was not placed.
type PlacementResult struct {
	Intent     OrderIntent
	Entry      *OrderRecord
	Protective *OrderRecord
}
