package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics exposes the engine counters:
//
//	ladder_ticks_total{symbol,outcome}     evaluator invocations by outcome
//	ladder_orders_total{symbol,role}       orders acknowledged by the exchange
//	ladder_unprotected_entries_total{symbol}
//	ladder_feed_errors_total{symbol}       mark price payloads skipped
//	ladder_entry_price{symbol}             last entered rung
//	ladder_mark_price{symbol}              latest mark price
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ticks       *prometheus.CounterVec
	orders      *prometheus.CounterVec
	unprotected *prometheus.CounterVec
	feedErrors  *prometheus.CounterVec
	entryPrice  *prometheus.GaugeVec
	markPrice   *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ladder_ticks_total",
			Help: "Evaluator ticks by outcome",
		}, []string{"symbol", "outcome"}),
		orders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ladder_orders_total",
			Help: "Orders placed",
		}, []string{"symbol", "role"}),
		unprotected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ladder_unprotected_entries_total",
			Help: "Entries whose protective order failed",
		}, []string{"symbol"}),
		feedErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ladder_feed_errors_total",
			Help: "Mark price payloads that could not be parsed",
		}, []string{"symbol"}),
		entryPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ladder_entry_price",
			Help: "Last entered ladder rung",
		}, []string{"symbol"}),
		markPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ladder_mark_price",
			Help: "Latest mark price",
		}, []string{"symbol"}),
	}
}

func (m *Metrics) Tick(symbol, outcome string) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(symbol, outcome).Inc()
}

func (m *Metrics) Order(symbol, role string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(symbol, role).Inc()
}

func (m *Metrics) Unprotected(symbol string) {
	if m == nil {
		return
	}
	m.unprotected.WithLabelValues(symbol).Inc()
}

func (m *Metrics) FeedError(symbol string) {
	if m == nil {
		return
	}
	m.feedErrors.WithLabelValues(symbol).Inc()
}

func (m *Metrics) EntryPrice(symbol string, price decimal.Decimal) {
	if m == nil {
		return
	}
	m.entryPrice.WithLabelValues(symbol).Set(price.InexactFloat64())
}

func (m *Metrics) MarkPrice(symbol string, price decimal.Decimal) {
	if m == nil {
		return
	}
	m.markPrice.WithLabelValues(symbol).Set(price.InexactFloat64())
}
