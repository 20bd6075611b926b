package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

// markPriceEvent is the markPriceUpdate payload pushed by the futures stream.
type markPriceEvent struct {
	Event           string          `json:"e"`
	EventTime       int64           `json:"E"`
	Symbol          string          `json:"s"`
	MarkPrice       *string         `json:"p"`
	IndexPrice      *string         `json:"P"`
	FundingRate     *string         `json:"r"`
	NextFundingTime json.RawMessage `json:"T"`
}

// NormalizeTick turns a raw mark price payload into a snapshot. The mark price
// is required; index price, funding rate and next funding time fall back to
// prev when they are absent or empty. Pair streams deliver an array, in which
// case the entry for symbol is used.
func NormalizeTick(payload []byte, symbol string, prev *domain.MarketSnapshot) (domain.MarketSnapshot, error) {
	ev, err := decodeMarkPriceEvent(payload, symbol)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}

	snap := domain.MarketSnapshot{Symbol: symbol, ReceivedAt: time.Now()}
	if ev.Symbol != "" {
		snap.Symbol = ev.Symbol
	}
	if prev != nil {
		snap.IndexPrice = prev.IndexPrice
		snap.FundingRate = prev.FundingRate
		snap.NextFundingTime = prev.NextFundingTime
	}

	if ev.MarkPrice == nil || strings.TrimSpace(*ev.MarkPrice) == "" {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: missing mark price", domain.ErrFeedParse)
	}
	if snap.MarkPrice, err = decimal.NewFromString(*ev.MarkPrice); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: mark price %q: %v", domain.ErrFeedParse, *ev.MarkPrice, err)
	}
	if !snap.MarkPrice.IsPositive() {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: mark price %s", domain.ErrFeedParse, snap.MarkPrice)
	}

	if v, ok, err := optionalDecimal(ev.IndexPrice); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: index price: %v", domain.ErrFeedParse, err)
	} else if ok {
		snap.IndexPrice = v
	}
	if v, ok, err := optionalDecimal(ev.FundingRate); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("%w: funding rate: %v", domain.ErrFeedParse, err)
	} else if ok {
		snap.FundingRate = v
	}

	if len(ev.NextFundingTime) > 0 && string(ev.NextFundingTime) != "null" {
		var ms int64
		if err := json.Unmarshal(ev.NextFundingTime, &ms); err != nil {
			return domain.MarketSnapshot{}, fmt.Errorf("%w: next funding time: %v", domain.ErrFeedParse, err)
		}
		// delivery contracts report 0, meaning no funding
		if ms > 0 {
			t := time.UnixMilli(ms).UTC()
			snap.NextFundingTime = &t
		}
	}

	return snap, nil
}

func decodeMarkPriceEvent(payload []byte, symbol string) (*markPriceEvent, error) {
	trimmed := strings.TrimSpace(string(payload))
	if strings.HasPrefix(trimmed, "[") {
		var events []markPriceEvent
		if err := json.Unmarshal(payload, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFeedParse, err)
		}
		for i := range events {
			if events[i].Symbol == symbol {
				return &events[i], nil
			}
		}
		return nil, fmt.Errorf("%w: no entry for %s", domain.ErrFeedParse, symbol)
	}

	var ev markPriceEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedParse, err)
	}
	return &ev, nil
}

func optionalDecimal(s *string) (decimal.Decimal, bool, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return decimal.Zero, false, nil
	}
	v, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.Zero, false, err
	}
	return v, true, nil
}

// SnapshotCell holds the latest snapshot. Writers replace it atomically and
// readers never block.
type SnapshotCell struct {
	p atomic.Pointer[domain.MarketSnapshot]
}

func (c *SnapshotCell) Store(s domain.MarketSnapshot) {
	c.p.Store(&s)
}

// Load returns a copy of the latest snapshot, or false before the first tick.
func (c *SnapshotCell) Load() (domain.MarketSnapshot, bool) {
	s := c.p.Load()
	if s == nil {
		return domain.MarketSnapshot{}, false
	}
	return *s, true
}

// MarketFeed keeps a SnapshotCell current from a MarkPriceFeed.
type MarketFeed struct {
	symbol  string
	feed    domain.MarkPriceFeed
	cell    *SnapshotCell
	metrics *Metrics
	logger  *zap.Logger
}

func NewMarketFeed(symbol string, feed domain.MarkPriceFeed, cell *SnapshotCell, metrics *Metrics, logger *zap.Logger) *MarketFeed {
	return &MarketFeed{
		symbol:  symbol,
		feed:    feed,
		cell:    cell,
		metrics: metrics,
		logger:  logger.With(zap.String("symbol", symbol)),
	}
}

// HandlePayload parses one payload and publishes it. Malformed payloads are
// logged and skipped; the previous snapshot stays in place.
func (f *MarketFeed) HandlePayload(payload []byte) {
	var prev *domain.MarketSnapshot
	if s, ok := f.cell.Load(); ok {
		prev = &s
	}

	snap, err := NormalizeTick(payload, f.symbol, prev)
	if err != nil {
		f.metrics.FeedError(f.symbol)
		f.logger.Warn("Skipping mark price tick", zap.Error(err))
		return
	}

	f.cell.Store(snap)
	f.metrics.MarkPrice(f.symbol, snap.MarkPrice)
	f.logger.Debug("Mark price update",
		zap.Stringer("mark_price", snap.MarkPrice),
		zap.Stringer("index_price", snap.IndexPrice),
		zap.Stringer("funding_rate", snap.FundingRate))
}

// Run subscribes and blocks until ctx is done or the feed gives up.
func (f *MarketFeed) Run(ctx context.Context) error {
	f.logger.Info("Starting mark price feed")
	return f.feed.Subscribe(ctx, f.symbol, f.HandlePayload)
}
