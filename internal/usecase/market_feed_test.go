package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
	"github.com/vitos/crypto_ladder_entry/internal/usecase"
)

const perpTick = `{"e":"markPriceUpdate","E":1700000000000,"s":"BTCUSD_PERP","p":"104500.1","P":"104480.2","r":"0.00010000","T":1700006400000}`

func TestNormalizeTick_FullPayload(t *testing.T) {
	snap, err := usecase.NormalizeTick([]byte(perpTick), "BTCUSD_PERP", nil)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSD_PERP", snap.Symbol)
	assert.True(t, snap.MarkPrice.Equal(dec("104500.1")))
	assert.True(t, snap.IndexPrice.Equal(dec("104480.2")))
	assert.True(t, snap.FundingRate.Equal(dec("0.0001")))
	require.NotNil(t, snap.NextFundingTime)
	assert.Equal(t, int64(1700006400000), snap.NextFundingTime.UnixMilli())
}

func TestNormalizeTick_MissingOptionalFieldsKeepPrevious(t *testing.T) {
	next := time.UnixMilli(1700006400000).UTC()
	prev := &domain.MarketSnapshot{
		MarkPrice:       dec("100000"),
		IndexPrice:      dec("99990"),
		FundingRate:     dec("0.0002"),
		NextFundingTime: &next,
	}

	// delivery contracts send an empty funding rate and T=0
	payload := `{"e":"markPriceUpdate","s":"BTCUSD_251226","p":"101000","r":"","T":0}`
	snap, err := usecase.NormalizeTick([]byte(payload), "BTCUSD_251226", prev)
	require.NoError(t, err)

	assert.True(t, snap.MarkPrice.Equal(dec("101000")))
	assert.True(t, snap.IndexPrice.Equal(dec("99990")))
	assert.True(t, snap.FundingRate.Equal(dec("0.0002")))
	assert.Equal(t, &next, snap.NextFundingTime)
}

func TestNormalizeTick_ArrayPayloadPicksSymbol(t *testing.T) {
	payload := `[{"s":"BTCUSD_251226","p":"1"},{"s":"BTCUSD_PERP","p":"104000"}]`
	snap, err := usecase.NormalizeTick([]byte(payload), "BTCUSD_PERP", nil)
	require.NoError(t, err)
	assert.True(t, snap.MarkPrice.Equal(dec("104000")))
}

func TestNormalizeTick_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `mark=1`},
		{"missing mark price", `{"s":"BTCUSD_PERP","P":"1"}`},
		{"mark price not a number", `{"s":"BTCUSD_PERP","p":"abc"}`},
		{"zero mark price", `{"s":"BTCUSD_PERP","p":"0"}`},
		{"bad index price", `{"s":"BTCUSD_PERP","p":"1","P":"x"}`},
		{"bad funding time", `{"s":"BTCUSD_PERP","p":"1","T":"soon"}`},
		{"symbol absent from array", `[{"s":"ETHUSD_PERP","p":"1"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := usecase.NormalizeTick([]byte(tt.payload), "BTCUSD_PERP", nil)
			assert.True(t, errors.Is(err, domain.ErrFeedParse), "got %v", err)
		})
	}
}

func TestSnapshotCell(t *testing.T) {
	var cell usecase.SnapshotCell

	_, ok := cell.Load()
	assert.False(t, ok)

	cell.Store(domain.MarketSnapshot{MarkPrice: dec("1")})
	cell.Store(domain.MarketSnapshot{MarkPrice: dec("2")})

	snap, ok := cell.Load()
	require.True(t, ok)
	assert.True(t, snap.MarkPrice.Equal(dec("2")))
}

type fakeFeed struct {
	payloads []string
}

func (f *fakeFeed) Subscribe(ctx context.Context, symbol string, handler func([]byte)) error {
	for _, p := range f.payloads {
		handler([]byte(p))
	}
	return nil
}

func TestMarketFeed_SkipsMalformedTicks(t *testing.T) {
	feed := &fakeFeed{payloads: []string{
		`{"s":"BTCUSD_PERP","p":"104000","P":"103990"}`,
		`{"s":"BTCUSD_PERP","p":"oops"}`,
	}}
	cell := &usecase.SnapshotCell{}
	mf := usecase.NewMarketFeed("BTCUSD_PERP", feed, cell, usecase.NewMetrics(prometheus.NewRegistry()), zap.NewNop())

	require.NoError(t, mf.Run(context.Background()))

	snap, ok := cell.Load()
	require.True(t, ok)
	assert.True(t, snap.MarkPrice.Equal(dec("104000")))
}

func TestMarketFeed_ConcurrentReaders(t *testing.T) {
	cell := &usecase.SnapshotCell{}
	mf := usecase.NewMarketFeed("BTCUSD_PERP", &fakeFeed{}, cell, nil, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			mf.HandlePayload([]byte(perpTick))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if s, ok := cell.Load(); ok {
				assert.True(t, s.MarkPrice.Equal(dec("104500.1")))
			}
		}
	}()
	wg.Wait()
}
