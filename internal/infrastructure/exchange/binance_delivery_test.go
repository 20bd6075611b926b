package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

type fakeDapi struct {
	mu     sync.Mutex
	orders []url.Values
}

func (f *fakeDapi) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/dapi/v1/exchangeInfo", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbols":[{"symbol":"BTCUSD_PERP","pair":"BTCUSD","contractStatus":"TRADING","filters":[
			{"filterType":"PRICE_FILTER","minPrice":"1000","maxPrice":"4520958","tickSize":"0.1"},
			{"filterType":"LOT_SIZE","stepSize":"1","maxQty":"1000000","minQty":"1"},
			{"filterType":"PERCENT_PRICE","multiplierUp":"1.0500","multiplierDown":"0.9500"}]}]}`))
	})
	mux.HandleFunc("/dapi/v1/account", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"assets":[{"asset":"BTC","walletBalance":"2.5","availableBalance":"1.25"}],"positions":[]}`))
	})
	mux.HandleFunc("/dapi/v1/order", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		f.mu.Lock()
		f.orders = append(f.orders, r.Form)
		f.mu.Unlock()

		if r.Form.Get("type") == "STOP_MARKET" && r.Form.Get("stopPrice") == "1" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-2021,"msg":"Order would immediately trigger."}`))
			return
		}
		w.Write([]byte(`{"orderId":22542179,"clientOrderId":"` + r.Form.Get("newClientOrderId") + `",
			"symbol":"BTCUSD_PERP","side":"` + r.Form.Get("side") + `","type":"` + r.Form.Get("type") + `",
			"status":"NEW","price":"` + r.Form.Get("price") + `","avgPrice":"0.0","origQty":"` + r.Form.Get("quantity") + `",
			"stopPrice":"` + r.Form.Get("stopPrice") + `","updateTime":1566818724722}`))
	})
	return mux
}

func newTestAdapter(t *testing.T) (*BinanceDeliveryAdapter, *fakeDapi) {
	t.Helper()
	f := &fakeDapi{}
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewBinanceDeliveryAdapter("key", "secret", srv.URL, zap.NewNop()), f
}

func TestBinanceDeliveryAdapter_GetExchangeInfo(t *testing.T) {
	a, _ := newTestAdapter(t)

	info, err := a.GetExchangeInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, info.Symbols, 1)

	s := info.Symbols[0]
	assert.Equal(t, "BTCUSD_PERP", s.Symbol)
	require.Len(t, s.Filters, 2)
	assert.Equal(t, domain.FilterPriceFilter, s.Filters[0].FilterType)
	assert.True(t, s.Filters[0].TickSize.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, domain.FilterLotSize, s.Filters[1].FilterType)
	assert.True(t, s.Filters[1].StepSize.Equal(decimal.NewFromInt(1)))
}

func TestBinanceDeliveryAdapter_GetAccountInformation(t *testing.T) {
	a, _ := newTestAdapter(t)

	acc, err := a.GetAccountInformation(context.Background())
	require.NoError(t, err)
	require.Len(t, acc.Assets, 1)
	assert.Equal(t, "BTC", acc.Assets[0].Asset)
	assert.True(t, acc.Assets[0].AvailableBalance.Equal(decimal.RequireFromString("1.25")))
	assert.True(t, acc.Assets[0].WalletBalance.Equal(decimal.RequireFromString("2.5")))
}

func TestBinanceDeliveryAdapter_NewOrder(t *testing.T) {
	a, f := newTestAdapter(t)
	ctx := context.Background()

	rec, err := a.NewOrder(ctx, &domain.OrderRequest{
		Symbol:        "BTCUSD_PERP",
		Side:          domain.SideBuy,
		Type:          domain.OrderTypeLimit,
		Quantity:      decimal.NewFromInt(1),
		Price:         decimal.RequireFromString("104000"),
		TimeInForce:   domain.TimeInForceGTC,
		ClientOrderID: "entry-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "22542179", rec.OrderID)
	assert.Equal(t, "entry-1", rec.ClientOrderID)
	assert.Equal(t, domain.OrderTypeLimit, rec.Type)
	assert.True(t, rec.Price.Equal(decimal.RequireFromString("104000")))
	assert.False(t, rec.CreatedAt.IsZero())

	_, err = a.NewOrder(ctx, &domain.OrderRequest{
		Symbol:        "BTCUSD_PERP",
		Side:          domain.SideSell,
		Type:          domain.OrderTypeStopMarket,
		StopPrice:     decimal.RequireFromString("98000"),
		ClosePosition: true,
	})
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.orders, 2)
	assert.Equal(t, "GTC", f.orders[0].Get("timeInForce"))
	assert.Equal(t, "104000", f.orders[0].Get("price"))
	assert.Equal(t, "1", f.orders[0].Get("quantity"))
	assert.Equal(t, "true", f.orders[1].Get("closePosition"))
	assert.Empty(t, f.orders[1].Get("quantity"))
	assert.Empty(t, f.orders[1].Get("price"))
}

func TestBinanceDeliveryAdapter_NewOrderAPIError(t *testing.T) {
	a, _ := newTestAdapter(t)

	_, err := a.NewOrder(context.Background(), &domain.OrderRequest{
		Symbol:        "BTCUSD_PERP",
		Side:          domain.SideSell,
		Type:          domain.OrderTypeStopMarket,
		StopPrice:     decimal.NewFromInt(1),
		ClosePosition: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-2021")
	assert.Contains(t, err.Error(), "immediately trigger")
}
