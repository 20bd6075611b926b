package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/delivery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

const (
	BinanceDeliveryBaseURL        = "https://dapi.binance.com"
	BinanceDeliveryWSURL          = "wss://dstream.binance.com"
	BinanceDeliveryTestnetBaseURL = "https://testnet.binancefuture.com"
	BinanceDeliveryTestnetWSURL   = "wss://dstream.binancefuture.com"
)

// BinanceDeliveryAdapter talks to the Binance COIN-M futures REST API.
type BinanceDeliveryAdapter struct {
	client *delivery.Client
	logger *zap.Logger
}

func NewBinanceDeliveryAdapter(apiKey, apiSecret, baseURL string, logger *zap.Logger) *BinanceDeliveryAdapter {
	client := delivery.NewClient(apiKey, apiSecret)
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &BinanceDeliveryAdapter{
		client: client,
		logger: logger,
	}
}

func (b *BinanceDeliveryAdapter) NewOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderRecord, error) {
	svc := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(delivery.SideType(req.Side)).
		Type(delivery.OrderType(req.Type))

	if req.TimeInForce != "" {
		svc = svc.TimeInForce(delivery.TimeInForceType(req.TimeInForce))
	}
	if req.ClosePosition {
		svc = svc.ClosePosition(true)
	} else {
		svc = svc.Quantity(req.Quantity.String())
	}
	if req.Price.IsPositive() {
		svc = svc.Price(req.Price.String())
	}
	if req.StopPrice.IsPositive() {
		svc = svc.StopPrice(req.StopPrice.String())
	}
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		b.logger.Debug("Binance newOrder failed",
			zap.String("symbol", req.Symbol),
			zap.String("type", string(req.Type)),
			zap.Error(err))
		return nil, wrapAPIError("create order", err)
	}

	rec := &domain.OrderRecord{
		OrderID:       strconv.FormatInt(res.OrderID, 10),
		ClientOrderID: res.ClientOrderID,
		Symbol:        res.Symbol,
		Side:          domain.Side(res.Side),
		Type:          domain.OrderType(res.Type),
		Status:        string(res.Status),
		Price:         parseDecimal(res.Price),
		AvgPrice:      parseDecimal(res.AvgPrice),
		StopPrice:     parseDecimal(res.StopPrice),
		Quantity:      parseDecimal(res.OrigQuantity),
	}
	if res.UpdateTime > 0 {
		rec.CreatedAt = time.UnixMilli(res.UpdateTime)
	}
	return rec, nil
}

func (b *BinanceDeliveryAdapter) GetExchangeInfo(ctx context.Context) (*domain.ExchangeInfo, error) {
	res, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, wrapAPIError("exchange info", err)
	}

	info := &domain.ExchangeInfo{Symbols: make([]domain.SymbolInfo, 0, len(res.Symbols))}
	for _, s := range res.Symbols {
		si := domain.SymbolInfo{Symbol: s.Symbol}
		for _, f := range s.Filters {
			filterType, _ := f["filterType"].(string)
			switch filterType {
			case domain.FilterLotSize:
				si.Filters = append(si.Filters, domain.SymbolFilter{
					FilterType: filterType,
					StepSize:   filterDecimal(f, "stepSize"),
				})
			case domain.FilterPriceFilter:
				si.Filters = append(si.Filters, domain.SymbolFilter{
					FilterType: filterType,
					TickSize:   filterDecimal(f, "tickSize"),
				})
			}
		}
		info.Symbols = append(info.Symbols, si)
	}
	return info, nil
}

func (b *BinanceDeliveryAdapter) GetAccountInformation(ctx context.Context) (*domain.AccountInfo, error) {
	res, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, wrapAPIError("account", err)
	}

	acc := &domain.AccountInfo{Assets: make([]domain.AssetBalance, 0, len(res.Assets))}
	for _, a := range res.Assets {
		acc.Assets = append(acc.Assets, domain.AssetBalance{
			Asset:            a.Asset,
			WalletBalance:    parseDecimal(a.WalletBalance),
			AvailableBalance: parseDecimal(a.AvailableBalance),
		})
	}
	return acc, nil
}

// wrapAPIError keeps the exchange's error code in the message.
func wrapAPIError(op string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: binance error %d: %s: %w", op, apiErr.Code, apiErr.Message, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func filterDecimal(f map[string]interface{}, key string) decimal.Decimal {
	s, _ := f[key].(string)
	return parseDecimal(s)
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
