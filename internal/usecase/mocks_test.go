package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

// MockExchange is a testify mock of domain.Exchange.
type MockExchange struct {
	mock.Mock
}

func (m *MockExchange) NewOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderRecord, error) {
	args := m.Called(ctx, req)
	rec, _ := args.Get(0).(*domain.OrderRecord)
	return rec, args.Error(1)
}

func (m *MockExchange) GetExchangeInfo(ctx context.Context) (*domain.ExchangeInfo, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(*domain.ExchangeInfo)
	return info, args.Error(1)
}

func (m *MockExchange) GetAccountInformation(ctx context.Context) (*domain.AccountInfo, error) {
	args := m.Called(ctx)
	acc, _ := args.Get(0).(*domain.AccountInfo)
	return acc, args.Error(1)
}

// FakeExchange records every order and acknowledges it, unless an error is
// queued for that order type.
type FakeExchange struct {
	mu        sync.Mutex
	Orders    []*domain.OrderRequest
	FailTypes map[domain.OrderType]error
	Balance   decimal.Decimal
	Info      *domain.ExchangeInfo
	FillPrice decimal.Decimal
}

func NewFakeExchange() *FakeExchange {
	return &FakeExchange{
		FailTypes: make(map[domain.OrderType]error),
		Balance:   decimal.NewFromInt(5),
		Info: &domain.ExchangeInfo{Symbols: []domain.SymbolInfo{{
			Symbol: "BTCUSD_PERP",
			Status: "TRADING",
			Filters: []domain.SymbolFilter{
				{FilterType: domain.FilterPriceFilter, TickSize: decimal.RequireFromString("0.1")},
				{FilterType: domain.FilterLotSize, StepSize: decimal.NewFromInt(1)},
			},
		}}},
	}
}

func (f *FakeExchange) NewOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FailTypes[req.Type]; err != nil {
		return nil, err
	}
	cp := *req
	f.Orders = append(f.Orders, &cp)
	rec := &domain.OrderRecord{
		OrderID:   fmt.Sprintf("%d", len(f.Orders)),
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Status:    "NEW",
		Price:     req.Price,
		StopPrice: req.StopPrice,
		Quantity:  req.Quantity,
	}
	if req.Type == domain.OrderTypeMarket {
		rec.Status = "FILLED"
		rec.AvgPrice = f.FillPrice
	}
	return rec, nil
}

func (f *FakeExchange) GetExchangeInfo(ctx context.Context) (*domain.ExchangeInfo, error) {
	return f.Info, nil
}

func (f *FakeExchange) GetAccountInformation(ctx context.Context) (*domain.AccountInfo, error) {
	return &domain.AccountInfo{Assets: []domain.AssetBalance{
		{Asset: "USDT", AvailableBalance: decimal.NewFromInt(1000)},
		{Asset: "BTC", AvailableBalance: f.Balance},
	}}, nil
}

func (f *FakeExchange) OrderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Orders)
}

func (f *FakeExchange) OrdersCopy() []*domain.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.OrderRequest, len(f.Orders))
	copy(out, f.Orders)
	return out
}

// MemJournal is an in-memory domain.OrderRepository.
type MemJournal struct {
	mu     sync.Mutex
	Orders []*domain.OrderRecord
}

func (j *MemJournal) SaveOrder(ctx context.Context, order *domain.OrderRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Orders = append(j.Orders, order)
	return nil
}

func (j *MemJournal) ListOrders(ctx context.Context, symbol string, limit int) ([]*domain.OrderRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Orders, nil
}
