package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

// OrderSequencer places an entry order and then exactly one protective order:
// a take profit after a laddered limit entry, a stop loss after the initial
// market entry.
type OrderSequencer struct {
	exchange     domain.Exchange
	journal      domain.OrderRepository // optional
	params       domain.LadderParams
	orderTimeout time.Duration
	metrics      *Metrics
	logger       *zap.Logger
	newID        func() string
	timeNow      func() time.Time
}

func NewOrderSequencer(
	exchange domain.Exchange,
	journal domain.OrderRepository,
	params domain.LadderParams,
	orderTimeout time.Duration,
	metrics *Metrics,
	logger *zap.Logger,
) *OrderSequencer {
	return &OrderSequencer{
		exchange:     exchange,
		journal:      journal,
		params:       params,
		orderTimeout: orderTimeout,
		metrics:      metrics,
		logger:       logger.With(zap.String("symbol", params.Symbol)),
		newID:        uuid.NewString,
		timeNow:      time.Now,
	}
}

// BuildIntent resolves quantities and prices for an entry. A zero price means
// a market entry.
func (s *OrderSequencer) BuildIntent(symbol string, price decimal.Decimal, q domain.Quantizer) (domain.OrderIntent, error) {
	qty := q.FloorQuantity(s.params.Quantity)
	if !qty.IsPositive() {
		return domain.OrderIntent{}, fmt.Errorf("%w: quantity %s rounds to zero with step %s",
			domain.ErrOrderRejected, s.params.Quantity, q.StepSize)
	}

	intent := domain.OrderIntent{
		Symbol:   symbol,
		Side:     domain.SideBuy,
		Quantity: qty,
	}

	if price.IsPositive() {
		intent.PriceMode = domain.OrderTypeLimit
		intent.RungPrice = price
		intent.Price = q.FloorPrice(price)
		intent.Protect = domain.ProtectTakeProfit
		intent.ProtectTriggerPrice = q.FloorPrice(price.Mul(one.Add(s.params.TakeProfitPct)))
		return intent, nil
	}

	intent.PriceMode = domain.OrderTypeMarket
	intent.Protect = domain.ProtectStopLoss
	intent.ProtectTriggerPrice = q.FloorPrice(s.params.ReferencePrice.Mul(one.Add(s.params.StopLossPct)))
	return intent, nil
}

// Execute sends the entry and, once it is acknowledged, the protective order.
// If the entry fails nothing else is sent. If the protective order fails the
// result still carries the entry and the error wraps ErrUnprotectedPosition.
func (s *OrderSequencer) Execute(ctx context.Context, intent domain.OrderIntent) (*domain.PlacementResult, error) {
	entryReq := &domain.OrderRequest{
		Symbol:   intent.Symbol,
		Side:     intent.Side,
		Type:     intent.PriceMode,
		Quantity: intent.Quantity,
	}
	if intent.IsLaddered() {
		entryReq.Price = intent.Price
		entryReq.TimeInForce = domain.TimeInForceGTC
	}

	entry, err := s.submit(ctx, entryReq, domain.RoleEntry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s entry for %s: %w", domain.ErrOrderRejected, intent.PriceMode, intent.Symbol, err)
	}

	result := &domain.PlacementResult{Intent: intent, Entry: entry}

	protectReq, role := s.protectiveRequest(intent)
	if protectReq == nil {
		return result, nil
	}

	protective, err := s.submit(ctx, protectReq, role)
	if err != nil {
		s.metrics.Unprotected(intent.Symbol)
		s.logger.Error("UNPROTECTED POSITION: entry placed but protective order failed",
			zap.String("entry_order_id", entry.OrderID),
			zap.String("protective_type", string(protectReq.Type)),
			zap.Stringer("trigger_price", protectReq.StopPrice),
			zap.Error(err))
		return result, fmt.Errorf("%w: %w: %s for %s: %w",
			domain.ErrUnprotectedPosition, domain.ErrOrderRejected, protectReq.Type, intent.Symbol, err)
	}

	result.Protective = protective
	return result, nil
}

func (s *OrderSequencer) protectiveRequest(intent domain.OrderIntent) (*domain.OrderRequest, domain.OrderRole) {
	switch intent.Protect {
	case domain.ProtectTakeProfit:
		return &domain.OrderRequest{
			Symbol:    intent.Symbol,
			Side:      domain.SideSell,
			Type:      domain.OrderTypeTakeProfitMarket,
			Quantity:  intent.Quantity,
			StopPrice: intent.ProtectTriggerPrice,
		}, domain.RoleTakeProfit
	case domain.ProtectStopLoss:
		// No quantity: the stop closes whatever is open.
		return &domain.OrderRequest{
			Symbol:        intent.Symbol,
			Side:          domain.SideSell,
			Type:          domain.OrderTypeStopMarket,
			StopPrice:     intent.ProtectTriggerPrice,
			ClosePosition: true,
		}, domain.RoleStopLoss
	}
	return nil, ""
}

// PlaceLadderedEntry builds the intent for price and executes it.
func (s *OrderSequencer) PlaceLadderedEntry(ctx context.Context, symbol string, price decimal.Decimal, q domain.Quantizer) (*domain.PlacementResult, error) {
	intent, err := s.BuildIntent(symbol, price, q)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, intent)
}

// PlaceOrder sends a single unprotected order: LIMIT GTC when price is set,
// MARKET otherwise.
func (s *OrderSequencer) PlaceOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal, q domain.Quantizer) (*domain.OrderRecord, error) {
	req := &domain.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     domain.OrderTypeMarket,
		Quantity: q.FloorQuantity(qty),
	}
	if price.IsPositive() {
		req.Type = domain.OrderTypeLimit
		req.Price = q.FloorPrice(price)
		req.TimeInForce = domain.TimeInForceGTC
	}

	rec, err := s.submit(ctx, req, domain.RoleManual)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
	}
	return rec, nil
}

func (s *OrderSequencer) submit(ctx context.Context, req *domain.OrderRequest, role domain.OrderRole) (*domain.OrderRecord, error) {
	if s.orderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.orderTimeout)
		defer cancel()
	}

	req.ClientOrderID = s.newID()
	rec, err := s.exchange.NewOrder(ctx, req)
	if err != nil {
		s.logger.Error("Order failed",
			zap.String("role", string(role)),
			zap.String("type", string(req.Type)),
			zap.String("client_order_id", req.ClientOrderID),
			zap.Error(err))
		return nil, err
	}

	rec.Role = role
	if rec.ClientOrderID == "" {
		rec.ClientOrderID = req.ClientOrderID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.timeNow()
	}

	s.metrics.Order(req.Symbol, string(role))
	s.logger.Info("Order placed",
		zap.String("role", string(role)),
		zap.String("type", string(req.Type)),
		zap.String("side", string(req.Side)),
		zap.String("order_id", rec.OrderID),
		zap.Stringer("price", req.Price),
		zap.Stringer("stop_price", req.StopPrice),
		zap.Stringer("quantity", req.Quantity))

	if s.journal != nil {
		if err := s.journal.SaveOrder(ctx, rec); err != nil {
			s.logger.Error("Failed to journal order", zap.String("order_id", rec.OrderID), zap.Error(err))
		}
	}
	return rec, nil
}
