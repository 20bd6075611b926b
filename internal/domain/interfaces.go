package domain

import (
	"context"
)

// Exchange defines the interface for interacting with a futures venue.
type Exchange interface {
	NewOrder(ctx context.Context, req *OrderRequest) (*OrderRecord, error)
	GetExchangeInfo(ctx context.Context) (*ExchangeInfo, error)
	GetAccountInformation(ctx context.Context) (*AccountInfo, error)
}

// MarkPriceFeed pushes raw mark price payloads for a symbol until ctx is done.
type MarkPriceFeed interface {
	Subscribe(ctx context.Context, symbol string, handler func(payload []byte)) error
}

// OrderRepository is an append-only journal of placed orders.
type OrderRepository interface {
	SaveOrder(ctx context.Context, order *OrderRecord) error
	ListOrders(ctx context.Context, symbol string, limit int) ([]*OrderRecord, error)
}
