package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
)

const defaultListLimit = 100

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	// Decimals are stored as TEXT so prices round-trip exactly.
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id TEXT NOT NULL,
			client_order_id TEXT NOT NULL DEFAULT '',
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			type TEXT NOT NULL,
			role TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			price TEXT NOT NULL DEFAULT '0',
			avg_price TEXT NOT NULL DEFAULT '0',
			stop_price TEXT NOT NULL DEFAULT '0',
			quantity TEXT NOT NULL DEFAULT '0',
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_symbol ON orders(symbol, id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// OrderRepository Implementation

func (s *SQLiteStore) SaveOrder(ctx context.Context, order *domain.OrderRecord) error {
	createdAt := order.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	query := `INSERT INTO orders (order_id, client_order_id, symbol, side, type, role, status, price, avg_price, stop_price, quantity, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		order.OrderID, order.ClientOrderID, order.Symbol, string(order.Side), string(order.Type), string(order.Role), order.Status,
		order.Price.String(), order.AvgPrice.String(), order.StopPrice.String(), order.Quantity.String(), createdAt.UTC())
	return err
}

// ListOrders returns the newest orders first. An empty symbol matches all.
func (s *SQLiteStore) ListOrders(ctx context.Context, symbol string, limit int) ([]*domain.OrderRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT order_id, client_order_id, symbol, side, type, role, status, price, avg_price, stop_price, quantity, created_at
			  FROM orders WHERE (? = '' OR symbol = ?) ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, symbol, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.OrderRecord
	for rows.Next() {
		var (
			o                                   domain.OrderRecord
			side, typ, role                     string
			price, avgPrice, stopPrice, quantity string
		)
		if err := rows.Scan(&o.OrderID, &o.ClientOrderID, &o.Symbol, &side, &typ, &role, &o.Status,
			&price, &avgPrice, &stopPrice, &quantity, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		o.Type = domain.OrderType(typ)
		o.Role = domain.OrderRole(role)
		if o.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order %s price: %w", o.OrderID, err)
		}
		if o.AvgPrice, err = decimal.NewFromString(avgPrice); err != nil {
			return nil, fmt.Errorf("order %s avg price: %w", o.OrderID, err)
		}
		if o.StopPrice, err = decimal.NewFromString(stopPrice); err != nil {
			return nil, fmt.Errorf("order %s stop price: %w", o.OrderID, err)
		}
		if o.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("order %s quantity: %w", o.OrderID, err)
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}
