package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/config"
	"github.com/vitos/crypto_ladder_entry/internal/domain"
	"github.com/vitos/crypto_ladder_entry/internal/infrastructure/exchange"
	"github.com/vitos/crypto_ladder_entry/internal/infrastructure/logger"
	"github.com/vitos/crypto_ladder_entry/internal/usecase"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	listAll := flag.Bool("list", false, "print every symbol")
	place := flag.Bool("place", false, "place a test order (real!)")
	side := flag.String("side", "BUY", "test order side")
	qty := flag.String("qty", "1", "test order quantity")
	price := flag.String("price", "", "test order limit price, empty for market")
	watch := flag.Duration("watch", 0, "print mark price updates for this long")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	params, err := cfg.Params()
	if err != nil {
		fmt.Printf("Invalid strategies: %v\n", err)
		os.Exit(1)
	}
	p := params[0]

	restURL, wsURL := cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint
	if restURL == "" {
		restURL = exchange.BinanceDeliveryBaseURL
		if cfg.Exchange.Testnet {
			restURL = exchange.BinanceDeliveryTestnetBaseURL
		}
	}
	if wsURL == "" {
		wsURL = exchange.BinanceDeliveryWSURL
		if cfg.Exchange.Testnet {
			wsURL = exchange.BinanceDeliveryTestnetWSURL
		}
	}

	fmt.Printf("Testing Binance COIN-M Interaction...\n")
	fmt.Printf("Endpoint: %s\n", restURL)

	adapter := exchange.NewBinanceDeliveryAdapter(cfg.Exchange.APIKey, cfg.Exchange.APISecret, restURL, log)
	ctx := context.Background()

	// 2. Public endpoint (exchange info)
	info, err := adapter.GetExchangeInfo(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get exchange info: %v\n", err)
		os.Exit(1)
	}
	symbols := usecase.ListSymbols(info)
	fmt.Printf("✅ %d symbols listed\n", len(symbols))
	if *listAll {
		for _, s := range symbols {
			fmt.Println("  ", s)
		}
	}

	q, err := usecase.FiltersFor(info, p.Symbol)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ %s filters: tickSize=%s stepSize=%s\n", p.Symbol, q.TickSize, q.StepSize)
	for _, rung := range usecase.ComputeLadder(p.ReferencePrice, p.EntryOffsets) {
		fmt.Printf("   rung %s -> %s\n", rung, q.FloorPrice(rung))
	}

	// 3. Private endpoint (account)
	acc, err := adapter.GetAccountInformation(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get account: %v\n", err)
	} else if bal, err := usecase.AvailableBalance(acc, p.Asset); err != nil {
		fmt.Printf("❌ %v\n", err)
	} else {
		fmt.Printf("✅ Available %s: %s (min %s)\n", p.Asset, bal, p.MinBalance)
	}

	// 4. Mark price stream
	if *watch > 0 {
		cell := &usecase.SnapshotCell{}
		feed := usecase.NewMarketFeed(p.Symbol, exchange.NewMarkPriceStream(wsURL, log), cell, nil, log)
		watchCtx, cancel := context.WithTimeout(ctx, *watch)
		feed.Run(watchCtx)
		cancel()
		if snap, ok := cell.Load(); ok {
			fmt.Printf("✅ Mark price %s index %s funding %s\n", snap.MarkPrice, snap.IndexPrice, snap.FundingRate)
		} else {
			fmt.Printf("❌ No mark price within %s\n", *watch)
		}
	}

	// 5. Optional test order, no protective order attached
	if *place {
		quantity, err := decimal.NewFromString(*qty)
		if err != nil {
			fmt.Printf("❌ Bad qty: %v\n", err)
			os.Exit(1)
		}
		limit := decimal.Zero
		if *price != "" {
			if limit, err = decimal.NewFromString(*price); err != nil {
				fmt.Printf("❌ Bad price: %v\n", err)
				os.Exit(1)
			}
		}

		seq := usecase.NewOrderSequencer(adapter, nil, p, 10*time.Second, nil, log.With(zap.String("cmd", "check_exchange")))
		rec, err := seq.PlaceOrder(ctx, p.Symbol, domain.Side(*side), quantity, limit, q)
		if err != nil {
			fmt.Printf("❌ Order failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Order %s %s %s qty=%s price=%s status=%s\n",
			rec.OrderID, rec.Side, rec.Type, rec.Quantity, rec.Price, rec.Status)
	}
}
