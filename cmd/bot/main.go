package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/config"
	"github.com/vitos/crypto_ladder_entry/internal/infrastructure/exchange"
	"github.com/vitos/crypto_ladder_entry/internal/infrastructure/logger"
	"github.com/vitos/crypto_ladder_entry/internal/infrastructure/storage"
	"github.com/vitos/crypto_ladder_entry/internal/usecase"
	"github.com/vitos/crypto_ladder_entry/internal/web"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	for _, w := range cfg.Warnings() {
		log.Warn("Config warning", zap.String("warning", w))
	}

	params, err := cfg.Params()
	if err != nil {
		log.Fatal("Invalid strategies", zap.Error(err))
	}

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Exchange (Binance COIN-M)
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
	adapter := exchange.NewBinanceDeliveryAdapter(cfg.Exchange.APIKey, cfg.Exchange.APISecret, restURL, log)
	stream := exchange.NewMarkPriceStream(wsURL, log)

	// 5. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := usecase.NewMetrics(reg)

	// 6. One evaluator and feed per strategy
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		wg         sync.WaitGroup
		tickables  []usecase.Tickable
		strategies []web.Strategy
	)
	for _, p := range params {
		cell := &usecase.SnapshotCell{}
		tracker := usecase.NewPositionTracker()
		sequencer := usecase.NewOrderSequencer(adapter, store, p, cfg.OrderTimeout, metrics, log)
		evaluator := usecase.NewStrategyEvaluator(p, adapter, sequencer, tracker, cell, metrics, log)
		feed := usecase.NewMarketFeed(p.Symbol, stream, cell, metrics, log)

		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			if err := feed.Run(ctx); err != nil {
				log.Error("Mark price feed stopped", zap.String("symbol", symbol), zap.Error(err))
			}
		}(p.Symbol)

		tickables = append(tickables, evaluator)
		strategies = append(strategies, evaluator)

		log.Info("Strategy configured",
			zap.String("symbol", p.Symbol),
			zap.Stringer("reference_price", p.ReferencePrice),
			zap.Int("rungs", len(p.EntryOffsets)),
			zap.Duration("interval", p.Interval))
	}

	// 7. Scheduler
	scheduler := usecase.NewScheduler(tickables, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	// 8. Init Web Server
	server := web.NewServer(cfg.Server.Port, strategies, store, reg, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Error("Web server failed", zap.Error(err))
			cancel()
		}
	}()

	// 9. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
	case <-ctx.Done():
	}
	log.Info("Shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	wg.Wait()
}
