package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
	"github.com/vitos/crypto_ladder_entry/internal/usecase"
)

// Strategy is the part of a StrategyEvaluator the server needs.
type Strategy interface {
	Symbol() string
	Status() usecase.EvaluatorStatus
	Evaluate(ctx context.Context) (*usecase.TickResult, error)
}

type Server struct {
	router     *http.ServeMux
	server     *http.Server
	strategies []Strategy
	bySymbol   map[string]Strategy
	orderRepo  domain.OrderRepository
	gatherer   prometheus.Gatherer
	logger     *zap.Logger
}

func NewServer(
	port int,
	strategies []Strategy,
	orderRepo domain.OrderRepository,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		strategies: strategies,
		bySymbol:   make(map[string]Strategy, len(strategies)),
		orderRepo:  orderRepo,
		gatherer:   gatherer,
		logger:     logger,
	}
	for _, st := range strategies {
		s.bySymbol[st.Symbol()] = st
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)
	s.router.HandleFunc("GET /status/{symbol}", s.handleSymbolStatus)

	// Orders journal
	s.router.HandleFunc("GET /orders", s.handleListOrders)

	// Manual tick
	s.router.HandleFunc("POST /evaluate/{symbol}", s.handleEvaluate)

	// Metrics
	if s.gatherer != nil {
		s.router.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
