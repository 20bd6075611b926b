package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vitos/crypto_ladder_entry/internal/domain"
	"github.com/vitos/crypto_ladder_entry/internal/usecase"
)

const maxOrdersLimit = 1000

type evaluateResponse struct {
	Symbol    string                  `json:"symbol"`
	Action    usecase.TickAction      `json:"action,omitempty"`
	Rung      string                  `json:"rung,omitempty"`
	MarkPrice string                  `json:"mark_price,omitempty"`
	Orders    []*domain.OrderRecord   `json:"orders,omitempty"`
	Error     string                  `json:"error,omitempty"`
	Status    usecase.EvaluatorStatus `json:"status"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses := make([]usecase.EvaluatorStatus, 0, len(s.strategies))
	for _, st := range s.strategies {
		statuses = append(statuses, st.Status())
	}
	s.writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handleSymbolStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.bySymbol[r.PathValue("symbol")]
	if !ok {
		http.Error(w, "Unknown symbol", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, st.Status())
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	if s.orderRepo == nil {
		http.Error(w, "Order journal disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxOrdersLimit {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	orders, err := s.orderRepo.ListOrders(r.Context(), r.URL.Query().Get("symbol"), limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.Error(err))
		http.Error(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []*domain.OrderRecord{}
	}
	s.writeJSON(w, http.StatusOK, orders)
}

// handleEvaluate runs one tick now. It goes through the same overlap guard
// as the scheduler, so a running tick answers 409.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	st, ok := s.bySymbol[symbol]
	if !ok {
		http.Error(w, "Unknown symbol", http.StatusNotFound)
		return
	}

	s.logger.Info("Manual evaluation requested", zap.String("symbol", symbol))
	// a disconnecting client must not cut a tick short
	res, err := st.Evaluate(context.WithoutCancel(r.Context()))

	resp := evaluateResponse{Symbol: symbol}
	if res != nil {
		resp.Action = res.Action
		if !res.Rung.IsZero() {
			resp.Rung = res.Rung.String()
		}
		if !res.MarkPrice.IsZero() {
			resp.MarkPrice = res.MarkPrice.String()
		}
		if p := res.Placement; p != nil {
			for _, o := range []*domain.OrderRecord{p.Entry, p.Protective} {
				if o != nil {
					resp.Orders = append(resp.Orders, o)
				}
			}
		}
	}
	resp.Status = st.Status()

	code := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		code = evaluateErrorCode(err)
		s.logger.Warn("Manual evaluation failed", zap.String("symbol", symbol), zap.Error(err))
	}
	s.writeJSON(w, code, resp)
}

func evaluateErrorCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrTickInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrNoMarkPrice),
		errors.Is(err, domain.ErrSymbolNotFound),
		errors.Is(err, domain.ErrAssetNotFound):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
