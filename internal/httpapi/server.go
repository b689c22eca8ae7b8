package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"quiver/internal/store"
	"quiver/internal/strategy"
)

// Server serves stored backtest runs and the order journal over HTTP.
type Server struct {
	runs     store.RunStore
	orders   store.OrderStore
	registry *strategy.Registry
	log      *slog.Logger
}

// NewServer creates a Server over the given stores. The order store and
// registry are optional; nil disables the corresponding endpoints' content.
func NewServer(runs store.RunStore, orders store.OrderStore, registry *strategy.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		runs:     runs,
		orders:   orders,
		registry: registry,
		log:      log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/v1/strategies", s.handleStrategies)
	mux.HandleFunc("GET /api/v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/values", s.handleRunValues)
	mux.HandleFunc("GET /api/v1/runs/{id}/trades", s.handleRunTrades)
	mux.HandleFunc("GET /api/v1/orders", s.handleListOrders)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// parseLimit extracts the "limit" query param, defaulting to 50.
func parseLimit(r *http.Request) int {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 50
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 50
	}
	return n
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	resp := StrategiesResponse{Strategies: []string{}}
	if s.registry != nil {
		resp.Strategies = s.registry.List()
	}
	writeJSON(w, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.runs.ListRuns(r.Context(), parseLimit(r))
	if err != nil {
		s.log.Error("listing runs", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	resp := RunListResponse{Runs: make([]RunJSON, 0, len(runs))}
	for _, m := range runs {
		resp.Runs = append(resp.Runs, convertRunMeta(m))
	}
	writeJSON(w, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	meta, result, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found: "+id)
		return
	}
	writeJSON(w, convertResult(*meta, result))
}

func (s *Server) handleRunValues(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, result, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found: "+id)
		return
	}

	resp := ValuesResponse{RunID: id, Values: make([]ValueJSON, 0, len(result.Values))}
	for _, v := range result.Values {
		resp.Values = append(resp.Values, ValueJSON{
			Timestamp: v.Timestamp.Format(time.RFC3339),
			Value:     v.Value,
		})
	}
	writeJSON(w, resp)
}

func (s *Server) handleRunTrades(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, result, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found: "+id)
		return
	}

	resp := TradesResponse{RunID: id, Trades: make([]TradeJSON, 0, len(result.Trades))}
	for _, t := range result.Trades {
		resp.Trades = append(resp.Trades, TradeJSON{
			Timestamp:  t.Timestamp.Format(time.RFC3339),
			Symbol:     t.Symbol,
			Quantity:   t.Quantity,
			Price:      t.Price,
			Commission: t.Commission,
			Cash:       t.Cash,
		})
	}
	writeJSON(w, resp)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	resp := OrdersResponse{Orders: []OrderJSON{}}
	if s.orders == nil {
		writeJSON(w, resp)
		return
	}

	orders, err := s.orders.ListOrders(r.Context(), parseLimit(r))
	if err != nil {
		s.log.Error("listing orders", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	for _, o := range orders {
		resp.Orders = append(resp.Orders, OrderJSON{
			ID:             o.ID,
			Symbol:         o.Symbol,
			Side:           string(o.Side),
			Type:           string(o.Type),
			Qty:            o.Qty,
			LimitPrice:     o.LimitPrice,
			FilledQty:      o.FilledQty,
			FilledAvgPrice: o.FilledAvgPrice,
			Status:         string(o.Status),
			CreatedAt:      o.CreatedAt.Format(time.RFC3339),
			UpdatedAt:      o.UpdatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, resp)
}
