package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/logger"
	"agent-trader/internal/types"
)

// Server exposes the analysis pipeline, trade execution and backtest
// engine over HTTP. Every route requires a bearer token that resolves
// to an owner id; all ledger reads and writes are scoped to that owner.
type Server struct {
	analyzer   interfaces.Analyzer
	executor   interfaces.Executor
	backtester interfaces.Backtester
	ledger     interfaces.Ledger
	tokens     map[string]string

	httpServer *http.Server
}

func NewServer(addr string, analyzer interfaces.Analyzer, executor interfaces.Executor, backtester interfaces.Backtester, ledger interfaces.Ledger, tokens map[string]string) *Server {
	s := &Server{
		analyzer:   analyzer,
		executor:   executor,
		backtester: backtester,
		ledger:     ledger,
		tokens:     tokens,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed so tests can drive the
// server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.authed(s.handleAnalyze))
	mux.HandleFunc("POST /api/backtest", s.authed(s.handleBacktest))
	mux.HandleFunc("GET /api/portfolio", s.authed(s.handlePortfolio))
	mux.HandleFunc("GET /api/trades", s.authed(s.handleTrades))
	mux.HandleFunc("GET /api/analyses", s.authed(s.handleAnalyses))
	return mux
}

func (s *Server) Start() error {
	logger.Info(context.Background(), "http server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type ownerHandler func(w http.ResponseWriter, r *http.Request, owner string)

// authed resolves the bearer token to an owner before the handler
// runs. Requests without a recognized token never reach a handler.
func (s *Server) authed(next ownerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, fmt.Errorf("missing bearer token: %w", types.ErrUnauthorized))
			return
		}
		owner, ok := s.tokens[token]
		if !ok {
			writeError(w, r, fmt.Errorf("unrecognized token: %w", types.ErrUnauthorized))
			return
		}
		next(w, r, owner)
		logger.Debug(r.Context(), "request served",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

func normalizeTicker(raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if !tickerPattern.MatchString(ticker) {
		return "", fmt.Errorf("ticker %q is not a valid symbol: %w", raw, types.ErrValidation)
	}
	return ticker, nil
}

type analyzeRequest struct {
	Ticker string `json:"ticker"`
}

type analyzeResponse struct {
	Ticker              string                `json:"ticker"`
	Analyses            []types.AgentAnalysis `json:"analyses"`
	FinalRecommendation string                `json:"final_recommendation"`
	CurrentPrice        float64               `json:"current_price"`
	Trade               *types.Trade          `json:"trade,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, owner string) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("malformed request body: %w", types.ErrValidation))
		return
	}
	ticker, err := normalizeTicker(req.Ticker)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), owner, ticker)
	if err != nil {
		writeError(w, r, err)
		return
	}

	trade, err := s.executor.Execute(r.Context(), owner, ticker, result.FinalRecommendation, result.CurrentPrice)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Ticker:              result.Ticker,
		Analyses:            result.Analyses,
		FinalRecommendation: result.FinalRecommendation,
		CurrentPrice:        result.CurrentPrice,
		Trade:               trade,
	})
}

type backtestRequest struct {
	Ticker    string `json:"ticker"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request, owner string) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("malformed request body: %w", types.ErrValidation))
		return
	}
	ticker, err := normalizeTicker(req.Ticker)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, r, fmt.Errorf("start_date %q must be YYYY-MM-DD: %w", req.StartDate, types.ErrValidation))
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, r, fmt.Errorf("end_date %q must be YYYY-MM-DD: %w", req.EndDate, types.ErrValidation))
		return
	}
	if end.Before(start) {
		writeError(w, r, fmt.Errorf("end_date precedes start_date: %w", types.ErrValidation))
		return
	}

	result, err := s.backtester.Run(r.Context(), owner, ticker, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request, owner string) {
	positions, err := s.ledger.ListPositions(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": positions})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request, owner string) {
	trades, err := s.ledger.RecentTrades(r.Context(), owner, queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request, owner string) {
	ticker := ""
	if raw := r.URL.Query().Get("ticker"); raw != "" {
		t, err := normalizeTicker(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ticker = t
	}
	analyses, err := s.ledger.RecentAnalyses(r.Context(), owner, ticker, queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": analyses})
}

func queryLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func statusFor(kind string) int {
	switch kind {
	case "unauthorized":
		return http.StatusUnauthorized
	case "validation_error":
		return http.StatusBadRequest
	case "data_unavailable":
		return http.StatusNotFound
	case "ledger_conflict":
		return http.StatusConflict
	case "provider_error":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := types.ErrorKind(err)
	status := statusFor(kind)
	if status >= 500 {
		logger.ErrorWithErr(r.Context(), "request failed", err, "path", r.URL.Path, "kind", kind)
	} else {
		logger.Warn(r.Context(), "request rejected", "path", r.URL.Path, "kind", kind, "error", err.Error())
	}

	var body errorBody
	body.Error.Kind = kind
	body.Error.Message = err.Error()
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(context.Background(), "encode response failed", "error", err.Error())
	}
}
