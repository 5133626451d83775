// Package http exposes the calculation engine's reports as a JSON API.
package http

import (
	"net/http"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cache"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/sheets"
	"kakeibo/internal/storage"
)

// Server bundles the repositories and calculators behind the API handlers.
type Server struct {
	repo       *storage.SQLiteRepository
	aggregator *services.TransactionAggregator
	calculator *services.BudgetCalculator
	engine     *services.AnnualAllocationEngine
	periods    *services.MonthPeriodCalculator
	cache      *cache.CalculationCache
	events     *amqp.Client
	exporter   *sheets.Client
	logger     *log.Logger
}

// NewServer wires the handlers and returns a configured http.Server.
// events and exporter may be nil when no broker or spreadsheet is available;
// the matching endpoints then report the dependency as unavailable.
func NewServer(addr string, repo *storage.SQLiteRepository, calculator *services.BudgetCalculator, engine *services.AnnualAllocationEngine, periods *services.MonthPeriodCalculator, calcCache *cache.CalculationCache, events *amqp.Client, exporter *sheets.Client, logger *log.Logger) *http.Server {
	s := &Server{
		repo:       repo,
		aggregator: services.NewTransactionAggregator(),
		calculator: calculator,
		engine:     engine,
		periods:    periods,
		cache:      calcCache,
		events:     events,
		exporter:   exporter,
		logger:     logger.WithComponent("http"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/period", s.handlePeriod)
	mux.HandleFunc("GET /api/summary/monthly", s.handleMonthlySummary)
	mux.HandleFunc("GET /api/summary/annual", s.handleAnnualSummary)
	mux.HandleFunc("GET /api/budget/monthly", s.handleMonthlyBudget)
	mux.HandleFunc("GET /api/annual-budget/usage", s.handleAnnualBudgetUsage)
	mux.HandleFunc("GET /api/recurring/savings", s.handleRecurringSavings)
	mux.HandleFunc("GET /api/savings/allocation", s.handleSavingsAllocation)
	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /api/savings/post", s.handleSavingsPost)
	mux.HandleFunc("POST /api/reports/export", s.handleReportExport)

	return &http.Server{
		Addr:           addr,
		Handler:        s.withLogging(mux),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.InfoContext(r.Context(), "Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}
