package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	period, ok := s.periods.CalculatePeriod(year, month)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year or month")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":  year,
		"month": month,
		"start": period.Start,
		"end":   period.End,
	})
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	transactions, categories, ok := s.loadInputs(w, r, year)
	if !ok {
		return
	}
	summary := s.aggregator.AggregateMonthly(transactions, categories, year, month, filterFromQuery(r))
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAnnualSummary(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	transactions, categories, ok := s.loadInputs(w, r, year)
	if !ok {
		return
	}
	summary, err := s.aggregator.AggregateAnnually(r.Context(), transactions, categories, year, filterFromQuery(r))
	if err != nil {
		s.serverError(w, r, "aggregate annual summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleMonthlyBudget(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	transactions, categories, ok := s.loadInputs(w, r, year)
	if !ok {
		return
	}
	budgets, err := s.repo.ListBudgets(r.Context(), year)
	if err != nil {
		s.serverError(w, r, "load budgets", err)
		return
	}

	var excluded []string
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		excluded = strings.Split(raw, ",")
	}

	result := s.calculator.CalculateMonthlyBudget(transactions, budgets, categories, year, month, filterFromQuery(r), excluded)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnnualBudgetUsage(w http.ResponseWriter, r *http.Request) {
	year, ok := yearParam(w, r)
	if !ok {
		return
	}
	config, err := s.repo.GetAnnualBudgetConfig(r.Context(), year)
	if err != nil {
		s.serverError(w, r, "load annual config", err)
		return
	}
	if config == nil {
		writeError(w, http.StatusNotFound, "no annual budget config for year")
		return
	}
	transactions, categories, ok := s.loadInputs(w, r, year)
	if !ok {
		return
	}
	budgets, err := s.repo.ListBudgets(r.Context(), year)
	if err != nil {
		s.serverError(w, r, "load budgets", err)
		return
	}

	upToMonth := 12
	if raw := r.URL.Query().Get("upToMonth"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			upToMonth = v
		}
	}

	usage, err := s.engine.CalculateAnnualUsage(*config, transactions, budgets, categories, upToMonth, filterFromQuery(r))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleRecurringSavings(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	definitions, err := s.repo.ListRecurringDefinitions(r.Context())
	if err != nil {
		s.serverError(w, r, "load recurring definitions", err)
		return
	}
	balances, err := s.repo.ListSavingBalances(r.Context())
	if err != nil {
		s.serverError(w, r, "load saving balances", err)
		return
	}
	rows := s.calculator.CalculateRecurringPaymentSavings(definitions, balances, year, month, time.Now().UTC())
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSavingsAllocation(w http.ResponseWriter, r *http.Request) {
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	definitions, err := s.repo.ListRecurringDefinitions(r.Context())
	if err != nil {
		s.serverError(w, r, "load recurring definitions", err)
		return
	}
	total := s.calculator.CalculateMonthlySavingsAllocation(definitions, year, month)
	byCategory := s.calculator.CalculateCategorySavingsAllocation(definitions, year, month)
	writeJSON(w, http.StatusOK, map[string]any{
		"year":       year,
		"month":      month,
		"total":      total,
		"categories": services.SortedCategorySavings(byCategory),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stats": s.cache.Snapshot(),
		"size":  s.cache.Size(),
	})
}

func (s *Server) handleSavingsPost(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event broker not configured")
		return
	}
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	if err := s.events.PublishSavingsPost(r.Context(), year, month); err != nil {
		s.serverError(w, r, "publish savings post", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"year": year, "month": month})
}

func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "spreadsheet export not configured")
		return
	}
	year, month, ok := yearMonthParams(w, r)
	if !ok {
		return
	}
	transactions, categories, ok := s.loadInputs(w, r, year)
	if !ok {
		return
	}
	budgets, err := s.repo.ListBudgets(r.Context(), year)
	if err != nil {
		s.serverError(w, r, "load budgets", err)
		return
	}
	report := s.calculator.CalculateMonthlyBudget(transactions, budgets, categories, year, month, filterFromQuery(r), nil)
	if err := s.exporter.AppendMonthlyBudgetReport(r.Context(), report); err != nil {
		s.serverError(w, r, "export report", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"year": year, "month": month})
}

func (s *Server) loadInputs(w http.ResponseWriter, r *http.Request, year int) ([]core.Transaction, []core.Category, bool) {
	transactions, err := s.repo.ListTransactionsByYear(r.Context(), year)
	if err != nil {
		s.serverError(w, r, "load transactions", err)
		return nil, nil, false
	}
	categories, err := s.repo.ListCategories(r.Context())
	if err != nil {
		s.serverError(w, r, "load categories", err)
		return nil, nil, false
	}
	return transactions, categories, true
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, action string, err error) {
	s.logger.ErrorContext(r.Context(), "Request failed",
		"action", action,
		"path", r.URL.Path,
		"error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func filterFromQuery(r *http.Request) core.AggregationFilter {
	filter := core.DefaultAggregationFilter()
	q := r.URL.Query()
	if q.Get("includeAll") == "true" {
		filter.IncludeOnlyCalculationTarget = false
	}
	if q.Get("includeTransfers") == "true" {
		filter.ExcludeTransfers = false
	}
	if id := q.Get("institution"); id != "" {
		filter.FinancialInstitutionID = &id
	}
	if id := q.Get("category"); id != "" {
		filter.CategoryID = &id
	}
	return filter
}

func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return 0, false
	}
	return year, true
}

func yearMonthParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	year, ok := yearParam(w, r)
	if !ok {
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return 0, 0, false
	}
	return year, month, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
