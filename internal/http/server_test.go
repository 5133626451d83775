package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/calendar"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

func newTestHandler(t *testing.T, periods *services.MonthPeriodCalculator) http.Handler {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	calcCache := cache.New()
	calculator := services.NewBudgetCalculator(services.NewTransactionAggregator(), calcCache)
	engine := services.NewAnnualAllocationEngine()
	logger := applog.New(applog.DefaultConfig())

	return NewServer(":0", repo, calculator, engine, periods, calcCache, nil, nil, logger).Handler
}

func TestPeriodEndpoint(t *testing.T) {
	periods := services.NewMonthPeriodCalculator(1, services.AdjustmentPreviousBusinessDay, calendar.NewWeekendCalendar())
	handler := newTestHandler(t, periods)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/period?year=2025&month=11", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Year  int       `json:"year"`
		Month int       `json:"month"`
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Year != 2025 || body.Month != 11 {
		t.Fatalf("got %d-%d, want 2025-11", body.Year, body.Month)
	}
	// 2025-11-01 falls on a Saturday, so the start moves back to Friday.
	wantStart := time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)
	if !body.Start.Equal(wantStart) {
		t.Errorf("start = %s, want %s", body.Start, wantStart)
	}
	// 2025-12-01 is a Monday and needs no adjustment.
	wantEnd := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	if !body.End.Equal(wantEnd) {
		t.Errorf("end = %s, want %s", body.End, wantEnd)
	}
}

func TestPeriodEndpointHolidayCalendar(t *testing.T) {
	holidays := calendar.NewHolidayCalendar([]time.Time{
		time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
	})
	periods := services.NewMonthPeriodCalculator(1, services.AdjustmentPreviousBusinessDay, holidays)
	handler := newTestHandler(t, periods)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/period?year=2025&month=11", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Start time.Time `json:"start"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// The Friday before the weekend is a holiday, so the start lands on
	// Thursday 2025-10-30.
	wantStart := time.Date(2025, 10, 30, 0, 0, 0, 0, time.UTC)
	if !body.Start.Equal(wantStart) {
		t.Errorf("start = %s, want %s", body.Start, wantStart)
	}
}

func TestPeriodEndpointRejectsBadMonth(t *testing.T) {
	periods := services.NewMonthPeriodCalculator(1, services.AdjustmentNone, nil)
	handler := newTestHandler(t, periods)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/period?year=2025&month=13", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
