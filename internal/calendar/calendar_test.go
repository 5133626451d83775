package calendar

import (
	"testing"
	"time"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestWeekendCalendar(t *testing.T) {
	c := NewWeekendCalendar()

	// 2025-11-07 is a Friday.
	if !c.IsBusinessDay(date(2025, 11, 7)) {
		t.Fatal("Friday should be a business day")
	}
	if c.IsBusinessDay(date(2025, 11, 8)) {
		t.Fatal("Saturday should not be a business day")
	}
	if c.IsBusinessDay(date(2025, 11, 9)) {
		t.Fatal("Sunday should not be a business day")
	}

	if got := c.PreviousBusinessDay(date(2025, 11, 9)); !got.Equal(date(2025, 11, 7)) {
		t.Fatalf("PreviousBusinessDay(Sunday) = %v, want Friday", got)
	}
	if got := c.NextBusinessDay(date(2025, 11, 8)); !got.Equal(date(2025, 11, 10)) {
		t.Fatalf("NextBusinessDay(Saturday) = %v, want Monday", got)
	}
}

func TestHolidayCalendar(t *testing.T) {
	// 2026-01-01 is a Thursday.
	c := NewHolidayCalendar([]time.Time{date(2026, 1, 1)})

	if c.IsBusinessDay(date(2026, 1, 1)) {
		t.Fatal("holiday should not be a business day")
	}
	if !c.IsBusinessDay(date(2026, 1, 2)) {
		t.Fatal("the day after the holiday should be a business day")
	}

	if got := c.NextBusinessDay(date(2025, 12, 31)); !got.Equal(date(2026, 1, 2)) {
		t.Fatalf("NextBusinessDay skipping the holiday = %v, want 2026-01-02", got)
	}
	if got := c.PreviousBusinessDay(date(2026, 1, 2)); !got.Equal(date(2025, 12, 31)) {
		t.Fatalf("PreviousBusinessDay skipping the holiday = %v, want 2025-12-31", got)
	}
}

func TestHolidayCalendarIgnoresTimeOfDay(t *testing.T) {
	c := NewHolidayCalendar([]time.Time{
		time.Date(2026, 1, 1, 15, 30, 0, 0, time.UTC),
	})
	if c.IsBusinessDay(date(2026, 1, 1)) {
		t.Fatal("holiday match must be by calendar date only")
	}
}
