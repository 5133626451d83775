// Package services provides the calculation services of the budget engine:
// period resolution, transaction aggregation, budget-vs-actual calculation,
// annual-pool allocation, and recurring-payment balance tracking.
//
// All services are stateless and safe for concurrent use; the only shared
// mutable state in the engine lives in the cache package.
package services

import "time"

// BusinessDayAdjustment selects how a period boundary falling on a
// non-business day is moved.
type BusinessDayAdjustment string

const (
	AdjustmentNone                BusinessDayAdjustment = "none"
	AdjustmentPreviousBusinessDay BusinessDayAdjustment = "moveToPreviousBusinessDay"
	AdjustmentNextBusinessDay     BusinessDayAdjustment = "moveToNextBusinessDay"
)

// BusinessDayProvider answers business-day questions for period boundaries.
// Holiday knowledge lives with the caller; the engine never computes
// calendars itself.
type BusinessDayProvider interface {
	IsBusinessDay(date time.Time) bool
	PreviousBusinessDay(date time.Time) time.Time
	NextBusinessDay(date time.Time) time.Time
}

// Period is a half-open date range [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether date falls inside the period.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.Start) && date.Before(p.End)
}

// MonthPeriodCalculator resolves (year, month) into a concrete date range,
// honoring a configurable month start day and a business-day adjustment rule.
type MonthPeriodCalculator struct {
	monthStartDay int
	adjustment    BusinessDayAdjustment
	provider      BusinessDayProvider
}

// NewMonthPeriodCalculator builds a calculator. A start day outside 1-28 is
// clamped to 1 so every month can construct a boundary. The provider may be
// nil when adjustment is AdjustmentNone.
func NewMonthPeriodCalculator(monthStartDay int, adjustment BusinessDayAdjustment, provider BusinessDayProvider) *MonthPeriodCalculator {
	if monthStartDay < 1 || monthStartDay > 28 {
		monthStartDay = 1
	}
	return &MonthPeriodCalculator{
		monthStartDay: monthStartDay,
		adjustment:    adjustment,
		provider:      provider,
	}
}

// CalculatePeriod maps (year, month) to the [start, end) range of that
// budgeting month. Returns ok=false only when the arguments cannot form a
// valid month.
func (c *MonthPeriodCalculator) CalculatePeriod(year, month int) (Period, bool) {
	if year < 1 || month < 1 || month > 12 {
		return Period{}, false
	}
	start := c.adjust(time.Date(year, time.Month(month), c.monthStartDay, 0, 0, 0, 0, time.UTC))
	end := c.adjust(time.Date(year, time.Month(month)+1, c.monthStartDay, 0, 0, 0, 0, time.UTC))
	return Period{Start: start, End: end}, true
}

func (c *MonthPeriodCalculator) adjust(date time.Time) time.Time {
	if c.adjustment == AdjustmentNone || c.provider == nil {
		return date
	}
	if c.provider.IsBusinessDay(date) {
		return date
	}
	switch c.adjustment {
	case AdjustmentPreviousBusinessDay:
		return c.provider.PreviousBusinessDay(date)
	case AdjustmentNextBusinessDay:
		return c.provider.NextBusinessDay(date)
	}
	return date
}
