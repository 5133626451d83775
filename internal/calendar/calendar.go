// Package calendar provides business-day providers for the period
// calculator. Holiday dates are supplied by the caller; nothing here computes
// a holiday calendar.
package calendar

import "time"

// WeekendCalendar treats Saturday and Sunday as non-business days and
// everything else as a business day.
type WeekendCalendar struct{}

// NewWeekendCalendar returns a weekend-only provider.
func NewWeekendCalendar() *WeekendCalendar {
	return &WeekendCalendar{}
}

func (WeekendCalendar) IsBusinessDay(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (c WeekendCalendar) PreviousBusinessDay(date time.Time) time.Time {
	return step(c, date, -1)
}

func (c WeekendCalendar) NextBusinessDay(date time.Time) time.Time {
	return step(c, date, 1)
}

// HolidayCalendar extends the weekend rule with a fixed set of holiday
// dates.
type HolidayCalendar struct {
	holidays map[string]bool
}

// NewHolidayCalendar builds a provider from explicit holiday dates. Only the
// calendar date matters; time-of-day and zone are ignored.
func NewHolidayCalendar(holidays []time.Time) *HolidayCalendar {
	set := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		set[dayKey(h)] = true
	}
	return &HolidayCalendar{holidays: set}
}

func (c *HolidayCalendar) IsBusinessDay(date time.Time) bool {
	if !(WeekendCalendar{}).IsBusinessDay(date) {
		return false
	}
	return !c.holidays[dayKey(date)]
}

func (c *HolidayCalendar) PreviousBusinessDay(date time.Time) time.Time {
	return step(c, date, -1)
}

func (c *HolidayCalendar) NextBusinessDay(date time.Time) time.Time {
	return step(c, date, 1)
}

type provider interface {
	IsBusinessDay(date time.Time) bool
}

func step(p provider, date time.Time, direction int) time.Time {
	d := date.AddDate(0, 0, direction)
	for !p.IsBusinessDay(d) {
		d = d.AddDate(0, 0, direction)
	}
	return d
}

func dayKey(date time.Time) string {
	return date.Format("2006-01-02")
}
