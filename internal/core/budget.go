package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetScope says what a budget applies to: the whole household (overall) or
// one category. The tagged form keeps the "no category means overall"
// convention visible in the type instead of an implicit nil.
type BudgetScope struct {
	CategoryID *string
}

// OverallScope returns the scope covering all spending.
func OverallScope() BudgetScope {
	return BudgetScope{}
}

// CategoryScope returns the scope covering a single category.
func CategoryScope(categoryID string) BudgetScope {
	return BudgetScope{CategoryID: &categoryID}
}

// IsOverall reports whether the budget covers all spending.
func (s BudgetScope) IsOverall() bool {
	return s.CategoryID == nil
}

// Budget is a monthly spending limit active over an inclusive range of
// months. Amount is a monthly rate, not a range total.
type Budget struct {
	ID        string
	Amount    decimal.Decimal
	Scope     BudgetScope
	Start     YearMonth
	End       YearMonth
	UpdatedAt time.Time
}

// Contains reports whether the budget is active in the given month.
func (b Budget) Contains(year, month int) bool {
	ym := YearMonth{Year: year, Month: month}
	return !ym.Before(b.Start) && !ym.After(b.End)
}

// OverlapsYear reports whether any month of the given year falls in the
// budget's active range.
func (b Budget) OverlapsYear(year int) bool {
	return b.Start.Year <= year && year <= b.End.Year
}
