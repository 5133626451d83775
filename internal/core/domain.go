package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount               = errors.New("invalid amount")
	ErrInvalidPolicy               = errors.New("invalid allocation policy")
	ErrInvalidPeriod               = errors.New("invalid period")
	ErrNoAllocations               = errors.New("no allocations")
	ErrAllocationTotalMismatch     = errors.New("manual allocations do not match total amount")
	ErrDuplicateAllocationCategory = errors.New("duplicate category in allocations")
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month int // 1-12
}

// Before reports whether ym is strictly earlier than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// After reports whether ym is strictly later than other.
func (ym YearMonth) After(other YearMonth) bool {
	return other.Before(ym)
}

// Transaction is a single ledger entry. The engine treats transactions as
// immutable within one calculation call; UpdatedAt feeds cache versioning.
type Transaction struct {
	ID                      string
	Date                    time.Time
	Amount                  decimal.Decimal
	IsExpense               bool
	IsIncome                bool
	IsTransfer              bool
	IsIncludedInCalculation bool
	MajorCategoryID         *string
	MinorCategoryID         *string
	FinancialInstitutionID  *string
	UpdatedAt               time.Time
}

// CategoryID returns the finest category granularity present on the
// transaction: minor if set, otherwise major, otherwise nil.
func (t Transaction) CategoryID() *string {
	if t.MinorCategoryID != nil {
		return t.MinorCategoryID
	}
	return t.MajorCategoryID
}

// MatchesCategory reports whether either category reference equals id.
func (t Transaction) MatchesCategory(id string) bool {
	if t.MajorCategoryID != nil && *t.MajorCategoryID == id {
		return true
	}
	if t.MinorCategoryID != nil && *t.MinorCategoryID == id {
		return true
	}
	return false
}

// AggregationFilter configures which transactions participate in an
// aggregation pass.
type AggregationFilter struct {
	IncludeOnlyCalculationTarget bool
	ExcludeTransfers             bool
	FinancialInstitutionID       *string
	CategoryID                   *string
}

// DefaultAggregationFilter returns the standard filter: calculation targets
// only, transfers excluded, no institution or category restriction.
func DefaultAggregationFilter() AggregationFilter {
	return AggregationFilter{
		IncludeOnlyCalculationTarget: true,
		ExcludeTransfers:             true,
	}
}

// Matches applies the filter predicate to a single transaction.
func (f AggregationFilter) Matches(t Transaction) bool {
	if f.IncludeOnlyCalculationTarget && !t.IsIncludedInCalculation {
		return false
	}
	if f.ExcludeTransfers && t.IsTransfer {
		return false
	}
	if f.FinancialInstitutionID != nil {
		if t.FinancialInstitutionID == nil || *t.FinancialInstitutionID != *f.FinancialInstitutionID {
			return false
		}
	}
	if f.CategoryID != nil && !t.MatchesCategory(*f.CategoryID) {
		return false
	}
	return true
}
