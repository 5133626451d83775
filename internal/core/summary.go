package core

import "github.com/shopspring/decimal"

// CategorySummary aggregates transactions for one category group within a
// period. CategoryID is nil for the uncategorized bucket.
type CategorySummary struct {
	CategoryID   *string
	CategoryName string
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal
	Count        int
}

// MonthlySummary aggregates one calendar month.
type MonthlySummary struct {
	Year         int
	Month        int
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal
	Count        int
	Categories   []CategorySummary
}

// AnnualSummary aggregates a full year, with nested per-month summaries.
type AnnualSummary struct {
	Year         int
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Net          decimal.Decimal
	Count        int
	Months       []MonthlySummary
	Categories   []CategorySummary
}

// BudgetCalculation is the budget-vs-actual result for one budget.
//
// UsageRate is clamped to zero for non-positive actuals; a refund-heavy month
// shows as 0%, not a negative rate. That hides refund nuance from the display
// on purpose.
type BudgetCalculation struct {
	BudgetAmount    decimal.Decimal
	ActualAmount    decimal.Decimal
	RemainingAmount decimal.Decimal
	UsageRate       float64
	IsOverBudget    bool
}

// NewBudgetCalculation derives the full result from a budget and actual pair.
func NewBudgetCalculation(budgetAmount, actualAmount decimal.Decimal) BudgetCalculation {
	rate := Rate(actualAmount, budgetAmount)
	if rate < 0 {
		rate = 0
	}
	return BudgetCalculation{
		BudgetAmount:    budgetAmount,
		ActualAmount:    actualAmount,
		RemainingAmount: SafeSubtract(budgetAmount, actualAmount),
		UsageRate:       rate,
		IsOverBudget:    actualAmount.GreaterThan(budgetAmount),
	}
}

// CategoryBudgetCalculation pairs a category-scoped budget with its result.
type CategoryBudgetCalculation struct {
	CategoryID   string
	CategoryName string
	Calculation  BudgetCalculation
}

// MonthlyBudgetCalculation is the full budget report for one month: the
// optional overall calculation plus one entry per active category budget.
type MonthlyBudgetCalculation struct {
	Year       int
	Month      int
	Overall    *BudgetCalculation
	Categories []CategoryBudgetCalculation
}
