package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
)

// BudgetCalculator combines aggregated actuals with budget definitions into
// budget-vs-actual results, and computes recurring-payment savings figures.
//
// The expensive entry points are memoized through an injected calculation
// cache when one is provided; a nil cache simply computes everything fresh.
type BudgetCalculator struct {
	aggregator *TransactionAggregator
	cache      *cache.CalculationCache
}

// NewBudgetCalculator builds a calculator. cache may be nil to disable
// memoization.
func NewBudgetCalculator(aggregator *TransactionAggregator, calcCache *cache.CalculationCache) *BudgetCalculator {
	return &BudgetCalculator{
		aggregator: aggregator,
		cache:      calcCache,
	}
}

// Calculate derives a single budget-vs-actual result.
func (c *BudgetCalculator) Calculate(budgetAmount, actualAmount decimal.Decimal) core.BudgetCalculation {
	return core.NewBudgetCalculation(budgetAmount, actualAmount)
}

// WillExceedBudget reports whether adding amount to the current expense would
// push it past the budget. A pure predicate for the host UI to consult before
// confirming a new transaction.
func (c *BudgetCalculator) WillExceedBudget(amount, currentExpense, budgetAmount decimal.Decimal) bool {
	return core.SafeAdd(currentExpense, amount).GreaterThan(budgetAmount)
}

// CalculateMonthlyBudget produces the full budget report for one month: the
// overall budget (when one is active) and every category-scoped budget active
// that month.
//
// The overall actual is the month's total expense minus the expense
// attributable to excluded categories, floored at zero. Category actuals roll
// up: a major category counts its own transactions plus all of its declared
// children's; a minor category counts exact id matches only.
func (c *BudgetCalculator) CalculateMonthlyBudget(transactions []core.Transaction, budgets []core.Budget, categories []core.Category, year, month int, filter core.AggregationFilter, excludedCategoryIDs []string) core.MonthlyBudgetCalculation {
	if c.cache != nil {
		key := cache.MonthlyBudgetKey{
			Year:                year,
			Month:               month,
			FilterSignature:     FilterSignature(filter),
			ExclusionSignature:  ExclusionSignature(excludedCategoryIDs),
			TransactionsVersion: TransactionsVersion(transactions),
			BudgetsVersion:      BudgetsVersion(budgets),
		}
		if result, ok := c.cache.GetMonthlyBudget(key); ok {
			return result
		}
		result := c.calculateMonthlyBudget(transactions, budgets, categories, year, month, filter, excludedCategoryIDs)
		c.cache.SetMonthlyBudget(key, result)
		return result
	}
	return c.calculateMonthlyBudget(transactions, budgets, categories, year, month, filter, excludedCategoryIDs)
}

func (c *BudgetCalculator) calculateMonthlyBudget(transactions []core.Transaction, budgets []core.Budget, categories []core.Category, year, month int, filter core.AggregationFilter, excludedCategoryIDs []string) core.MonthlyBudgetCalculation {
	idx := core.NewCategoryIndex(categories)
	summary := c.aggregator.aggregateMonthlyWithIndex(transactions, idx, year, month, filter)

	result := core.MonthlyBudgetCalculation{Year: year, Month: month}

	for _, b := range budgets {
		if !b.Scope.IsOverall() || !b.Contains(year, month) {
			continue
		}
		actual := summary.TotalExpense
		if len(excludedCategoryIDs) > 0 {
			excluded := c.excludedExpense(transactions, year, month, filter, excludedCategoryIDs)
			actual = core.SafeSubtract(actual, excluded)
			if actual.Sign() < 0 {
				actual = decimal.Zero
			}
		}
		overall := core.NewBudgetCalculation(b.Amount, actual)
		result.Overall = &overall
		break
	}

	for _, b := range budgets {
		if b.Scope.IsOverall() || !b.Contains(year, month) {
			continue
		}
		categoryID := *b.Scope.CategoryID
		actual := c.categoryActual(transactions, idx, categoryID, year, month, filter)
		result.Categories = append(result.Categories, core.CategoryBudgetCalculation{
			CategoryID:   categoryID,
			CategoryName: idx.FullName(categoryID),
			Calculation:  core.NewBudgetCalculation(b.Amount, actual),
		})
	}

	return result
}

// categoryActual sums the month's expense for one category, rolling children
// into a major.
func (c *BudgetCalculator) categoryActual(transactions []core.Transaction, idx *core.CategoryIndex, categoryID string, year, month int, filter core.AggregationFilter) decimal.Decimal {
	category, ok := idx.Get(categoryID)
	if ok && category.IsMajor() {
		ids := append([]string{categoryID}, idx.ChildIDs(categoryID)...)
		return c.monthExpense(transactions, year, month, filter, func(t core.Transaction) bool {
			for _, id := range ids {
				if t.MatchesCategory(id) {
					return true
				}
			}
			return false
		})
	}
	return c.monthExpense(transactions, year, month, filter, func(t core.Transaction) bool {
		return t.MatchesCategory(categoryID)
	})
}

func (c *BudgetCalculator) excludedExpense(transactions []core.Transaction, year, month int, filter core.AggregationFilter, excludedCategoryIDs []string) decimal.Decimal {
	return c.monthExpense(transactions, year, month, filter, func(t core.Transaction) bool {
		for _, id := range excludedCategoryIDs {
			if t.MatchesCategory(id) {
				return true
			}
		}
		return false
	})
}

func (c *BudgetCalculator) monthExpense(transactions []core.Transaction, year, month int, filter core.AggregationFilter, match func(core.Transaction) bool) decimal.Decimal {
	total := decimal.Zero
	for _, t := range transactions {
		if t.Date.Year() != year || int(t.Date.Month()) != month {
			continue
		}
		if !t.IsExpense || !filter.Matches(t) {
			continue
		}
		if match(t) {
			total = core.SafeAdd(total, t.Amount)
		}
	}
	return total
}

// CalculateRecurringPaymentSavings emits one savings status row per
// definition: the running balance and the earliest upcoming occurrence.
func (c *BudgetCalculator) CalculateRecurringPaymentSavings(definitions []core.RecurringPaymentDefinition, balances []core.RecurringPaymentSavingBalance, year, month int, now time.Time) []core.RecurringPaymentSavingsCalculation {
	if c.cache != nil {
		key := cache.RecurringSavingsKey{
			Year:               year,
			Month:              month,
			DefinitionsVersion: DefinitionsVersion(definitions),
			BalancesVersion:    BalancesVersion(balances),
		}
		if result, ok := c.cache.GetRecurringSavings(key); ok {
			return result
		}
		result := c.calculateRecurringPaymentSavings(definitions, balances, now)
		c.cache.SetRecurringSavings(key, result)
		return result
	}
	return c.calculateRecurringPaymentSavings(definitions, balances, now)
}

func (c *BudgetCalculator) calculateRecurringPaymentSavings(definitions []core.RecurringPaymentDefinition, balances []core.RecurringPaymentSavingBalance, now time.Time) []core.RecurringPaymentSavingsCalculation {
	balanceByDefinition := make(map[string]core.RecurringPaymentSavingBalance, len(balances))
	for _, b := range balances {
		balanceByDefinition[b.DefinitionID] = b
	}

	results := make([]core.RecurringPaymentSavingsCalculation, 0, len(definitions))
	for _, d := range definitions {
		row := core.RecurringPaymentSavingsCalculation{
			DefinitionID:        d.ID,
			DefinitionName:      d.Name,
			MonthlySavingAmount: d.MonthlySavingAmount(),
			TotalSavedAmount:    decimal.Zero,
			TotalPaidAmount:     decimal.Zero,
			Balance:             decimal.Zero,
			NextOccurrence:      d.NextOccurrence(now),
		}
		if b, ok := balanceByDefinition[d.ID]; ok {
			row.TotalSavedAmount = b.TotalSavedAmount
			row.TotalPaidAmount = b.TotalPaidAmount
			row.Balance = b.Balance()
			row.IsInsufficient = b.IsBalanceInsufficient()
		}
		results = append(results, row)
	}
	return results
}

// CalculateMonthlySavingsAllocation sums the monthly saving amount of every
// definition with saving enabled.
func (c *BudgetCalculator) CalculateMonthlySavingsAllocation(definitions []core.RecurringPaymentDefinition, year, month int) decimal.Decimal {
	if c.cache != nil {
		key := cache.SavingsAllocationKey{
			Year:               year,
			Month:              month,
			DefinitionsVersion: DefinitionsVersion(definitions),
		}
		if total, ok := c.cache.GetMonthlySavings(key); ok {
			return total
		}
		total := c.calculateMonthlySavingsAllocation(definitions)
		c.cache.SetMonthlySavings(key, total)
		return total
	}
	return c.calculateMonthlySavingsAllocation(definitions)
}

func (c *BudgetCalculator) calculateMonthlySavingsAllocation(definitions []core.RecurringPaymentDefinition) decimal.Decimal {
	total := decimal.Zero
	for _, d := range definitions {
		if d.SavingStrategy == core.SavingDisabled {
			continue
		}
		total = core.SafeAdd(total, d.MonthlySavingAmount())
	}
	return total
}

// CalculateCategorySavingsAllocation sums monthly saving amounts per category
// id, over definitions that both carry a category and have saving enabled.
func (c *BudgetCalculator) CalculateCategorySavingsAllocation(definitions []core.RecurringPaymentDefinition, year, month int) map[string]decimal.Decimal {
	if c.cache != nil {
		key := cache.SavingsAllocationKey{
			Year:               year,
			Month:              month,
			DefinitionsVersion: DefinitionsVersion(definitions),
		}
		if byCategory, ok := c.cache.GetCategorySavings(key); ok {
			return byCategory
		}
		byCategory := c.calculateCategorySavingsAllocation(definitions)
		c.cache.SetCategorySavings(key, byCategory)
		return byCategory
	}
	return c.calculateCategorySavingsAllocation(definitions)
}

func (c *BudgetCalculator) calculateCategorySavingsAllocation(definitions []core.RecurringPaymentDefinition) map[string]decimal.Decimal {
	byCategory := make(map[string]decimal.Decimal)
	for _, d := range definitions {
		if d.SavingStrategy == core.SavingDisabled || d.CategoryID == nil {
			continue
		}
		current, ok := byCategory[*d.CategoryID]
		if !ok {
			current = decimal.Zero
		}
		byCategory[*d.CategoryID] = core.SafeAdd(current, d.MonthlySavingAmount())
	}
	return byCategory
}

// SortedCategorySavings renders a category savings map as (id, amount) pairs
// sorted by category id, for stable presentation.
func SortedCategorySavings(byCategory map[string]decimal.Decimal) []CategorySavings {
	ids := make([]string, 0, len(byCategory))
	for id := range byCategory {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]CategorySavings, 0, len(ids))
	for _, id := range ids {
		out = append(out, CategorySavings{CategoryID: id, Amount: byCategory[id]})
	}
	return out
}

// CategorySavings is one category's monthly savings allocation.
type CategorySavings struct {
	CategoryID string
	Amount     decimal.Decimal
}
