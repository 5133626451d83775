package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/core"
)

// TransactionAggregator filters and sums transactions into per-category,
// per-month, and per-year summaries.
type TransactionAggregator struct{}

// NewTransactionAggregator returns a stateless aggregator.
func NewTransactionAggregator() *TransactionAggregator {
	return &TransactionAggregator{}
}

type categoryGroupKey struct {
	name  string
	id    string
	hasID bool
}

// AggregateMonthly sums the transactions of one calendar month into a
// MonthlySummary, grouped by category.
//
// Grouping prefers the minor category when present, falls back to the major,
// and finally to the uncategorized bucket with a nil id. The group key pairs
// the display name with the id, so two categories sharing a computed full
// name are never merged.
func (a *TransactionAggregator) AggregateMonthly(transactions []core.Transaction, categories []core.Category, year, month int, filter core.AggregationFilter) core.MonthlySummary {
	idx := core.NewCategoryIndex(categories)
	return a.aggregateMonthlyWithIndex(transactions, idx, year, month, filter)
}

func (a *TransactionAggregator) aggregateMonthlyWithIndex(transactions []core.Transaction, idx *core.CategoryIndex, year, month int, filter core.AggregationFilter) core.MonthlySummary {
	summary := core.MonthlySummary{
		Year:         year,
		Month:        month,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Net:          decimal.Zero,
	}

	groups := make(map[categoryGroupKey]*core.CategorySummary)
	var order []categoryGroupKey

	for _, t := range transactions {
		if t.Date.Year() != year || int(t.Date.Month()) != month {
			continue
		}
		if !filter.Matches(t) {
			continue
		}

		key := a.groupKey(t, idx)
		group, ok := groups[key]
		if !ok {
			group = &core.CategorySummary{
				CategoryName: key.name,
				TotalIncome:  decimal.Zero,
				TotalExpense: decimal.Zero,
				Net:          decimal.Zero,
			}
			if key.hasID {
				id := key.id
				group.CategoryID = &id
			}
			groups[key] = group
			order = append(order, key)
		}

		if t.IsIncome {
			group.TotalIncome = core.SafeAdd(group.TotalIncome, t.Amount)
			summary.TotalIncome = core.SafeAdd(summary.TotalIncome, t.Amount)
		}
		if t.IsExpense {
			group.TotalExpense = core.SafeAdd(group.TotalExpense, t.Amount)
			summary.TotalExpense = core.SafeAdd(summary.TotalExpense, t.Amount)
		}
		group.Count++
		summary.Count++
	}

	summary.Net = core.SafeSubtract(summary.TotalIncome, summary.TotalExpense)
	for _, key := range order {
		group := groups[key]
		group.Net = core.SafeSubtract(group.TotalIncome, group.TotalExpense)
		summary.Categories = append(summary.Categories, *group)
	}
	sort.SliceStable(summary.Categories, func(i, j int) bool {
		a, b := summary.Categories[i], summary.Categories[j]
		if !a.TotalExpense.Equal(b.TotalExpense) {
			return a.TotalExpense.GreaterThan(b.TotalExpense)
		}
		return a.CategoryName < b.CategoryName
	})
	return summary
}

func (a *TransactionAggregator) groupKey(t core.Transaction, idx *core.CategoryIndex) categoryGroupKey {
	id := t.CategoryID()
	if id == nil {
		return categoryGroupKey{name: core.UncategorizedName}
	}
	return categoryGroupKey{name: idx.FullName(*id), id: *id, hasID: true}
}

// AggregateAnnually sums a whole year and computes the twelve nested monthly
// summaries. Months are independent of each other, so they are aggregated
// concurrently and reassembled in calendar order.
func (a *TransactionAggregator) AggregateAnnually(ctx context.Context, transactions []core.Transaction, categories []core.Category, year int, filter core.AggregationFilter) (core.AnnualSummary, error) {
	idx := core.NewCategoryIndex(categories)

	annual := core.AnnualSummary{
		Year:         year,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
		Net:          decimal.Zero,
		Months:       make([]core.MonthlySummary, 12),
	}

	g, _ := errgroup.WithContext(ctx)
	for month := 1; month <= 12; month++ {
		month := month
		g.Go(func() error {
			annual.Months[month-1] = a.aggregateMonthlyWithIndex(transactions, idx, year, month, filter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.AnnualSummary{}, fmt.Errorf("aggregate year %d: %w", year, err)
	}

	groups := make(map[categoryGroupKey]*core.CategorySummary)
	var order []categoryGroupKey
	for _, monthly := range annual.Months {
		annual.TotalIncome = core.SafeAdd(annual.TotalIncome, monthly.TotalIncome)
		annual.TotalExpense = core.SafeAdd(annual.TotalExpense, monthly.TotalExpense)
		annual.Count += monthly.Count
		for _, cs := range monthly.Categories {
			key := categoryGroupKey{name: cs.CategoryName}
			if cs.CategoryID != nil {
				key.id = *cs.CategoryID
				key.hasID = true
			}
			group, ok := groups[key]
			if !ok {
				group = &core.CategorySummary{
					CategoryID:   cs.CategoryID,
					CategoryName: cs.CategoryName,
					TotalIncome:  decimal.Zero,
					TotalExpense: decimal.Zero,
					Net:          decimal.Zero,
				}
				groups[key] = group
				order = append(order, key)
			}
			group.TotalIncome = core.SafeAdd(group.TotalIncome, cs.TotalIncome)
			group.TotalExpense = core.SafeAdd(group.TotalExpense, cs.TotalExpense)
			group.Count += cs.Count
		}
	}

	annual.Net = core.SafeSubtract(annual.TotalIncome, annual.TotalExpense)
	for _, key := range order {
		group := groups[key]
		group.Net = core.SafeSubtract(group.TotalIncome, group.TotalExpense)
		annual.Categories = append(annual.Categories, *group)
	}
	sort.SliceStable(annual.Categories, func(i, j int) bool {
		a, b := annual.Categories[i], annual.Categories[j]
		if !a.TotalExpense.Equal(b.TotalExpense) {
			return a.TotalExpense.GreaterThan(b.TotalExpense)
		}
		return a.CategoryName < b.CategoryName
	})
	return annual, nil
}
