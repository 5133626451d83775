package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// AnnualAllocationEngine distributes a fixed annual pool of money across
// categories. Each month, every participating category resolves to one of
// four policies; the month's allocations then accumulate into year-to-date
// usage of the pool.
type AnnualAllocationEngine struct{}

// NewAnnualAllocationEngine returns a stateless engine.
func NewAnnualAllocationEngine() *AnnualAllocationEngine {
	return &AnnualAllocationEngine{}
}

// computeAllocation is the single source of truth for policy semantics.
//
//	disabled:     nothing happens.
//	manual:       overspend is surfaced as remaining; nothing is drawn.
//	automatic:    overspend is drawn from the pool.
//	fullCoverage: the entire spend is drawn, the monthly budget is ignored.
func (e *AnnualAllocationEngine) computeAllocation(policy core.AllocationPolicy, annualAmount, monthlyBudget, actual decimal.Decimal, categoryID, categoryName string) core.CategoryAllocation {
	alloc := core.CategoryAllocation{
		CategoryID:               categoryID,
		CategoryName:             categoryName,
		AnnualBudgetAmount:       annualAmount,
		MonthlyBudgetAmount:      monthlyBudget,
		ActualAmount:             actual,
		ExcessAmount:             decimal.Zero,
		AllocatableAmount:        decimal.Zero,
		RemainingAfterAllocation: decimal.Zero,
	}

	excess := core.SafeSubtract(actual, monthlyBudget)
	if excess.Sign() < 0 {
		excess = decimal.Zero
	}

	switch policy {
	case core.PolicyDisabled:
		// all zero
	case core.PolicyManual:
		alloc.ExcessAmount = excess
		alloc.RemainingAfterAllocation = excess
	case core.PolicyAutomatic:
		alloc.ExcessAmount = excess
		alloc.AllocatableAmount = excess
	case core.PolicyFullCoverage:
		alloc.ExcessAmount = actual
		alloc.AllocatableAmount = actual
	}
	return alloc
}

// CalculateMonthlyAllocation computes one month's annual-pool allocations.
//
// Three passes run in order, each skipping categories an earlier pass already
// processed:
//  1. categories carrying a monthly budget active this month,
//  2. full-coverage override categories with no monthly budget (sorted by
//     full display name for deterministic output),
//  3. remaining categories with an explicit annual allocation entry.
//
// Returns ErrDuplicateAllocationCategory when the config lists a category
// twice; the engine does not deduplicate.
func (e *AnnualAllocationEngine) CalculateMonthlyAllocation(config core.AnnualBudgetConfig, transactions []core.Transaction, budgets []core.Budget, categories []core.Category, year, month int, filter core.AggregationFilter) (core.MonthlyAllocation, error) {
	if err := checkUniqueAllocationCategories(config); err != nil {
		return core.MonthlyAllocation{}, err
	}

	result := core.MonthlyAllocation{Year: year, Month: month}

	// An all-disabled config with zero overrides cannot allocate anything.
	if config.Policy == core.PolicyDisabled && !config.HasPolicyOverrides() {
		return result, nil
	}

	idx := core.NewCategoryIndex(categories)
	fallback := buildChildFallbackMap(transactions)
	processed := make(map[string]bool)

	// Pass 1: monthly-budget-bearing categories.
	for _, b := range budgets {
		if b.Scope.IsOverall() || !b.Contains(year, month) {
			continue
		}
		categoryID := *b.Scope.CategoryID
		if processed[categoryID] {
			continue
		}
		if !e.eligible(config, idx, categoryID) {
			continue
		}
		policy := config.EffectivePolicy(categoryID)
		if policy == core.PolicyDisabled {
			continue
		}
		actual := e.actualAmount(config, idx, fallback, transactions, categoryID, year, month, filter)
		result.Allocations = append(result.Allocations, e.computeAllocation(
			policy, e.annualAmount(config, categoryID), b.Amount, actual,
			categoryID, idx.FullName(categoryID)))
		processed[categoryID] = true
	}

	// Pass 2: full-coverage override categories with no monthly budget.
	overrides := make([]core.AnnualBudgetAllocation, 0, len(config.Allocations))
	for _, a := range config.Allocations {
		if a.PolicyOverride != nil && *a.PolicyOverride == core.PolicyFullCoverage {
			overrides = append(overrides, a)
		}
	}
	sort.SliceStable(overrides, func(i, j int) bool {
		return idx.FullName(overrides[i].CategoryID) < idx.FullName(overrides[j].CategoryID)
	})
	for _, a := range overrides {
		if processed[a.CategoryID] {
			continue
		}
		if config.EffectivePolicy(a.CategoryID) != core.PolicyFullCoverage {
			continue
		}
		actual := e.actualAmount(config, idx, fallback, transactions, a.CategoryID, year, month, filter)
		if actual.Sign() <= 0 {
			continue
		}
		result.Allocations = append(result.Allocations, e.computeAllocation(
			core.PolicyFullCoverage, a.Amount, decimal.Zero, actual,
			a.CategoryID, idx.FullName(a.CategoryID)))
		processed[a.CategoryID] = true
	}

	// Pass 3: remaining unbudgeted categories with an explicit allocation entry.
	for _, a := range config.Allocations {
		if processed[a.CategoryID] {
			continue
		}
		policy := config.EffectivePolicy(a.CategoryID)
		if policy == core.PolicyDisabled {
			continue
		}
		actual := e.actualAmount(config, idx, fallback, transactions, a.CategoryID, year, month, filter)
		if actual.Sign() <= 0 {
			continue
		}
		result.Allocations = append(result.Allocations, e.computeAllocation(
			policy, a.Amount, decimal.Zero, actual,
			a.CategoryID, idx.FullName(a.CategoryID)))
		processed[a.CategoryID] = true
	}

	return result, nil
}

// eligible reports whether a category may draw from the pool: it either
// opted in (AllowsAnnualBudget) or the config reserves an amount for it.
func (e *AnnualAllocationEngine) eligible(config core.AnnualBudgetConfig, idx *core.CategoryIndex, categoryID string) bool {
	if _, ok := config.Allocation(categoryID); ok {
		return true
	}
	category, ok := idx.Get(categoryID)
	return ok && category.AllowsAnnualBudget
}

func (e *AnnualAllocationEngine) annualAmount(config core.AnnualBudgetConfig, categoryID string) decimal.Decimal {
	if a, ok := config.Allocation(categoryID); ok {
		return a.Amount
	}
	return decimal.Zero
}

// actualAmount computes one category's spend for the month.
//
// A major category rolls up its own direct transactions plus its children's,
// except children that hold their own allocation entry in the config (those
// are tracked independently to avoid double counting). When the category
// table declares no children for the major, the empirical child set scanned
// from the transactions themselves is used instead.
func (e *AnnualAllocationEngine) actualAmount(config core.AnnualBudgetConfig, idx *core.CategoryIndex, fallback map[string][]string, transactions []core.Transaction, categoryID string, year, month int, filter core.AggregationFilter) decimal.Decimal {
	category, hasCategory := idx.Get(categoryID)

	included := map[string]bool{categoryID: true}
	if hasCategory && category.IsMajor() {
		childIDs := idx.ChildIDs(categoryID)
		if len(childIDs) == 0 {
			childIDs = fallback[categoryID]
		}
		for _, childID := range childIDs {
			if _, hasOwnEntry := config.Allocation(childID); hasOwnEntry {
				continue
			}
			included[childID] = true
		}
	}

	total := decimal.Zero
	for _, t := range transactions {
		if t.Date.Year() != year || int(t.Date.Month()) != month {
			continue
		}
		if !t.IsExpense || !filter.Matches(t) {
			continue
		}
		effective := t.CategoryID()
		if effective == nil || !included[*effective] {
			continue
		}
		total = core.SafeAdd(total, t.Amount)
	}
	return total
}

// buildChildFallbackMap recovers major-to-minor links from the transactions
// themselves, for majors whose declared children were lost (a transaction
// referencing a minor category still names its major).
func buildChildFallbackMap(transactions []core.Transaction) map[string][]string {
	seen := make(map[string]map[string]bool)
	fallback := make(map[string][]string)
	for _, t := range transactions {
		if t.MajorCategoryID == nil || t.MinorCategoryID == nil {
			continue
		}
		major, minor := *t.MajorCategoryID, *t.MinorCategoryID
		if seen[major] == nil {
			seen[major] = make(map[string]bool)
		}
		if seen[major][minor] {
			continue
		}
		seen[major][minor] = true
		fallback[major] = append(fallback[major], minor)
	}
	for major := range fallback {
		sort.Strings(fallback[major])
	}
	return fallback
}

// CalculateAnnualUsage folds months 1..upToMonth into year-to-date pool usage.
//
// Accumulators are pre-seeded from the config's allocation entries so a
// category with no activity still surfaces with zero amounts. upToMonth
// outside 1-12 means a full year. Months must run in ascending order: a later
// month's processed-set legitimately differs from an earlier one's.
func (e *AnnualAllocationEngine) CalculateAnnualUsage(config core.AnnualBudgetConfig, transactions []core.Transaction, budgets []core.Budget, categories []core.Category, upToMonth int, filter core.AggregationFilter) (core.AnnualBudgetUsage, error) {
	if err := checkUniqueAllocationCategories(config); err != nil {
		return core.AnnualBudgetUsage{}, err
	}

	usage := core.AnnualBudgetUsage{
		Year:            config.Year,
		TotalAmount:     config.TotalAmount,
		UsedAmount:      decimal.Zero,
		RemainingAmount: config.TotalAmount,
	}

	if config.Policy == core.PolicyDisabled && !config.HasPolicyOverrides() {
		return usage, nil
	}

	if upToMonth < 1 || upToMonth > 12 {
		upToMonth = 12
	}

	idx := core.NewCategoryIndex(categories)
	accumulators := make(map[string]*core.CategoryAllocation)
	var order []string
	for _, a := range config.Allocations {
		accumulators[a.CategoryID] = &core.CategoryAllocation{
			CategoryID:               a.CategoryID,
			CategoryName:             idx.FullName(a.CategoryID),
			AnnualBudgetAmount:       a.Amount,
			MonthlyBudgetAmount:      decimal.Zero,
			ActualAmount:             decimal.Zero,
			ExcessAmount:             decimal.Zero,
			AllocatableAmount:        decimal.Zero,
			RemainingAfterAllocation: decimal.Zero,
		}
		order = append(order, a.CategoryID)
	}

	for month := 1; month <= upToMonth; month++ {
		monthly, err := e.CalculateMonthlyAllocation(config, transactions, budgets, categories, config.Year, month, filter)
		if err != nil {
			return core.AnnualBudgetUsage{}, err
		}
		for _, alloc := range monthly.Allocations {
			acc, ok := accumulators[alloc.CategoryID]
			if !ok {
				acc = &core.CategoryAllocation{
					CategoryID:               alloc.CategoryID,
					CategoryName:             alloc.CategoryName,
					AnnualBudgetAmount:       alloc.AnnualBudgetAmount,
					MonthlyBudgetAmount:      decimal.Zero,
					ActualAmount:             decimal.Zero,
					ExcessAmount:             decimal.Zero,
					AllocatableAmount:        decimal.Zero,
					RemainingAfterAllocation: decimal.Zero,
				}
				accumulators[alloc.CategoryID] = acc
				order = append(order, alloc.CategoryID)
			}
			// AnnualBudgetAmount is fixed from the config, never summed.
			acc.MonthlyBudgetAmount = core.SafeAdd(acc.MonthlyBudgetAmount, alloc.MonthlyBudgetAmount)
			acc.ActualAmount = core.SafeAdd(acc.ActualAmount, alloc.ActualAmount)
			acc.ExcessAmount = core.SafeAdd(acc.ExcessAmount, alloc.ExcessAmount)
			acc.AllocatableAmount = core.SafeAdd(acc.AllocatableAmount, alloc.AllocatableAmount)
			acc.RemainingAfterAllocation = core.SafeAdd(acc.RemainingAfterAllocation, alloc.RemainingAfterAllocation)
			usage.UsedAmount = core.SafeAdd(usage.UsedAmount, alloc.AllocatableAmount)
		}
	}

	for _, categoryID := range order {
		usage.CategoryAllocations = append(usage.CategoryAllocations, *accumulators[categoryID])
	}
	sort.SliceStable(usage.CategoryAllocations, func(i, j int) bool {
		return usage.CategoryAllocations[i].CategoryName < usage.CategoryAllocations[j].CategoryName
	})

	usage.RemainingAmount = core.SafeSubtract(config.TotalAmount, usage.UsedAmount)
	usage.UsageRate = core.Rate(usage.UsedAmount, config.TotalAmount)
	return usage, nil
}
