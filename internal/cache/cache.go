// Package cache memoizes the budget calculator's expensive entry points.
//
// Keys embed content-derived version hashes of their inputs, so an edit to
// any input collection changes the key and misses the cache naturally. The
// cache is a pure optimization: removing it must never change a computed
// result, only latency.
//
// This is the only shared mutable state in the engine. One coarse lock
// serializes every read, write, and invalidation; at personal-finance data
// volumes the lock is nowhere near contention.
package cache

import (
	"sync"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// Target selects which calculation kinds an invalidation clears.
type Target uint8

const (
	TargetMonthlyBudget Target = 1 << iota
	TargetRecurringPaymentSavings
	TargetMonthlySavings
	TargetCategorySavings

	TargetAll = TargetMonthlyBudget | TargetRecurringPaymentSavings | TargetMonthlySavings | TargetCategorySavings
)

// MonthlyBudgetKey identifies one monthly budget calculation.
type MonthlyBudgetKey struct {
	Year                int
	Month               int
	FilterSignature     string
	ExclusionSignature  string
	TransactionsVersion uint64
	BudgetsVersion      uint64
}

// RecurringSavingsKey identifies one recurring-payment savings calculation.
type RecurringSavingsKey struct {
	Year               int
	Month              int
	DefinitionsVersion uint64
	BalancesVersion    uint64
}

// SavingsAllocationKey identifies one monthly or per-category savings
// allocation calculation.
type SavingsAllocationKey struct {
	Year               int
	Month              int
	DefinitionsVersion uint64
}

// KindStats is the hit/miss counter pair for one calculation kind.
type KindStats struct {
	Hits   uint64
	Misses uint64
}

// Stats is a point-in-time snapshot of the cache counters, for observability
// and tuning only.
type Stats struct {
	MonthlyBudget           KindStats
	RecurringPaymentSavings KindStats
	MonthlySavings          KindStats
	CategorySavings         KindStats
}

// CalculationCache is a concurrency-safe memoization layer with one map per
// calculation kind. Construct one per process and inject it into the
// calculator; there is no implicit singleton.
type CalculationCache struct {
	mu sync.Mutex

	monthlyBudget    map[MonthlyBudgetKey]core.MonthlyBudgetCalculation
	recurringSavings map[RecurringSavingsKey][]core.RecurringPaymentSavingsCalculation
	monthlySavings   map[SavingsAllocationKey]decimal.Decimal
	categorySavings  map[SavingsAllocationKey]map[string]decimal.Decimal

	stats Stats
}

// New creates an empty calculation cache.
func New() *CalculationCache {
	c := &CalculationCache{}
	c.reset(TargetAll)
	return c
}

func (c *CalculationCache) reset(targets Target) {
	if targets&TargetMonthlyBudget != 0 {
		c.monthlyBudget = make(map[MonthlyBudgetKey]core.MonthlyBudgetCalculation)
	}
	if targets&TargetRecurringPaymentSavings != 0 {
		c.recurringSavings = make(map[RecurringSavingsKey][]core.RecurringPaymentSavingsCalculation)
	}
	if targets&TargetMonthlySavings != 0 {
		c.monthlySavings = make(map[SavingsAllocationKey]decimal.Decimal)
	}
	if targets&TargetCategorySavings != 0 {
		c.categorySavings = make(map[SavingsAllocationKey]map[string]decimal.Decimal)
	}
}

// Invalidate clears the maps selected by targets.
func (c *CalculationCache) Invalidate(targets Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset(targets)
}

// GetMonthlyBudget looks up a monthly budget calculation.
func (c *CalculationCache) GetMonthlyBudget(key MonthlyBudgetKey) (core.MonthlyBudgetCalculation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.monthlyBudget[key]
	c.count(&c.stats.MonthlyBudget, ok)
	return v, ok
}

// SetMonthlyBudget stores a monthly budget calculation.
func (c *CalculationCache) SetMonthlyBudget(key MonthlyBudgetKey, value core.MonthlyBudgetCalculation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monthlyBudget[key] = value
}

// GetRecurringSavings looks up a recurring-payment savings calculation.
func (c *CalculationCache) GetRecurringSavings(key RecurringSavingsKey) ([]core.RecurringPaymentSavingsCalculation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.recurringSavings[key]
	c.count(&c.stats.RecurringPaymentSavings, ok)
	if !ok {
		return nil, false
	}
	// Hand out a copy so callers cannot mutate the cached rows.
	out := make([]core.RecurringPaymentSavingsCalculation, len(v))
	copy(out, v)
	return out, true
}

// SetRecurringSavings stores a recurring-payment savings calculation.
func (c *CalculationCache) SetRecurringSavings(key RecurringSavingsKey, value []core.RecurringPaymentSavingsCalculation) {
	stored := make([]core.RecurringPaymentSavingsCalculation, len(value))
	copy(stored, value)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recurringSavings[key] = stored
}

// GetMonthlySavings looks up a monthly savings allocation total.
func (c *CalculationCache) GetMonthlySavings(key SavingsAllocationKey) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.monthlySavings[key]
	c.count(&c.stats.MonthlySavings, ok)
	return v, ok
}

// SetMonthlySavings stores a monthly savings allocation total.
func (c *CalculationCache) SetMonthlySavings(key SavingsAllocationKey, value decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.monthlySavings[key] = value
}

// GetCategorySavings looks up a per-category savings allocation map.
func (c *CalculationCache) GetCategorySavings(key SavingsAllocationKey) (map[string]decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.categorySavings[key]
	c.count(&c.stats.CategorySavings, ok)
	if !ok {
		return nil, false
	}
	// Hand out a copy so callers cannot mutate the cached map.
	out := make(map[string]decimal.Decimal, len(v))
	for k, amount := range v {
		out[k] = amount
	}
	return out, true
}

// SetCategorySavings stores a per-category savings allocation map.
func (c *CalculationCache) SetCategorySavings(key SavingsAllocationKey, value map[string]decimal.Decimal) {
	stored := make(map[string]decimal.Decimal, len(value))
	for k, amount := range value {
		stored[k] = amount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categorySavings[key] = stored
}

// Snapshot returns the current hit/miss counters.
func (c *CalculationCache) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Size returns the total number of cached entries across all kinds.
func (c *CalculationCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.monthlyBudget) + len(c.recurringSavings) + len(c.monthlySavings) + len(c.categorySavings)
}

func (c *CalculationCache) count(stats *KindStats, hit bool) {
	if hit {
		stats.Hits++
	} else {
		stats.Misses++
	}
}
