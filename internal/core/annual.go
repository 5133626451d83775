package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// AllocationPolicy controls how a category draws from the annual pool.
type AllocationPolicy string

const (
	// PolicyAutomatic draws a category's overspend from the pool every month.
	PolicyAutomatic AllocationPolicy = "automatic"
	// PolicyManual surfaces overspend for the user to allocate by hand;
	// nothing is drawn automatically.
	PolicyManual AllocationPolicy = "manual"
	// PolicyFullCoverage charges the category's entire spend to the pool,
	// ignoring any monthly budget.
	PolicyFullCoverage AllocationPolicy = "fullCoverage"
	// PolicyDisabled removes the category from annual-pool processing.
	PolicyDisabled AllocationPolicy = "disabled"
)

// Valid reports whether p is one of the four known policies.
func (p AllocationPolicy) Valid() bool {
	switch p {
	case PolicyAutomatic, PolicyManual, PolicyFullCoverage, PolicyDisabled:
		return true
	}
	return false
}

// AnnualBudgetAllocation reserves part of the annual pool for one category,
// optionally overriding the config's default policy for that category.
type AnnualBudgetAllocation struct {
	CategoryID     string
	Amount         decimal.Decimal
	PolicyOverride *AllocationPolicy
}

// AnnualBudgetConfig is one year's annual special-budget setup: the pooled
// total, the default policy, and per-category reservations.
//
// Category ids within Allocations must be unique; the editor enforces this
// and the engine's ValidateConfig re-checks it as a precondition.
type AnnualBudgetConfig struct {
	Year        int
	TotalAmount decimal.Decimal
	Policy      AllocationPolicy
	Allocations []AnnualBudgetAllocation
	UpdatedAt   time.Time
}

// EffectivePolicy resolves the policy for a category: its override when one
// exists, the config default otherwise.
func (c AnnualBudgetConfig) EffectivePolicy(categoryID string) AllocationPolicy {
	for _, a := range c.Allocations {
		if a.CategoryID == categoryID && a.PolicyOverride != nil {
			return *a.PolicyOverride
		}
	}
	return c.Policy
}

// Allocation returns the reservation entry for a category, if any.
func (c AnnualBudgetConfig) Allocation(categoryID string) (AnnualBudgetAllocation, bool) {
	for _, a := range c.Allocations {
		if a.CategoryID == categoryID {
			return a, true
		}
	}
	return AnnualBudgetAllocation{}, false
}

// HasPolicyOverrides reports whether any allocation carries a policy override.
func (c AnnualBudgetConfig) HasPolicyOverrides() bool {
	for _, a := range c.Allocations {
		if a.PolicyOverride != nil {
			return true
		}
	}
	return false
}

// CategoryAllocation is the per-category result of one month's annual-pool
// processing.
type CategoryAllocation struct {
	CategoryID               string
	CategoryName             string
	AnnualBudgetAmount       decimal.Decimal
	MonthlyBudgetAmount      decimal.Decimal
	ActualAmount             decimal.Decimal
	ExcessAmount             decimal.Decimal
	AllocatableAmount        decimal.Decimal
	RemainingAfterAllocation decimal.Decimal
}

// AnnualBudgetRemainingAmount is the category's reserved annual amount not yet
// drawn.
func (a CategoryAllocation) AnnualBudgetRemainingAmount() decimal.Decimal {
	return SafeSubtract(a.AnnualBudgetAmount, a.AllocatableAmount)
}

// AnnualBudgetUsageRate is allocatable over the reserved annual amount,
// 0 when nothing is reserved.
func (a CategoryAllocation) AnnualBudgetUsageRate() float64 {
	return Rate(a.AllocatableAmount, a.AnnualBudgetAmount)
}

// MonthlyAllocation is the full annual-pool result for one month.
type MonthlyAllocation struct {
	Year        int
	Month       int
	Allocations []CategoryAllocation
}

// AnnualBudgetUsage is the year-to-date view of the pool: month-by-month
// allocatable amounts folded into per-category running totals.
type AnnualBudgetUsage struct {
	Year                int
	TotalAmount         decimal.Decimal
	UsedAmount          decimal.Decimal
	RemainingAmount     decimal.Decimal
	UsageRate           float64
	CategoryAllocations []CategoryAllocation
}
