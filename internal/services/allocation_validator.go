package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// checkUniqueAllocationCategories enforces the engine's precondition that a
// category appears at most once in a config. Lookup is by category id, so a
// duplicate would silently shadow one of the entries.
func checkUniqueAllocationCategories(config core.AnnualBudgetConfig) error {
	seen := make(map[string]bool, len(config.Allocations))
	for _, a := range config.Allocations {
		if seen[a.CategoryID] {
			return fmt.Errorf("category %s: %w", a.CategoryID, core.ErrDuplicateAllocationCategory)
		}
		seen[a.CategoryID] = true
	}
	return nil
}

// ValidateAnnualBudgetConfig checks a config before it is applied. These are
// the finalization outcomes the editor reports to the user; an invalid config
// is never partially applied.
//
//   - an unknown policy anywhere is rejected,
//   - category ids must be unique,
//   - a manual-policy config must have allocation rows, and their amounts
//     must sum exactly to the pool total.
func ValidateAnnualBudgetConfig(config core.AnnualBudgetConfig) error {
	if !config.Policy.Valid() {
		return fmt.Errorf("policy %q: %w", config.Policy, core.ErrInvalidPolicy)
	}
	for _, a := range config.Allocations {
		if a.PolicyOverride != nil && !a.PolicyOverride.Valid() {
			return fmt.Errorf("category %s override %q: %w", a.CategoryID, *a.PolicyOverride, core.ErrInvalidPolicy)
		}
	}
	if err := checkUniqueAllocationCategories(config); err != nil {
		return err
	}
	if config.Policy == core.PolicyManual {
		if len(config.Allocations) == 0 {
			return core.ErrNoAllocations
		}
		total := decimal.Zero
		for _, a := range config.Allocations {
			total = core.SafeAdd(total, a.Amount)
		}
		if !total.Equal(config.TotalAmount) {
			return fmt.Errorf("allocated %s of %s: %w", total, config.TotalAmount, core.ErrAllocationTotalMismatch)
		}
	}
	return nil
}
