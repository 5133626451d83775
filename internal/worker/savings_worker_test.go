package worker

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cache"
	"kakeibo/internal/core"
)

func TestCacheInvalidatorTargets(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		cleared    cache.Target
		kept       cache.Target
	}{
		{
			name:       "transactions clear monthly budget",
			collection: amqp.CollectionTransactions,
			cleared:    cache.TargetMonthlyBudget,
			kept:       cache.TargetMonthlySavings,
		},
		{
			name:       "budgets clear monthly budget",
			collection: amqp.CollectionBudgets,
			cleared:    cache.TargetMonthlyBudget,
			kept:       cache.TargetRecurringPaymentSavings,
		},
		{
			name:       "recurring clears all savings kinds",
			collection: amqp.CollectionRecurring,
			cleared:    cache.TargetRecurringPaymentSavings | cache.TargetMonthlySavings | cache.TargetCategorySavings,
			kept:       cache.TargetMonthlyBudget,
		},
		{
			name:       "balances clear recurring savings only",
			collection: amqp.CollectionBalances,
			cleared:    cache.TargetRecurringPaymentSavings,
			kept:       cache.TargetMonthlyBudget | cache.TargetMonthlySavings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calcCache := cache.New()
			seedCache(calcCache)

			h := NewCacheInvalidator(calcCache)
			msg := &amqp.DataChangedMessage{Collection: tt.collection}
			if err := h.HandleDataChanged(context.Background(), msg); err != nil {
				t.Fatalf("HandleDataChanged: %v", err)
			}

			if hasEntries(calcCache, tt.cleared) {
				t.Errorf("targets %b should be cleared", tt.cleared)
			}
			if !hasEntries(calcCache, tt.kept) {
				t.Errorf("targets %b should survive", tt.kept)
			}
		})
	}
}

func TestCacheInvalidatorUnknownCollection(t *testing.T) {
	h := NewCacheInvalidator(cache.New())
	msg := &amqp.DataChangedMessage{Collection: "bogus"}
	if err := h.HandleDataChanged(context.Background(), msg); err == nil {
		t.Fatal("unknown collection must error")
	}
}

func TestCacheInvalidatorIgnoresSavingsPost(t *testing.T) {
	calcCache := cache.New()
	seedCache(calcCache)
	h := NewCacheInvalidator(calcCache)
	if err := h.HandleSavingsPost(context.Background(), &amqp.SavingsPostMessage{Year: 2025, Month: 6}); err != nil {
		t.Fatalf("HandleSavingsPost: %v", err)
	}
	if calcCache.Size() == 0 {
		t.Fatal("savings post must not touch the cache")
	}
}

// seedCache puts one entry into every calculation kind.
func seedCache(c *cache.CalculationCache) {
	c.SetMonthlyBudget(cache.MonthlyBudgetKey{Year: 2025, Month: 1}, core.MonthlyBudgetCalculation{})
	c.SetRecurringSavings(cache.RecurringSavingsKey{Year: 2025, Month: 1}, nil)
	c.SetMonthlySavings(cache.SavingsAllocationKey{Year: 2025, Month: 1}, decimal.NewFromInt(22500))
	c.SetCategorySavings(cache.SavingsAllocationKey{Year: 2025, Month: 1}, nil)
}

func hasEntries(c *cache.CalculationCache, targets cache.Target) bool {
	if targets&cache.TargetMonthlyBudget != 0 {
		if _, ok := c.GetMonthlyBudget(cache.MonthlyBudgetKey{Year: 2025, Month: 1}); !ok {
			return false
		}
	}
	if targets&cache.TargetRecurringPaymentSavings != 0 {
		if _, ok := c.GetRecurringSavings(cache.RecurringSavingsKey{Year: 2025, Month: 1}); !ok {
			return false
		}
	}
	if targets&cache.TargetMonthlySavings != 0 {
		if _, ok := c.GetMonthlySavings(cache.SavingsAllocationKey{Year: 2025, Month: 1}); !ok {
			return false
		}
	}
	if targets&cache.TargetCategorySavings != 0 {
		if _, ok := c.GetCategorySavings(cache.SavingsAllocationKey{Year: 2025, Month: 1}); !ok {
			return false
		}
	}
	return true
}
