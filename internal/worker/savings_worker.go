// Package worker consumes the engine's change events: it posts monthly
// recurring savings on schedule and keeps serving processes' calculation
// caches invalidated.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cache"
	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

// SavingsWorker handles savings-post messages: it posts one month's savings
// for every definition and announces the balance change so serving processes
// drop their cached savings results.
type SavingsWorker struct {
	storage  *storage.SQLiteRepository
	balances *services.RecurringPaymentBalanceService
	events   *amqp.Client
}

// NewSavingsWorker builds a worker. events may be nil; balance changes are
// then not announced.
func NewSavingsWorker(repo *storage.SQLiteRepository, balances *services.RecurringPaymentBalanceService, events *amqp.Client) *SavingsWorker {
	return &SavingsWorker{
		storage:  repo,
		balances: balances,
		events:   events,
	}
}

// HandleDataChanged is a no-op: the worker process holds no calculation
// cache.
func (w *SavingsWorker) HandleDataChanged(ctx context.Context, msg *amqp.DataChangedMessage) error {
	return nil
}

// HandleSavingsPost posts one month's savings for every definition with
// saving enabled. The balance service's (year, month) guard makes redelivery
// of the same message a no-op.
func (w *SavingsWorker) HandleSavingsPost(ctx context.Context, msg *amqp.SavingsPostMessage) error {
	definitions, err := w.storage.ListRecurringDefinitions(ctx)
	if err != nil {
		return fmt.Errorf("load recurring definitions: %w", err)
	}

	slog.InfoContext(ctx, "Posting monthly savings",
		"year", msg.Year,
		"month", msg.Month,
		"definitions", len(definitions))

	posted := 0
	now := time.Now().UTC()
	for _, d := range definitions {
		if d.MonthlySavingAmount().IsZero() {
			continue
		}

		balance, err := w.storage.GetSavingBalance(ctx, d.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load saving balance",
				"definition_id", d.ID,
				"error", err)
			continue
		}

		updated, applied := w.balances.RecordMonthlySavings(d, balance, msg.Year, msg.Month, now)
		if !applied {
			slog.InfoContext(ctx, "Savings already posted for month",
				"definition_id", d.ID,
				"year", msg.Year,
				"month", msg.Month)
			continue
		}

		if err := w.storage.SaveSavingBalance(ctx, updated); err != nil {
			slog.ErrorContext(ctx, "Failed to save balance",
				"definition_id", d.ID,
				"error", err)
			continue
		}

		posted++
		slog.InfoContext(ctx, "Posted monthly savings",
			"definition_id", d.ID,
			"name", d.Name,
			"amount", d.MonthlySavingAmount().String(),
			"total_saved", updated.TotalSavedAmount.String())
	}

	if posted > 0 && w.events != nil {
		if err := w.events.PublishDataChanged(ctx, amqp.CollectionBalances); err != nil {
			slog.ErrorContext(ctx, "Failed to announce balance change", "error", err)
			// Balances are saved; serving caches still miss on the new
			// version hashes even without the announcement.
		}
	}

	slog.InfoContext(ctx, "Monthly savings posting complete",
		"posted", posted,
		"total_checked", len(definitions))
	return nil
}

// CacheInvalidator is the serving process's event handler: it clears the
// cache targets matching a mutated collection and ignores savings posting
// (that is the worker's job).
type CacheInvalidator struct {
	cache *cache.CalculationCache
}

// NewCacheInvalidator wraps a calculation cache.
func NewCacheInvalidator(calcCache *cache.CalculationCache) *CacheInvalidator {
	return &CacheInvalidator{cache: calcCache}
}

// HandleDataChanged invalidates the targets matching the collection.
func (h *CacheInvalidator) HandleDataChanged(ctx context.Context, msg *amqp.DataChangedMessage) error {
	var targets cache.Target
	switch msg.Collection {
	case amqp.CollectionTransactions, amqp.CollectionBudgets:
		targets = cache.TargetMonthlyBudget
	case amqp.CollectionRecurring:
		targets = cache.TargetRecurringPaymentSavings | cache.TargetMonthlySavings | cache.TargetCategorySavings
	case amqp.CollectionBalances:
		targets = cache.TargetRecurringPaymentSavings
	default:
		return fmt.Errorf("unknown collection %q", msg.Collection)
	}
	h.cache.Invalidate(targets)
	slog.InfoContext(ctx, "Invalidated calculation cache",
		"collection", msg.Collection)
	return nil
}

// HandleSavingsPost is a no-op in the serving process.
func (h *CacheInvalidator) HandleSavingsPost(ctx context.Context, msg *amqp.SavingsPostMessage) error {
	return nil
}
