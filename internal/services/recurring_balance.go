package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// PaymentTolerance is the rounding slack within which a payment counts as
// exact: one currency unit either way.
var PaymentTolerance = decimal.NewFromInt(1)

// RecurringPaymentBalanceService maintains the lifetime saved/paid ledger for
// recurring irregular expenses. Balances only ever grow; there is no
// per-cycle reset.
type RecurringPaymentBalanceService struct{}

// NewRecurringPaymentBalanceService returns a stateless service.
func NewRecurringPaymentBalanceService() *RecurringPaymentBalanceService {
	return &RecurringPaymentBalanceService{}
}

// RecordMonthlySavings posts one month's saving amount for a definition.
//
// A nil balance creates a fresh one seeded with the monthly amount. Posting
// twice for the same (year, month) is a no-op: the guard keeps a re-run of
// the posting job from double-counting. Returns the updated balance and
// whether the post was applied.
func (s *RecurringPaymentBalanceService) RecordMonthlySavings(definition core.RecurringPaymentDefinition, balance *core.RecurringPaymentSavingBalance, year, month int, now time.Time) (core.RecurringPaymentSavingBalance, bool) {
	amount := definition.MonthlySavingAmount()

	if balance == nil {
		return core.RecurringPaymentSavingBalance{
			ID:               definition.ID,
			DefinitionID:     definition.ID,
			TotalSavedAmount: amount,
			TotalPaidAmount:  decimal.Zero,
			LastUpdatedYear:  year,
			LastUpdatedMonth: month,
			UpdatedAt:        now,
		}, true
	}

	if balance.LastUpdatedYear == year && balance.LastUpdatedMonth == month {
		return *balance, false
	}

	updated := *balance
	updated.TotalSavedAmount = core.SafeAdd(updated.TotalSavedAmount, amount)
	updated.LastUpdatedYear = year
	updated.LastUpdatedMonth = month
	updated.UpdatedAt = now
	return updated, true
}

// ProcessPayment applies a completed occurrence's actual amount to the
// balance and classifies the outcome against the expected amount.
//
// The balance is never capped or reset; a payment that outruns savings leaves
// it negative, which is an allowed state expected to self-correct as later
// months' savings accrue. Returns an error when the occurrence carries no
// actual amount.
func (s *RecurringPaymentBalanceService) ProcessPayment(occurrence core.RecurringPaymentOccurrence, balance *core.RecurringPaymentSavingBalance, now time.Time) (core.RecurringPaymentSavingBalance, core.PaymentResult, error) {
	if occurrence.ActualAmount == nil {
		return core.RecurringPaymentSavingBalance{}, core.PaymentResult{}, fmt.Errorf("occurrence %s has no actual amount", occurrence.ID)
	}
	actual := *occurrence.ActualAmount

	var updated core.RecurringPaymentSavingBalance
	if balance != nil {
		updated = *balance
	} else {
		updated = core.RecurringPaymentSavingBalance{
			ID:               occurrence.DefinitionID,
			DefinitionID:     occurrence.DefinitionID,
			TotalSavedAmount: decimal.Zero,
			TotalPaidAmount:  decimal.Zero,
		}
	}
	updated.TotalPaidAmount = core.SafeAdd(updated.TotalPaidAmount, actual)
	updated.UpdatedAt = now

	difference := core.SafeSubtract(actual, occurrence.ExpectedAmount)
	result := core.PaymentResult{Type: core.PaymentExact, Difference: difference}
	switch {
	case difference.Abs().LessThanOrEqual(PaymentTolerance):
		result.Type = core.PaymentExact
	case difference.Sign() < 0:
		result.Type = core.PaymentUnderpaid
	default:
		result.Type = core.PaymentOverpaid
	}
	return updated, result, nil
}
