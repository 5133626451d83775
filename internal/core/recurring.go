package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingStrategy says how the monthly set-aside for a recurring payment is
// derived.
type SavingStrategy string

const (
	// SavingDisabled sets nothing aside.
	SavingDisabled SavingStrategy = "disabled"
	// SavingEvenlyDistributed splits the cycle amount evenly over the
	// recurrence interval.
	SavingEvenlyDistributed SavingStrategy = "evenlyDistributed"
	// SavingCustomMonthly uses a fixed caller-chosen monthly amount.
	SavingCustomMonthly SavingStrategy = "customMonthly"
)

// OccurrenceStatus tracks the lifecycle of one scheduled payment.
type OccurrenceStatus string

const (
	OccurrencePlanned   OccurrenceStatus = "planned"
	OccurrenceCompleted OccurrenceStatus = "completed"
	OccurrenceSkipped   OccurrenceStatus = "skipped"
)

// RecurringPaymentOccurrence is one scheduled instance of a recurring payment.
type RecurringPaymentOccurrence struct {
	ID             string
	DefinitionID   string
	ScheduledDate  time.Time
	ExpectedAmount decimal.Decimal
	Status         OccurrenceStatus
	ActualDate     *time.Time
	ActualAmount   *decimal.Decimal
	UpdatedAt      time.Time
}

// RecurringPaymentDefinition describes a recurring irregular expense: what it
// costs per cycle, how often it recurs, and how savings toward it accrue.
type RecurringPaymentDefinition struct {
	ID                        string
	Name                      string
	Amount                    decimal.Decimal // total expected per cycle
	RecurrenceIntervalMonths  int
	FirstOccurrenceDate       time.Time
	LeadTimeMonths            *int
	CategoryID                *string
	SavingStrategy            SavingStrategy
	CustomMonthlySavingAmount *decimal.Decimal
	Occurrences               []RecurringPaymentOccurrence
	UpdatedAt                 time.Time
}

// MonthlySavingAmount derives the amount set aside each month: zero when
// saving is disabled, an even split of the cycle amount when evenly
// distributed, the custom amount (or zero when unset) otherwise.
func (d RecurringPaymentDefinition) MonthlySavingAmount() decimal.Decimal {
	switch d.SavingStrategy {
	case SavingDisabled:
		return decimal.Zero
	case SavingEvenlyDistributed:
		return SafeDivide(d.Amount, decimal.NewFromInt(int64(d.RecurrenceIntervalMonths)))
	case SavingCustomMonthly:
		if d.CustomMonthlySavingAmount != nil {
			return *d.CustomMonthlySavingAmount
		}
		return decimal.Zero
	}
	return decimal.Zero
}

// NextOccurrence returns the earliest occurrence scheduled at or after now
// that has not completed.
func (d RecurringPaymentDefinition) NextOccurrence(now time.Time) *RecurringPaymentOccurrence {
	var next *RecurringPaymentOccurrence
	for i := range d.Occurrences {
		occ := &d.Occurrences[i]
		if occ.Status == OccurrenceCompleted || occ.ScheduledDate.Before(now) {
			continue
		}
		if next == nil || occ.ScheduledDate.Before(next.ScheduledDate) {
			next = occ
		}
	}
	return next
}

// RecurringPaymentSavingBalance is the lifetime ledger for one definition:
// cumulative saved and paid amounts across every cycle. There is no per-cycle
// reset; a payment that outruns savings simply leaves the balance negative
// until later months' savings catch up.
type RecurringPaymentSavingBalance struct {
	ID               string
	DefinitionID     string
	TotalSavedAmount decimal.Decimal
	TotalPaidAmount  decimal.Decimal
	LastUpdatedYear  int
	LastUpdatedMonth int
	UpdatedAt        time.Time
}

// Balance is cumulative saved minus cumulative paid.
func (b RecurringPaymentSavingBalance) Balance() decimal.Decimal {
	return SafeSubtract(b.TotalSavedAmount, b.TotalPaidAmount)
}

// IsBalanceInsufficient reports whether payments have outrun savings.
func (b RecurringPaymentSavingBalance) IsBalanceInsufficient() bool {
	return b.Balance().Sign() < 0
}

// PaymentResultType classifies a processed payment against its expectation.
type PaymentResultType string

const (
	PaymentExact     PaymentResultType = "exact"
	PaymentUnderpaid PaymentResultType = "underpaid"
	PaymentOverpaid  PaymentResultType = "overpaid"
)

// PaymentResult reports how a processed payment compared to the expected
// amount. Difference is actual minus expected.
type PaymentResult struct {
	Type       PaymentResultType
	Difference decimal.Decimal
}

// RecurringPaymentSavingsCalculation is the per-definition savings status row
// produced by the budget calculator.
type RecurringPaymentSavingsCalculation struct {
	DefinitionID        string
	DefinitionName      string
	MonthlySavingAmount decimal.Decimal
	TotalSavedAmount    decimal.Decimal
	TotalPaidAmount     decimal.Decimal
	Balance             decimal.Decimal
	IsInsufficient      bool
	NextOccurrence      *RecurringPaymentOccurrence
}
