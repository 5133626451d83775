package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

// AllocationFormatter renders allocation results for display. Formatting is
// presentation only; amounts stay decimal everywhere else.
type AllocationFormatter struct {
	currencySymbol string
}

// NewAllocationFormatter builds a formatter. An empty symbol defaults to yen.
func NewAllocationFormatter(currencySymbol string) *AllocationFormatter {
	if currencySymbol == "" {
		currencySymbol = "¥"
	}
	return &AllocationFormatter{currencySymbol: currencySymbol}
}

// FormatAmount renders a decimal amount with the currency symbol and
// thousands separators, e.g. "¥150,000".
func (f *AllocationFormatter) FormatAmount(amount decimal.Decimal) string {
	negative := amount.Sign() < 0
	s := amount.Abs().StringFixed(0)
	if frac := amount.Abs().Sub(amount.Abs().Truncate(0)); !frac.IsZero() {
		s = amount.Abs().String()
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := f.currencySymbol + b.String()
	if fracPart != "" {
		out += "." + fracPart
	}
	if negative {
		out = "-" + out
	}
	return out
}

// FormatRate renders a ratio as a percentage, e.g. 0.425 -> "42.5%".
func (f *AllocationFormatter) FormatRate(rate float64) string {
	return fmt.Sprintf("%.1f%%", rate*100)
}

// FormatUsage renders a one-line year-to-date summary of the annual pool.
func (f *AllocationFormatter) FormatUsage(usage core.AnnualBudgetUsage) string {
	return fmt.Sprintf("%d: %s / %s (%s used, %s remaining)",
		usage.Year,
		f.FormatAmount(usage.UsedAmount),
		f.FormatAmount(usage.TotalAmount),
		f.FormatRate(usage.UsageRate),
		f.FormatAmount(usage.RemainingAmount))
}

// FormatCategoryAllocation renders one category's allocation line.
func (f *AllocationFormatter) FormatCategoryAllocation(a core.CategoryAllocation) string {
	return fmt.Sprintf("%s: actual %s, allocatable %s of %s (%s)",
		a.CategoryName,
		f.FormatAmount(a.ActualAmount),
		f.FormatAmount(a.AllocatableAmount),
		f.FormatAmount(a.AnnualBudgetAmount),
		f.FormatRate(a.AnnualBudgetUsageRate()))
}
