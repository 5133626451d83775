package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"kakeibo/internal/core"
)

func TestFormatAmount(t *testing.T) {
	f := NewAllocationFormatter("")
	cases := []struct {
		in   string
		want string
	}{
		{"0", "¥0"},
		{"100", "¥100"},
		{"1000", "¥1,000"},
		{"150000", "¥150,000"},
		{"1234567", "¥1,234,567"},
		{"-5000", "-¥5,000"},
		{"12.5", "¥12.5"},
	}
	for _, tc := range cases {
		got := f.FormatAmount(decimal.RequireFromString(tc.in))
		if got != tc.want {
			t.Fatalf("FormatAmount(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatAmountCustomSymbol(t *testing.T) {
	f := NewAllocationFormatter("$")
	if got := f.FormatAmount(decimal.NewFromInt(1000)); got != "$1,000" {
		t.Fatalf("FormatAmount = %q, want $1,000", got)
	}
}

func TestFormatRate(t *testing.T) {
	f := NewAllocationFormatter("")
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.0%"},
		{0.425, "42.5%"},
		{1, "100.0%"},
		{1.5, "150.0%"},
	}
	for _, tc := range cases {
		if got := f.FormatRate(tc.in); got != tc.want {
			t.Fatalf("FormatRate(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatUsage(t *testing.T) {
	f := NewAllocationFormatter("")
	usage := core.AnnualBudgetUsage{
		Year:            2025,
		TotalAmount:     dec(300000),
		UsedAmount:      dec(15000),
		RemainingAmount: dec(285000),
		UsageRate:       0.05,
	}
	want := "2025: ¥15,000 / ¥300,000 (5.0% used, ¥285,000 remaining)"
	if got := f.FormatUsage(usage); got != want {
		t.Fatalf("FormatUsage = %q, want %q", got, want)
	}
}
