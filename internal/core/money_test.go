package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1200", "1200", true},
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"-5", "", false},
		{"+5", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestSafeDivide(t *testing.T) {
	cases := []struct {
		a, b string
		want string
	}{
		{"150000", "12", "12500"},
		{"10", "0", "0"},
		{"0", "3", "0"},
		{"1", "3", "0.3333333333333333333333333333333333"},
	}
	for _, tc := range cases {
		a, _ := decimal.NewFromString(tc.a)
		b, _ := decimal.NewFromString(tc.b)
		got := SafeDivide(a, b)
		want, _ := decimal.NewFromString(tc.want)
		if !got.Equal(want) {
			t.Fatalf("SafeDivide(%s, %s) = %s, want %s", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRate(t *testing.T) {
	cases := []struct {
		num, den string
		want     float64
	}{
		{"50", "100", 0.5},
		{"150", "100", 1.5},
		{"10", "0", 0},
		{"10", "-5", 0},
		{"-10", "100", -0.1},
	}
	for _, tc := range cases {
		num, _ := decimal.NewFromString(tc.num)
		den, _ := decimal.NewFromString(tc.den)
		if got := Rate(num, den); got != tc.want {
			t.Fatalf("Rate(%s, %s) = %v, want %v", tc.num, tc.den, got, tc.want)
		}
	}
}

func TestSafeAddSubtract(t *testing.T) {
	a := decimal.NewFromInt(100)
	b := decimal.RequireFromString("0.1")
	if got := SafeAdd(a, b); !got.Equal(decimal.RequireFromString("100.1")) {
		t.Fatalf("SafeAdd = %s", got)
	}
	if got := SafeSubtract(a, b); !got.Equal(decimal.RequireFromString("99.9")) {
		t.Fatalf("SafeSubtract = %s", got)
	}
}
