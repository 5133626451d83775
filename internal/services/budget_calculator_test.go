package services

import (
	"testing"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
)

func categoryBudget(id, categoryID string, amount int64, year int) core.Budget {
	return core.Budget{
		ID:     id,
		Amount: dec(amount),
		Scope:  core.CategoryScope(categoryID),
		Start:  core.YearMonth{Year: year, Month: 1},
		End:    core.YearMonth{Year: year, Month: 12},
	}
}

func TestCalculateMonthlyBudgetOverall(t *testing.T) {
	budgets := []core.Budget{
		{
			ID:     "overall",
			Amount: dec(100000),
			Scope:  core.OverallScope(),
			Start:  core.YearMonth{Year: 2025, Month: 1},
			End:    core.YearMonth{Year: 2025, Month: 12},
		},
	}
	transactions := []core.Transaction{
		expense("t1", 2025, 3, 5, 30000, strPtr("food"), nil),
		expense("t2", 2025, 3, 10, 20000, strPtr("transport"), nil),
	}

	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	result := calc.CalculateMonthlyBudget(transactions, budgets, testCategorySet(), 2025, 3, core.DefaultAggregationFilter(), nil)

	if result.Overall == nil {
		t.Fatal("expected overall calculation")
	}
	if !result.Overall.ActualAmount.Equal(dec(50000)) {
		t.Fatalf("overall actual = %s, want 50000", result.Overall.ActualAmount)
	}
	if !result.Overall.RemainingAmount.Equal(dec(50000)) {
		t.Fatalf("overall remaining = %s, want 50000", result.Overall.RemainingAmount)
	}
	if result.Overall.IsOverBudget {
		t.Fatal("should not be over budget")
	}
}

func TestCalculateMonthlyBudgetExclusions(t *testing.T) {
	budgets := []core.Budget{
		{
			ID:     "overall",
			Amount: dec(100000),
			Scope:  core.OverallScope(),
			Start:  core.YearMonth{Year: 2025, Month: 1},
			End:    core.YearMonth{Year: 2025, Month: 12},
		},
	}
	transactions := []core.Transaction{
		expense("t1", 2025, 3, 5, 30000, strPtr("food"), nil),
		expense("t2", 2025, 3, 10, 20000, strPtr("transport"), nil),
	}

	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	result := calc.CalculateMonthlyBudget(transactions, budgets, testCategorySet(), 2025, 3, core.DefaultAggregationFilter(), []string{"transport"})

	if !result.Overall.ActualAmount.Equal(dec(30000)) {
		t.Fatalf("overall actual = %s, want 30000 after exclusion", result.Overall.ActualAmount)
	}
}

func TestCalculateMonthlyBudgetHierarchicalRollup(t *testing.T) {
	// A major budget counts the major's own spend plus its children's.
	categories := []core.Category{
		{ID: "food", Name: "食費", DisplayOrder: 1},
		{ID: "groceries", Name: "食料品", ParentID: strPtr("food"), DisplayOrder: 1},
		{ID: "eating-out", Name: "外食", ParentID: strPtr("food"), DisplayOrder: 2},
	}
	budgets := []core.Budget{categoryBudget("b1", "food", 50000, 2025)}
	transactions := []core.Transaction{
		expense("t1", 2025, 3, 1, 100, strPtr("food"), nil),
		expense("t2", 2025, 3, 2, 200, strPtr("food"), strPtr("groceries")),
		expense("t3", 2025, 3, 3, 300, strPtr("food"), strPtr("eating-out")),
	}

	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	result := calc.CalculateMonthlyBudget(transactions, budgets, categories, 2025, 3, core.DefaultAggregationFilter(), nil)

	if len(result.Categories) != 1 {
		t.Fatalf("expected 1 category budget, got %d", len(result.Categories))
	}
	if !result.Categories[0].Calculation.ActualAmount.Equal(dec(600)) {
		t.Fatalf("rollup actual = %s, want 600", result.Categories[0].Calculation.ActualAmount)
	}
}

func TestCalculateMonthlyBudgetMinorExactMatch(t *testing.T) {
	categories := []core.Category{
		{ID: "food", Name: "食費", DisplayOrder: 1},
		{ID: "groceries", Name: "食料品", ParentID: strPtr("food"), DisplayOrder: 1},
	}
	budgets := []core.Budget{categoryBudget("b1", "groceries", 20000, 2025)}
	transactions := []core.Transaction{
		expense("t1", 2025, 3, 1, 100, strPtr("food"), nil),
		expense("t2", 2025, 3, 2, 200, strPtr("food"), strPtr("groceries")),
	}

	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	result := calc.CalculateMonthlyBudget(transactions, budgets, categories, 2025, 3, core.DefaultAggregationFilter(), nil)

	if !result.Categories[0].Calculation.ActualAmount.Equal(dec(200)) {
		t.Fatalf("minor actual = %s, want exact match only (200)", result.Categories[0].Calculation.ActualAmount)
	}
}

func TestCalculateMonthlyBudgetInactiveBudgetIgnored(t *testing.T) {
	budgets := []core.Budget{
		{
			ID:     "old",
			Amount: dec(100000),
			Scope:  core.OverallScope(),
			Start:  core.YearMonth{Year: 2024, Month: 1},
			End:    core.YearMonth{Year: 2024, Month: 12},
		},
	}
	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	result := calc.CalculateMonthlyBudget(nil, budgets, nil, 2025, 3, core.DefaultAggregationFilter(), nil)
	if result.Overall != nil {
		t.Fatal("expired budget should not produce an overall calculation")
	}
}

func TestWillExceedBudget(t *testing.T) {
	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	cases := []struct {
		amount, current, budget int64
		want                    bool
	}{
		{1000, 49000, 50000, false},
		{1001, 49000, 50000, true},
		{1, 50000, 50000, true},
	}
	for _, tc := range cases {
		got := calc.WillExceedBudget(dec(tc.amount), dec(tc.current), dec(tc.budget))
		if got != tc.want {
			t.Fatalf("WillExceedBudget(%d, %d, %d) = %v, want %v", tc.amount, tc.current, tc.budget, got, tc.want)
		}
	}
}

func savingDefinition(id string, cycleAmount int64, intervalMonths int, categoryID *string) core.RecurringPaymentDefinition {
	return core.RecurringPaymentDefinition{
		ID:                       id,
		Name:                     id,
		Amount:                   dec(cycleAmount),
		RecurrenceIntervalMonths: intervalMonths,
		SavingStrategy:           core.SavingEvenlyDistributed,
		CategoryID:               categoryID,
	}
}

func TestCalculateRecurringPaymentSavings(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	definitions := []core.RecurringPaymentDefinition{
		savingDefinition("insurance", 150000, 12, nil),
	}
	balances := []core.RecurringPaymentSavingBalance{
		{
			ID:               "insurance",
			DefinitionID:     "insurance",
			TotalSavedAmount: dec(62500),
			TotalPaidAmount:  dec(70000),
		},
	}

	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	rows := calc.CalculateRecurringPaymentSavings(definitions, balances, 2025, 6, now)

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if !row.MonthlySavingAmount.Equal(dec(12500)) {
		t.Fatalf("monthly saving = %s, want 12500", row.MonthlySavingAmount)
	}
	if !row.Balance.Equal(dec(-7500)) {
		t.Fatalf("balance = %s, want -7500", row.Balance)
	}
	if !row.IsInsufficient {
		t.Fatal("negative balance should be insufficient")
	}
}

func TestCalculateRecurringPaymentSavingsNoBalance(t *testing.T) {
	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	rows := calc.CalculateRecurringPaymentSavings(
		[]core.RecurringPaymentDefinition{savingDefinition("tax", 60000, 6, nil)},
		nil, 2025, 6, time.Now())
	if !rows[0].Balance.IsZero() || rows[0].IsInsufficient {
		t.Fatal("missing balance should read as zero")
	}
}

func TestCalculateMonthlySavingsAllocation(t *testing.T) {
	disabled := savingDefinition("disabled", 99999, 1, nil)
	disabled.SavingStrategy = core.SavingDisabled

	definitions := []core.RecurringPaymentDefinition{
		savingDefinition("insurance", 150000, 12, nil), // 12500
		savingDefinition("tax", 60000, 6, nil),         // 10000
		disabled,
	}

	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	total := calc.CalculateMonthlySavingsAllocation(definitions, 2025, 6)
	if !total.Equal(dec(22500)) {
		t.Fatalf("total = %s, want 22500", total)
	}
}

func TestCalculateCategorySavingsAllocation(t *testing.T) {
	definitions := []core.RecurringPaymentDefinition{
		savingDefinition("insurance", 150000, 12, strPtr("insurance-cat")), // 12500
		savingDefinition("tax", 60000, 6, strPtr("tax-cat")),               // 10000
		savingDefinition("tax2", 60000, 6, strPtr("tax-cat")),              // 10000
		savingDefinition("uncat", 12000, 12, nil),                          // skipped
	}

	calc := NewBudgetCalculator(NewTransactionAggregator(), nil)
	byCategory := calc.CalculateCategorySavingsAllocation(definitions, 2025, 6)

	if len(byCategory) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(byCategory))
	}
	if !byCategory["tax-cat"].Equal(dec(20000)) {
		t.Fatalf("tax-cat = %s, want 20000", byCategory["tax-cat"])
	}

	sorted := SortedCategorySavings(byCategory)
	if len(sorted) != 2 || sorted[0].CategoryID != "insurance-cat" {
		t.Fatalf("sorted = %v, want insurance-cat first", sorted)
	}
}

func TestCalculateMonthlyBudgetCachedMatchesFresh(t *testing.T) {
	budgets := []core.Budget{
		{
			ID:        "overall",
			Amount:    dec(100000),
			Scope:     core.OverallScope(),
			Start:     core.YearMonth{Year: 2025, Month: 1},
			End:       core.YearMonth{Year: 2025, Month: 12},
			UpdatedAt: time.Unix(100, 0),
		},
	}
	transactions := []core.Transaction{
		expense("t1", 2025, 3, 5, 30000, strPtr("food"), nil),
		expense("t2", 2025, 3, 10, 20000, strPtr("transport"), nil),
	}

	calcCache := cache.New()
	cached := NewBudgetCalculator(NewTransactionAggregator(), calcCache)
	fresh := NewBudgetCalculator(NewTransactionAggregator(), nil)

	first := cached.CalculateMonthlyBudget(transactions, budgets, testCategorySet(), 2025, 3, core.DefaultAggregationFilter(), nil)
	second := cached.CalculateMonthlyBudget(transactions, budgets, testCategorySet(), 2025, 3, core.DefaultAggregationFilter(), nil)
	want := fresh.CalculateMonthlyBudget(transactions, budgets, testCategorySet(), 2025, 3, core.DefaultAggregationFilter(), nil)

	stats := calcCache.Snapshot()
	if stats.MonthlyBudget.Hits != 1 || stats.MonthlyBudget.Misses != 1 {
		t.Fatalf("stats = %+v, want 1 hit 1 miss", stats.MonthlyBudget)
	}
	for _, got := range []core.MonthlyBudgetCalculation{first, second} {
		if got.Overall == nil || !got.Overall.ActualAmount.Equal(want.Overall.ActualAmount) {
			t.Fatalf("cached result diverged from fresh: %+v vs %+v", got, want)
		}
		if got.Overall.UsageRate != want.Overall.UsageRate {
			t.Fatalf("usage rate diverged: %v vs %v", got.Overall.UsageRate, want.Overall.UsageRate)
		}
	}

	// An edited transaction moves the version hash and misses naturally.
	edited := make([]core.Transaction, len(transactions))
	copy(edited, transactions)
	edited[0].Amount = dec(35000)
	edited[0].UpdatedAt = edited[0].UpdatedAt.Add(time.Second)
	result := cached.CalculateMonthlyBudget(edited, budgets, testCategorySet(), 2025, 3, core.DefaultAggregationFilter(), nil)
	if !result.Overall.ActualAmount.Equal(dec(55000)) {
		t.Fatalf("edited actual = %s, want 55000 (stale cache served?)", result.Overall.ActualAmount)
	}
}
