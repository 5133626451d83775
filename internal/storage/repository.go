// Package storage persists the engine's input collections in SQLite. The
// calculation services never touch this package; they consume plain slices
// the repository loads.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"kakeibo/internal/core"
)

const dateLayout = time.RFC3339

// SQLiteRepository stores categories, transactions, budgets, annual configs,
// and recurring-payment data.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// runs pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the underlying connection pool.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListCategories returns every category ordered by display order, then name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, parent_id, display_order, allows_annual_budget
		FROM categories
		ORDER BY display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		var parentID sql.NullString
		var allows int
		if err := rows.Scan(&c.ID, &c.Name, &parentID, &c.DisplayOrder, &allows); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if parentID.Valid {
			c.ParentID = &parentID.String
		}
		c.AllowsAnnualBudget = allows != 0
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// SaveCategory inserts or replaces a category.
func (r *SQLiteRepository) SaveCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO categories (id, name, parent_id, display_order, allows_annual_budget)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, nullString(c.ParentID), c.DisplayOrder, boolInt(c.AllowsAnnualBudget))
	if err != nil {
		return fmt.Errorf("save category %s: %w", c.ID, err)
	}
	return nil
}

// ListTransactionsByYear returns every transaction dated in the given year.
func (r *SQLiteRepository) ListTransactionsByYear(ctx context.Context, year int) ([]core.Transaction, error) {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	end := time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC).Format(dateLayout)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, amount, is_expense, is_income, is_transfer,
		       is_included_in_calculation, major_category_id, minor_category_id,
		       financial_institution_id, updated_at
		FROM transactions
		WHERE date >= ? AND date < ?
		ORDER BY date`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %d: %w", year, err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (core.Transaction, error) {
	var t core.Transaction
	var date, amount, updatedAt string
	var isExpense, isIncome, isTransfer, isIncluded int
	var majorID, minorID, institutionID sql.NullString
	if err := rows.Scan(&t.ID, &date, &amount, &isExpense, &isIncome, &isTransfer,
		&isIncluded, &majorID, &minorID, &institutionID, &updatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	var err error
	if t.Date, err = time.Parse(dateLayout, date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction amount %q: %w", amount, err)
	}
	if t.UpdatedAt, err = time.Parse(dateLayout, updatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction updated_at %q: %w", updatedAt, err)
	}
	t.IsExpense = isExpense != 0
	t.IsIncome = isIncome != 0
	t.IsTransfer = isTransfer != 0
	t.IsIncludedInCalculation = isIncluded != 0
	if majorID.Valid {
		t.MajorCategoryID = &majorID.String
	}
	if minorID.Valid {
		t.MinorCategoryID = &minorID.String
	}
	if institutionID.Valid {
		t.FinancialInstitutionID = &institutionID.String
	}
	return t, nil
}

// SaveTransaction inserts or replaces a transaction.
func (r *SQLiteRepository) SaveTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO transactions
		(id, date, amount, is_expense, is_income, is_transfer,
		 is_included_in_calculation, major_category_id, minor_category_id,
		 financial_institution_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Date.Format(dateLayout), t.Amount.String(),
		boolInt(t.IsExpense), boolInt(t.IsIncome), boolInt(t.IsTransfer),
		boolInt(t.IsIncludedInCalculation),
		nullString(t.MajorCategoryID), nullString(t.MinorCategoryID),
		nullString(t.FinancialInstitutionID), t.UpdatedAt.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("save transaction %s: %w", t.ID, err)
	}
	return nil
}

// ListBudgets returns every budget overlapping the given year.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, year int) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount, category_id, start_year, start_month, end_year, end_month, updated_at
		FROM budgets
		WHERE start_year <= ? AND end_year >= ?
		ORDER BY start_year, start_month`, year, year)
	if err != nil {
		return nil, fmt.Errorf("list budgets for %d: %w", year, err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		var amount, updatedAt string
		var categoryID sql.NullString
		if err := rows.Scan(&b.ID, &amount, &categoryID,
			&b.Start.Year, &b.Start.Month, &b.End.Year, &b.End.Month, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse budget amount %q: %w", amount, err)
		}
		if b.UpdatedAt, err = time.Parse(dateLayout, updatedAt); err != nil {
			return nil, fmt.Errorf("parse budget updated_at %q: %w", updatedAt, err)
		}
		if categoryID.Valid {
			b.Scope = core.CategoryScope(categoryID.String)
		} else {
			b.Scope = core.OverallScope()
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// SaveBudget inserts or replaces a budget.
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO budgets
		(id, amount, category_id, start_year, start_month, end_year, end_month, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Amount.String(), nullString(b.Scope.CategoryID),
		b.Start.Year, b.Start.Month, b.End.Year, b.End.Month,
		b.UpdatedAt.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("save budget %s: %w", b.ID, err)
	}
	return nil
}

// GetAnnualBudgetConfig loads the annual-pool configuration for a year,
// including its allocation rows. Returns (nil, nil) when the year has none.
func (r *SQLiteRepository) GetAnnualBudgetConfig(ctx context.Context, year int) (*core.AnnualBudgetConfig, error) {
	var config core.AnnualBudgetConfig
	var totalAmount, policy, updatedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT year, total_amount, policy, updated_at
		FROM annual_budget_configs WHERE year = ?`, year).
		Scan(&config.Year, &totalAmount, &policy, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get annual config for %d: %w", year, err)
	}
	if config.TotalAmount, err = decimal.NewFromString(totalAmount); err != nil {
		return nil, fmt.Errorf("parse annual total %q: %w", totalAmount, err)
	}
	if config.UpdatedAt, err = time.Parse(dateLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse annual config updated_at %q: %w", updatedAt, err)
	}
	config.Policy = core.AllocationPolicy(policy)

	rows, err := r.db.QueryContext(ctx, `
		SELECT category_id, amount, policy_override
		FROM annual_budget_allocations
		WHERE config_year = ?
		ORDER BY category_id`, year)
	if err != nil {
		return nil, fmt.Errorf("list annual allocations for %d: %w", year, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a core.AnnualBudgetAllocation
		var amount string
		var override sql.NullString
		if err := rows.Scan(&a.CategoryID, &amount, &override); err != nil {
			return nil, fmt.Errorf("scan annual allocation: %w", err)
		}
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse allocation amount %q: %w", amount, err)
		}
		if override.Valid {
			p := core.AllocationPolicy(override.String)
			a.PolicyOverride = &p
		}
		config.Allocations = append(config.Allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveAnnualBudgetConfig replaces a year's configuration and allocation rows
// in one transaction.
func (r *SQLiteRepository) SaveAnnualBudgetConfig(ctx context.Context, config core.AnnualBudgetConfig) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save annual config: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO annual_budget_configs (year, total_amount, policy, updated_at)
		VALUES (?, ?, ?, ?)`,
		config.Year, config.TotalAmount.String(), string(config.Policy),
		config.UpdatedAt.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("save annual config %d: %w", config.Year, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM annual_budget_allocations WHERE config_year = ?`, config.Year); err != nil {
		return fmt.Errorf("clear annual allocations %d: %w", config.Year, err)
	}
	for _, a := range config.Allocations {
		var override any
		if a.PolicyOverride != nil {
			override = string(*a.PolicyOverride)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO annual_budget_allocations (config_year, category_id, amount, policy_override)
			VALUES (?, ?, ?, ?)`,
			config.Year, a.CategoryID, a.Amount.String(), override)
		if err != nil {
			return fmt.Errorf("save annual allocation %s: %w", a.CategoryID, err)
		}
	}

	return tx.Commit()
}

// ListRecurringDefinitions returns every recurring-payment definition with
// its occurrences attached.
func (r *SQLiteRepository) ListRecurringDefinitions(ctx context.Context) ([]core.RecurringPaymentDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, amount, recurrence_interval_months, first_occurrence_date,
		       lead_time_months, category_id, saving_strategy,
		       custom_monthly_saving_amount, updated_at
		FROM recurring_payment_definitions
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list recurring definitions: %w", err)
	}
	defer rows.Close()

	var definitions []core.RecurringPaymentDefinition
	for rows.Next() {
		var d core.RecurringPaymentDefinition
		var amount, firstDate, strategy, updatedAt string
		var leadTime sql.NullInt64
		var categoryID, customAmount sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &amount, &d.RecurrenceIntervalMonths,
			&firstDate, &leadTime, &categoryID, &strategy, &customAmount, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan recurring definition: %w", err)
		}
		if d.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse definition amount %q: %w", amount, err)
		}
		if d.FirstOccurrenceDate, err = time.Parse(dateLayout, firstDate); err != nil {
			return nil, fmt.Errorf("parse first occurrence date %q: %w", firstDate, err)
		}
		if d.UpdatedAt, err = time.Parse(dateLayout, updatedAt); err != nil {
			return nil, fmt.Errorf("parse definition updated_at %q: %w", updatedAt, err)
		}
		if leadTime.Valid {
			lt := int(leadTime.Int64)
			d.LeadTimeMonths = &lt
		}
		if categoryID.Valid {
			d.CategoryID = &categoryID.String
		}
		if customAmount.Valid {
			amt, err := decimal.NewFromString(customAmount.String)
			if err != nil {
				return nil, fmt.Errorf("parse custom saving amount %q: %w", customAmount.String, err)
			}
			d.CustomMonthlySavingAmount = &amt
		}
		d.SavingStrategy = core.SavingStrategy(strategy)
		definitions = append(definitions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range definitions {
		occurrences, err := r.listOccurrences(ctx, definitions[i].ID)
		if err != nil {
			return nil, err
		}
		definitions[i].Occurrences = occurrences
	}
	return definitions, nil
}

func (r *SQLiteRepository) listOccurrences(ctx context.Context, definitionID string) ([]core.RecurringPaymentOccurrence, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, definition_id, scheduled_date, expected_amount, status,
		       actual_date, actual_amount, updated_at
		FROM recurring_payment_occurrences
		WHERE definition_id = ?
		ORDER BY scheduled_date`, definitionID)
	if err != nil {
		return nil, fmt.Errorf("list occurrences for %s: %w", definitionID, err)
	}
	defer rows.Close()

	var occurrences []core.RecurringPaymentOccurrence
	for rows.Next() {
		var occ core.RecurringPaymentOccurrence
		var scheduled, expected, status, updatedAt string
		var actualDate, actualAmount sql.NullString
		if err := rows.Scan(&occ.ID, &occ.DefinitionID, &scheduled, &expected,
			&status, &actualDate, &actualAmount, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		if occ.ScheduledDate, err = time.Parse(dateLayout, scheduled); err != nil {
			return nil, fmt.Errorf("parse scheduled date %q: %w", scheduled, err)
		}
		if occ.ExpectedAmount, err = decimal.NewFromString(expected); err != nil {
			return nil, fmt.Errorf("parse expected amount %q: %w", expected, err)
		}
		if occ.UpdatedAt, err = time.Parse(dateLayout, updatedAt); err != nil {
			return nil, fmt.Errorf("parse occurrence updated_at %q: %w", updatedAt, err)
		}
		if actualDate.Valid {
			d, err := time.Parse(dateLayout, actualDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse actual date %q: %w", actualDate.String, err)
			}
			occ.ActualDate = &d
		}
		if actualAmount.Valid {
			amt, err := decimal.NewFromString(actualAmount.String)
			if err != nil {
				return nil, fmt.Errorf("parse actual amount %q: %w", actualAmount.String, err)
			}
			occ.ActualAmount = &amt
		}
		occ.Status = core.OccurrenceStatus(status)
		occurrences = append(occurrences, occ)
	}
	return occurrences, rows.Err()
}

// ListSavingBalances returns every saving balance.
func (r *SQLiteRepository) ListSavingBalances(ctx context.Context) ([]core.RecurringPaymentSavingBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, definition_id, total_saved_amount, total_paid_amount,
		       last_updated_year, last_updated_month, updated_at
		FROM saving_balances
		ORDER BY definition_id`)
	if err != nil {
		return nil, fmt.Errorf("list saving balances: %w", err)
	}
	defer rows.Close()

	var balances []core.RecurringPaymentSavingBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// GetSavingBalance loads the balance for one definition. Returns (nil, nil)
// when the definition has never posted savings.
func (r *SQLiteRepository) GetSavingBalance(ctx context.Context, definitionID string) (*core.RecurringPaymentSavingBalance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, definition_id, total_saved_amount, total_paid_amount,
		       last_updated_year, last_updated_month, updated_at
		FROM saving_balances
		WHERE definition_id = ?`, definitionID)
	if err != nil {
		return nil, fmt.Errorf("get saving balance %s: %w", definitionID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	b, err := scanBalance(rows)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBalance(rows *sql.Rows) (core.RecurringPaymentSavingBalance, error) {
	var b core.RecurringPaymentSavingBalance
	var saved, paid, updatedAt string
	if err := rows.Scan(&b.ID, &b.DefinitionID, &saved, &paid,
		&b.LastUpdatedYear, &b.LastUpdatedMonth, &updatedAt); err != nil {
		return core.RecurringPaymentSavingBalance{}, fmt.Errorf("scan saving balance: %w", err)
	}
	var err error
	if b.TotalSavedAmount, err = decimal.NewFromString(saved); err != nil {
		return core.RecurringPaymentSavingBalance{}, fmt.Errorf("parse saved amount %q: %w", saved, err)
	}
	if b.TotalPaidAmount, err = decimal.NewFromString(paid); err != nil {
		return core.RecurringPaymentSavingBalance{}, fmt.Errorf("parse paid amount %q: %w", paid, err)
	}
	if b.UpdatedAt, err = time.Parse(dateLayout, updatedAt); err != nil {
		return core.RecurringPaymentSavingBalance{}, fmt.Errorf("parse balance updated_at %q: %w", updatedAt, err)
	}
	return b, nil
}

// SaveSavingBalance inserts or replaces a saving balance.
func (r *SQLiteRepository) SaveSavingBalance(ctx context.Context, b core.RecurringPaymentSavingBalance) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO saving_balances
		(id, definition_id, total_saved_amount, total_paid_amount,
		 last_updated_year, last_updated_month, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.DefinitionID, b.TotalSavedAmount.String(), b.TotalPaidAmount.String(),
		b.LastUpdatedYear, b.LastUpdatedMonth, b.UpdatedAt.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("save saving balance %s: %w", b.DefinitionID, err)
	}
	return nil
}

// MarkOccurrenceCompleted records the actual payment on an occurrence.
func (r *SQLiteRepository) MarkOccurrenceCompleted(ctx context.Context, occurrenceID string, actualDate time.Time, actualAmount decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recurring_payment_occurrences
		SET status = ?, actual_date = ?, actual_amount = ?, updated_at = ?
		WHERE id = ?`,
		string(core.OccurrenceCompleted), actualDate.Format(dateLayout),
		actualAmount.String(), time.Now().UTC().Format(dateLayout), occurrenceID)
	if err != nil {
		return fmt.Errorf("mark occurrence %s completed: %w", occurrenceID, err)
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
