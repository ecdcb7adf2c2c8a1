// Package storage implements the ledger ports on SQLite. It is the durable
// replacement for the seeded in-memory backend and preserves the same call
// contracts.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kakebo/internal/core"
	"kakebo/internal/ledger"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

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

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// EnsureCategory implements ledger.CatalogStore. Position is assigned at
// insert and never reused, preserving the color contract.
func (r *SQLiteRepository) EnsureCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyName
	}

	var cat core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE name = ?`, name).Scan(&cat.ID, &cat.Name)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("lookup category: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, position)
		 VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM categories))`, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("category insert id: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "id", id, "name", name)
	return core.Category{ID: id, Name: name}, nil
}

// ListCategories implements ledger.CatalogStore.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCategory implements ledger.CatalogStore. Rejected while dependent
// allocations or expenses exist.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	var deps int
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM allocations WHERE category_id = ?)
		      + (SELECT COUNT(*) FROM expenses WHERE category_id = ?)`, id, id).Scan(&deps)
	if err != nil {
		return fmt.Errorf("count category dependents: %w", err)
	}
	if deps > 0 {
		return fmt.Errorf("category %d has %d dependent records: %w", id, deps, core.ErrConflict)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

// MonthBudget implements ledger.AllocationStore. Allocations come back in
// category catalog order so metric rows keep their colors.
func (r *SQLiteRepository) MonthBudget(ctx context.Context, month core.Month) (core.MonthlyBudget, error) {
	if err := month.Validate(); err != nil {
		return core.MonthlyBudget{}, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.category_id, a.amount_cents
		   FROM allocations a
		   JOIN categories c ON c.id = a.category_id
		  WHERE a.month = ?
		  ORDER BY c.position`, string(month))
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("query month budget: %w", err)
	}
	defer rows.Close()

	mb := core.MonthlyBudget{Month: month}
	for rows.Next() {
		var a core.Allocation
		if err := rows.Scan(&a.CategoryID, &a.Amount.Cents); err != nil {
			return core.MonthlyBudget{}, fmt.Errorf("scan allocation: %w", err)
		}
		mb.Allocations = append(mb.Allocations, a)
	}
	return mb, rows.Err()
}

// SetAllocation implements ledger.AllocationStore.
func (r *SQLiteRepository) SetAllocation(ctx context.Context, month core.Month, categoryID int64, amount core.Money) error {
	if err := month.Validate(); err != nil {
		return err
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	if err := r.requireCategory(ctx, categoryID); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO allocations (month, category_id, amount_cents, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (month, category_id)
		 DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = CURRENT_TIMESTAMP`,
		string(month), categoryID, amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert allocation: %w", err)
	}

	slog.InfoContext(ctx, "Allocation set",
		"month", month, "category_id", categoryID, "amount_cents", amount.Cents)
	return nil
}

// RemoveAllocation implements ledger.AllocationStore.
func (r *SQLiteRepository) RemoveAllocation(ctx context.Context, month core.Month, categoryID int64) error {
	if err := month.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM allocations WHERE month = ? AND category_id = ?`,
		string(month), categoryID)
	if err != nil {
		return fmt.Errorf("remove allocation: %w", err)
	}
	return nil
}

// MonthTotalBudget implements ledger.AllocationStore.
func (r *SQLiteRepository) MonthTotalBudget(ctx context.Context, month core.Month) (core.Money, error) {
	if err := month.Validate(); err != nil {
		return core.Money{}, err
	}
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM allocations WHERE month = ?`,
		string(month)).Scan(&total)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum month budget: %w", err)
	}
	return core.Money{Cents: total}, nil
}

// RecordExpense implements ledger.ExpenseStore.
func (r *SQLiteRepository) RecordExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.Status == "" {
		e.Status = core.StatusPurchased
	}
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := r.requireCategory(ctx, e.CategoryID); err != nil {
		return core.Expense{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (title, price_cents, category_id, source, payment_method, status, date, month)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Price.Cents, e.CategoryID, e.Source, e.PaymentMethod,
		string(e.Status), e.Date.Format(dateLayout), string(core.MonthOfDate(e.Date)))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"id", e.ID,
		"title", e.Title,
		"price_cents", e.Price.Cents,
		"category_id", e.CategoryID,
		"status", e.Status)
	return e, nil
}

// MarkPurchased implements ledger.ExpenseStore.
func (r *SQLiteRepository) MarkPurchased(ctx context.Context, id int64, finalPrice core.Money) (core.Expense, error) {
	if err := finalPrice.Validate(); err != nil {
		return core.Expense{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET status = ?, price_cents = ? WHERE id = ?`,
		string(core.StatusPurchased), finalPrice.Cents, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("mark purchased: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("mark purchased rows: %w", err)
	}
	if n == 0 {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense purchased", "id", id, "price_cents", finalPrice.Cents)
	return r.GetExpense(ctx, id)
}

// GetExpense retrieves a single expense by id.
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	var (
		e      core.Expense
		status string
		date   string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, price_cents, category_id, source, payment_method, status, date
		   FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.Title, &e.Price.Cents, &e.CategoryID, &e.Source, &e.PaymentMethod, &status, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	e.Status = core.ExpenseStatus(status)
	e.Date, err = time.Parse(dateLayout, date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("parse expense date %q: %w", date, err)
	}
	return e, nil
}

// ListExpenses implements ledger.ExpenseStore.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	if err := f.Month.Validate(); err != nil {
		return nil, err
	}

	query := `SELECT id, title, price_cents, category_id, source, payment_method, status, date
	            FROM expenses WHERE month = ?`
	args := []any{string(f.Month)}
	if f.CategoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY date DESC, title ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e      core.Expense
			status string
			date   string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Price.Cents, &e.CategoryID, &e.Source, &e.PaymentMethod, &status, &date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Status = core.ExpenseStatus(status)
		e.Date, err = time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse expense date %q: %w", date, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpsertSpentSnapshot stores the worker-maintained spent/remaining rollup
// for a (month, category) pair.
func (r *SQLiteRepository) UpsertSpentSnapshot(ctx context.Context, month core.Month, categoryID int64, spent, remaining core.Money) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO monthly_snapshots (month, category_id, spent_cents, remaining_cents, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (month, category_id)
		 DO UPDATE SET spent_cents = excluded.spent_cents,
		               remaining_cents = excluded.remaining_cents,
		               updated_at = CURRENT_TIMESTAMP`,
		string(month), categoryID, spent.Cents, remaining.Cents)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) requireCategory(ctx context.Context, id int64) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrUnknownCategory)
	}
	return nil
}
