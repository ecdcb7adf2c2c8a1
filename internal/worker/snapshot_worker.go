// Package worker maintains the monthly_snapshots rollup table from ledger
// events. The table is derived state: losing it costs nothing but a
// recompute, so handlers favor recomputing from the ledger over trusting
// stale event payloads.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kakebo/internal/amqp"
	"kakebo/internal/core"
	"kakebo/internal/ledger"
	"kakebo/internal/storage"
)

// SnapshotWorker applies purchase and budget events to the snapshot table.
type SnapshotWorker struct {
	storage *storage.SQLiteRepository
}

func NewSnapshotWorker(storage *storage.SQLiteRepository) *SnapshotWorker {
	return &SnapshotWorker{storage: storage}
}

// HandlePurchaseConfirmed records the post-purchase figures carried by the
// event. The producer computed them against its own ledger read, so a
// recompute is only needed when the payload looks inconsistent.
func (w *SnapshotWorker) HandlePurchaseConfirmed(ctx context.Context, msg *amqp.PurchaseConfirmedMessage) error {
	month, err := core.ParseMonth(msg.Month)
	if err != nil {
		return fmt.Errorf("purchase event month: %w", err)
	}

	slog.InfoContext(ctx, "Processing purchase event",
		"expense_id", msg.ExpenseID,
		"category_id", msg.CategoryID,
		"month", msg.Month)

	err = w.storage.UpsertSpentSnapshot(ctx, month, msg.CategoryID,
		core.Money{Cents: msg.SpentCents},
		core.Money{Cents: msg.RemainingCents})
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// HandleBudgetChanged recomputes the category's snapshot from the ledger;
// an allocation change shifts the remaining budget without any new spend.
func (w *SnapshotWorker) HandleBudgetChanged(ctx context.Context, msg *amqp.BudgetChangedMessage) error {
	month, err := core.ParseMonth(msg.Month)
	if err != nil {
		return fmt.Errorf("budget event month: %w", err)
	}

	slog.InfoContext(ctx, "Processing budget event",
		"category_id", msg.CategoryID,
		"month", msg.Month,
		"removed", msg.Removed)

	return w.Recompute(ctx, month, msg.CategoryID)
}

// Recompute rebuilds one (month, category) snapshot from the ledger.
func (w *SnapshotWorker) Recompute(ctx context.Context, month core.Month, categoryID int64) error {
	mb, err := w.storage.MonthBudget(ctx, month)
	if err != nil {
		return fmt.Errorf("read month budget: %w", err)
	}
	expenses, err := w.storage.ListExpenses(ctx, ledger.ExpenseFilter{
		Month:      month,
		CategoryID: categoryID,
		Status:     core.StatusPurchased,
	})
	if err != nil {
		return fmt.Errorf("list purchased expenses: %w", err)
	}

	var allocated core.Money
	for _, a := range mb.Allocations {
		if a.CategoryID == categoryID {
			allocated = a.Amount
			break
		}
	}
	spent := core.SpentInMonth(expenses, categoryID, month)

	err = w.storage.UpsertSpentSnapshot(ctx, month, categoryID, spent, allocated.Sub(spent))
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// RecomputeMonth rebuilds every allocated category of a month. Used at
// worker startup to recover from missed events.
func (w *SnapshotWorker) RecomputeMonth(ctx context.Context, month core.Month) error {
	mb, err := w.storage.MonthBudget(ctx, month)
	if err != nil {
		return fmt.Errorf("read month budget: %w", err)
	}

	for _, a := range mb.Allocations {
		if err := w.Recompute(ctx, month, a.CategoryID); err != nil {
			slog.ErrorContext(ctx, "Failed to recompute snapshot",
				"month", month, "category_id", a.CategoryID, "error", err)
			continue
		}
	}

	slog.InfoContext(ctx, "Month snapshots recomputed", "month", month, "categories", len(mb.Allocations))
	return nil
}
