package services

import (
	"context"
	"fmt"
	"sync"

	"kakebo/internal/core"
)

// PurchasePhase is the controller's position in the confirm workflow.
type PurchasePhase int

const (
	PhaseIdle PurchasePhase = iota
	PhaseConfirmPending
	PhaseSettled
)

func (p PurchasePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConfirmPending:
		return "confirm_pending"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// PurchaseOutcome records how the last confirmation settled.
type PurchaseOutcome int

const (
	OutcomeNone PurchaseOutcome = iota
	OutcomeSuccess
	OutcomeRolledBack
)

func (o PurchaseOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRolledBack:
		return "rolled_back"
	default:
		return "none"
	}
}

// PurchaseAPI is the slice of BudgetService the controller needs.
type PurchaseAPI interface {
	CategoryItems(ctx context.Context, month core.Month, categoryID int64) (CategoryItems, error)
	PurchaseItem(ctx context.Context, month core.Month, categoryID, expenseID int64, paid core.Money) (PurchaseResult, error)
}

// ErrConfirmPending rejects a second Confirm while one is in flight.
var ErrConfirmPending = fmt.Errorf("purchase confirmation already in flight")

type purchaseSnapshot struct {
	items     []core.Expense
	remaining core.Money
}

// PurchaseController keeps the view state for one category's purchase
// screen and applies confirmations optimistically: the item leaves the
// list and the remaining budget drops before the ledger write returns.
// On failure the snapshot is restored and the view reloaded from the
// ledger, so a failed confirmation leaves no trace.
type PurchaseController struct {
	api        PurchaseAPI
	month      core.Month
	categoryID int64

	mu         sync.Mutex
	phase      PurchasePhase
	outcome    PurchaseOutcome
	items      []core.Expense
	remaining  core.Money
	generation uint64
}

func NewPurchaseController(api PurchaseAPI, month core.Month, categoryID int64) *PurchaseController {
	return &PurchaseController{api: api, month: month, categoryID: categoryID}
}

// Load replaces the view with fresh ledger state. Any in-flight
// confirmation result is superseded and will be discarded when it lands.
func (c *PurchaseController) Load(ctx context.Context) error {
	view, err := c.api.CategoryItems(ctx, c.month, c.categoryID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.items = view.Items
	c.remaining = view.RemainingBudget
	c.phase = PhaseIdle
	c.outcome = OutcomeNone
	return nil
}

// Items returns a copy of the currently visible planned items.
func (c *PurchaseController) Items() []core.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Expense(nil), c.items...)
}

// Remaining returns the currently displayed remaining budget, which may
// be optimistic while a confirmation is pending.
func (c *PurchaseController) Remaining() core.Money {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *PurchaseController) Phase() PurchasePhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *PurchaseController) Outcome() PurchaseOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Confirm purchases a visible item for the actually-paid amount. The view
// updates immediately; the ledger write follows. A successful write
// reconciles the remaining budget with the authoritative figure, a failed
// one restores the snapshot and reloads.
func (c *PurchaseController) Confirm(ctx context.Context, expenseID int64, paid core.Money) error {
	if err := paid.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.phase == PhaseConfirmPending {
		c.mu.Unlock()
		return ErrConfirmPending
	}

	idx := -1
	for i, it := range c.items {
		if it.ID == expenseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return fmt.Errorf("item %d not on screen: %w", expenseID, core.ErrNotFound)
	}

	snap := purchaseSnapshot{
		items:     append([]core.Expense(nil), c.items...),
		remaining: c.remaining,
	}
	c.items = append(c.items[:idx:idx], c.items[idx+1:]...)
	c.remaining = c.remaining.Sub(paid)
	c.phase = PhaseConfirmPending
	gen := c.generation
	c.mu.Unlock()

	res, err := c.api.PurchaseItem(ctx, c.month, c.categoryID, expenseID, paid)

	c.mu.Lock()
	if c.generation != gen {
		// A Load superseded this confirmation; its view already
		// reflects the ledger, so the stale result is dropped.
		c.mu.Unlock()
		return err
	}

	if err != nil {
		c.items = snap.items
		c.remaining = snap.remaining
		c.phase = PhaseSettled
		c.outcome = OutcomeRolledBack
		c.generation++
		c.mu.Unlock()

		if reloadErr := c.reload(ctx); reloadErr != nil {
			return fmt.Errorf("confirm purchase: %w (reload also failed: %v)", err, reloadErr)
		}
		return fmt.Errorf("confirm purchase: %w", err)
	}

	c.remaining = res.RemainingBudget
	c.phase = PhaseSettled
	c.outcome = OutcomeSuccess
	c.mu.Unlock()
	return nil
}

// reload refreshes items and remaining from the ledger without clearing
// the settled outcome, so callers can still observe the rollback.
func (c *PurchaseController) reload(ctx context.Context) error {
	view, err := c.api.CategoryItems(ctx, c.month, c.categoryID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.items = view.Items
	c.remaining = view.RemainingBudget
	return nil
}
