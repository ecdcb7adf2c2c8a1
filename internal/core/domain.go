package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPlanned   ExpenseStatus = "planned"
	StatusPurchased ExpenseStatus = "purchased"
)

type (
	ExpenseStatus string

	// Category is the canonical identity of a spending category.
	// Catalog insertion order is meaningful: it drives color assignment.
	Category struct {
		ID   int64
		Name string
	}

	// Allocation is a budget amount granted to one category within a month.
	Allocation struct {
		CategoryID int64
		Amount     Money
	}

	// MonthlyBudget holds the allocations of a single month.
	// At most one allocation per category.
	MonthlyBudget struct {
		Month       Month
		Allocations []Allocation
	}

	Expense struct {
		ID            int64
		Title         string
		Price         Money
		CategoryID    int64
		Source        string
		PaymentMethod string
		Status        ExpenseStatus
		Date          time.Time
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty category name")
	ErrEmptyTitle      = errors.New("empty expense title")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidMonth    = errors.New("invalid month label")
	ErrInvalidStatus   = errors.New("invalid expense status")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTransient       = errors.New("transient failure")
)

// IsValidation reports whether err belongs to the validation class of the
// error taxonomy. Validation failures are rejected at the call boundary and
// never mutate stored state.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidStatus)
}

func (s ExpenseStatus) Validate() error {
	switch s {
	case StatusPlanned, StatusPurchased:
		return nil
	default:
		return ErrInvalidStatus
	}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("category name too long (max 100 characters)")
	}
	return nil
}

func (a Allocation) Validate() error {
	if a.CategoryID <= 0 {
		return ErrUnknownCategory
	}
	return a.Amount.Validate()
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := e.Price.Validate(); err != nil {
		return err
	}
	if e.CategoryID <= 0 {
		return ErrUnknownCategory
	}
	if err := e.Status.Validate(); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}
