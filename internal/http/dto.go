package http

import (
	"time"

	"kakebo/internal/core"
	"kakebo/internal/services"
)

const dateLayout = "2006-01-02"

type categoryDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type metricsDTO struct {
	CategoryID       int64  `json:"categoryId"`
	Name             string `json:"name"`
	AmountCents      int64  `json:"amountCents"`
	SpentCents       int64  `json:"spentCents"`
	PercentRemaining int    `json:"percentRemaining"`
	Color            string `json:"color"`
}

type budgetDataDTO struct {
	Month            string       `json:"month"`
	TotalBudgetCents int64        `json:"totalBudgetCents"`
	Categories       []metricsDTO `json:"categories"`
}

type expenseDTO struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	PriceCents    int64  `json:"priceCents"`
	CategoryID    int64  `json:"categoryId"`
	Source        string `json:"source,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Status        string `json:"status"`
	Date          string `json:"date"`
}

type expensePageDTO struct {
	Items    []expenseDTO `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

type categoryItemsDTO struct {
	Category        categoryDTO  `json:"category"`
	Items           []expenseDTO `json:"items"`
	RemainingCents  int64        `json:"remainingCents"`
}

type purchaseResultDTO struct {
	Item           expenseDTO `json:"item"`
	RemainingCents int64      `json:"remainingCents"`
}

// addCategoryRequest allocates a budget to an existing category
// (categoryId) or to one provisioned by name. The amount is given either
// as cents or as a decimal string ("500.00").
type addCategoryRequest struct {
	Month       string `json:"month"`
	CategoryID  int64  `json:"categoryId,omitempty"`
	Name        string `json:"name,omitempty"`
	AmountCents int64  `json:"amountCents,omitempty"`
	Amount      string `json:"amount,omitempty"`
}

func (r addCategoryRequest) amount() (core.Money, error) {
	return moneyFromRequest(r.Amount, r.AmountCents)
}

type updateAmountRequest struct {
	Month       string `json:"month"`
	AmountCents int64  `json:"amountCents,omitempty"`
	Amount      string `json:"amount,omitempty"`
}

func (r updateAmountRequest) amount() (core.Money, error) {
	return moneyFromRequest(r.Amount, r.AmountCents)
}

// moneyFromRequest prefers the decimal form when both are present.
func moneyFromRequest(decimal string, cents int64) (core.Money, error) {
	if decimal != "" {
		c, err := core.ParseDecimalToCents(decimal)
		if err != nil {
			return core.Money{}, err
		}
		return core.Money{Cents: c}, nil
	}
	return core.Money{Cents: cents}, nil
}

type createExpenseRequest struct {
	Title         string `json:"title"`
	PriceCents    int64  `json:"priceCents"`
	CategoryID    int64  `json:"categoryId"`
	Source        string `json:"source,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Status        string `json:"status,omitempty"`
	Date          string `json:"date,omitempty"`
}

type purchaseRequest struct {
	Month      string `json:"month"`
	CategoryID int64  `json:"categoryId"`
	ExpenseID  int64  `json:"expenseId"`
	PaidCents  int64  `json:"paidCents"`
}

func toMetricsDTO(m core.CategoryMetrics) metricsDTO {
	return metricsDTO{
		CategoryID:       m.CategoryID,
		Name:             m.Name,
		AmountCents:      m.Amount.Cents,
		SpentCents:       m.Spent.Cents,
		PercentRemaining: m.PercentRemaining,
		Color:            m.Color,
	}
}

func toMetricsDTOs(ms []core.CategoryMetrics) []metricsDTO {
	out := make([]metricsDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMetricsDTO(m))
	}
	return out
}

func toExpenseDTO(e core.Expense) expenseDTO {
	return expenseDTO{
		ID:            e.ID,
		Title:         e.Title,
		PriceCents:    e.Price.Cents,
		CategoryID:    e.CategoryID,
		Source:        e.Source,
		PaymentMethod: e.PaymentMethod,
		Status:        string(e.Status),
		Date:          e.Date.Format(dateLayout),
	}
}

func toExpenseDTOs(es []core.Expense) []expenseDTO {
	out := make([]expenseDTO, 0, len(es))
	for _, e := range es {
		out = append(out, toExpenseDTO(e))
	}
	return out
}

func toExpensePageDTO(p services.ExpensePage) expensePageDTO {
	return expensePageDTO{
		Items:    toExpenseDTOs(p.Items),
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
}

func (r createExpenseRequest) toExpense() (core.Expense, error) {
	e := core.Expense{
		Title:         r.Title,
		Price:         core.Money{Cents: r.PriceCents},
		CategoryID:    r.CategoryID,
		Source:        r.Source,
		PaymentMethod: r.PaymentMethod,
		Status:        core.ExpenseStatus(r.Status),
	}
	if r.Date != "" {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			return core.Expense{}, err
		}
		e.Date = d
	}
	return e, nil
}
