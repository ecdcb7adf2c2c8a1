package core

import (
	"strconv"
	"strings"
	"time"
)

// Month is a month label as the app displays it ("1月" … "12月").
// Budgets are keyed by label, expenses are attributed to a month via their
// date. The label carries no year; the current scope tracks a single year,
// matching the source data set.
type Month string

// Months lists all valid labels in calendar order.
var Months = []Month{
	"1月", "2月", "3月", "4月", "5月", "6月",
	"7月", "8月", "9月", "10月", "11月", "12月",
}

// ParseMonth validates a label against the known vocabulary.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	for _, m := range Months {
		if string(m) == s {
			return m, nil
		}
	}
	return "", ErrInvalidMonth
}

// MonthOfDate derives the month label an expense belongs to.
func MonthOfDate(t time.Time) Month {
	return Months[int(t.Month())-1]
}

// Number returns the 1-12 calendar number, or 0 for an invalid label.
func (m Month) Number() int {
	s := strings.TrimSuffix(string(m), "月")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return 0
	}
	return n
}

func (m Month) Validate() error {
	if m.Number() == 0 {
		return ErrInvalidMonth
	}
	return nil
}
