package core

import (
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	cases := []struct {
		in  string
		out Month
		ok  bool
	}{
		{"1月", "1月", true},
		{"12月", "12月", true},
		{" 8月 ", "8月", true},
		{"13月", "", false},
		{"0月", "", false},
		{"8", "", false},
		{"", "", false},
		{"August", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMonth(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMonthOfDate(t *testing.T) {
	d := time.Date(2025, time.August, 3, 0, 0, 0, 0, time.UTC)
	if got := MonthOfDate(d); got != "8月" {
		t.Fatalf("expected 8月, got %q", got)
	}
	d = time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC)
	if got := MonthOfDate(d); got != "12月" {
		t.Fatalf("expected 12月, got %q", got)
	}
}

func TestMonthNumber(t *testing.T) {
	if got := Month("8月").Number(); got != 8 {
		t.Fatalf("expected 8, got %d", got)
	}
	if got := Month("10月").Number(); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := Month("bogus").Number(); got != 0 {
		t.Fatalf("expected 0 for invalid label, got %d", got)
	}
}
