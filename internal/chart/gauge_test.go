package chart

import (
	"math"
	"testing"
)

func TestGaugeLayout(t *testing.T) {
	cfg := DefaultGaugeConfig()
	arcs := Gauge(1000, 250, 250, "#4A90E2", cfg)

	// Background always spans the half circle.
	if arcs.Background.StartAngle != -math.Pi/2 || arcs.Background.EndAngle != math.Pi/2 {
		t.Fatalf("background span [%v, %v], want [-π/2, π/2]", arcs.Background.StartAngle, arcs.Background.EndAngle)
	}
	if arcs.Background.Color != cfg.BackgroundColor {
		t.Fatalf("background color %q, want %q", arcs.Background.Color, cfg.BackgroundColor)
	}

	// Spent covers a quarter of the budget: π/4 of sweep.
	wantSpentEnd := -math.Pi/2 + math.Pi*0.25
	if math.Abs(arcs.Spent.EndAngle-wantSpentEnd) > epsilon {
		t.Fatalf("spent end %v, want %v", arcs.Spent.EndAngle, wantSpentEnd)
	}
	if arcs.Spent.Color != "#4A90E2" {
		t.Fatalf("spent keeps the category color, got %q", arcs.Spent.Color)
	}

	// Planned layers spent+planned (half the budget) translucently.
	wantPlannedEnd := -math.Pi/2 + math.Pi*0.5
	if math.Abs(arcs.Planned.EndAngle-wantPlannedEnd) > epsilon {
		t.Fatalf("planned end %v, want %v", arcs.Planned.EndAngle, wantPlannedEnd)
	}
	if arcs.Planned.Color != "rgba(74,144,226,0.5)" {
		t.Fatalf("planned color %q, want translucent category color", arcs.Planned.Color)
	}
}

func TestGaugeClamping(t *testing.T) {
	arcs := Gauge(1000, 2500, 500, "#FFE66D", DefaultGaugeConfig())

	// Overspend fills the gauge, never overshoots.
	if math.Abs(arcs.Spent.EndAngle-math.Pi/2) > epsilon {
		t.Fatalf("overspent arc should clamp to π/2, got %v", arcs.Spent.EndAngle)
	}
	if math.Abs(arcs.Planned.EndAngle-math.Pi/2) > epsilon {
		t.Fatalf("planned arc should clamp to π/2, got %v", arcs.Planned.EndAngle)
	}
}

func TestGaugeZeroBudget(t *testing.T) {
	arcs := Gauge(0, 100, 100, "#FFE66D", DefaultGaugeConfig())
	if arcs.Spent.EndAngle != -math.Pi/2 || arcs.Planned.EndAngle != -math.Pi/2 {
		t.Fatalf("zero budget draws empty arcs, got spent=%v planned=%v", arcs.Spent.EndAngle, arcs.Planned.EndAngle)
	}
}

func TestHexToRGBA(t *testing.T) {
	cases := []struct {
		hex   string
		alpha float64
		want  string
	}{
		{"#FFE66D", 0.5, "rgba(255,230,109,0.5)"},
		{"#E8E8E8", 1, "rgba(232,232,232,1)"},
		{"#4A90E2", 0.5, "rgba(74,144,226,0.5)"},
		{"red", 0.5, "red"},      // passthrough
		{"#FFF", 0.5, "#FFF"},    // too short
		{"#GGGGGG", 0.5, "#GGGGGG"},
	}
	for _, tc := range cases {
		if got := HexToRGBA(tc.hex, tc.alpha); got != tc.want {
			t.Fatalf("%q alpha=%v expected %q, got %q", tc.hex, tc.alpha, got, tc.want)
		}
	}
}
