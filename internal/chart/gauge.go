package chart

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GaugeConfig holds the half-circle gauge parameters.
type GaugeConfig struct {
	Size      float64
	Thickness float64
	// BackgroundColor fills the full half-circle track.
	BackgroundColor string
	// PlannedAlpha is the opacity applied to the planned-spend arc so it
	// reads as provisional next to the committed arc.
	PlannedAlpha float64
}

// DefaultGaugeConfig mirrors the app's category gauge: 300pt wide, 30pt arc.
func DefaultGaugeConfig() GaugeConfig {
	return GaugeConfig{
		Size:            300,
		Thickness:       30,
		BackgroundColor: "#E8E8E8",
		PlannedAlpha:    0.5,
	}
}

// GaugeArc is one arc of the gauge, from StartAngle to EndAngle.
type GaugeArc struct {
	StartAngle float64
	EndAngle   float64
	Color      string
}

// GaugeArcs is the layered output of Gauge, back to front: the neutral
// track, the planned arc (spent+planned, translucent), the committed arc.
type GaugeArcs struct {
	Background GaugeArc
	Planned    GaugeArc
	Spent      GaugeArc
}

// Gauge lays out the half-circle budget gauge: a fixed background sweep
// from -π/2 to π/2, a translucent arc for committed plus planned spend, and
// an opaque arc for committed spend only. Ratios clamp to 1 so an overspent
// category fills the gauge rather than overshooting it. A zero total draws
// empty arcs over the background.
func Gauge(totalBudget, spent, planned float64, color string, cfg GaugeConfig) GaugeArcs {
	const start = -math.Pi / 2
	const end = math.Pi / 2

	spentRatio := ratio(spent, totalBudget)
	cartRatio := ratio(spent+planned, totalBudget)

	return GaugeArcs{
		Background: GaugeArc{StartAngle: start, EndAngle: end, Color: cfg.BackgroundColor},
		Planned:    GaugeArc{StartAngle: start, EndAngle: start + math.Pi*cartRatio, Color: HexToRGBA(color, cfg.PlannedAlpha)},
		Spent:      GaugeArc{StartAngle: start, EndAngle: start + math.Pi*spentRatio, Color: color},
	}
}

func ratio(part, whole float64) float64 {
	if whole <= 0 || math.IsNaN(part) || part <= 0 {
		return 0
	}
	return math.Min(1, part/whole)
}

// HexToRGBA converts a #RRGGBB color to an rgba() string with the given
// alpha. Inputs that are not 7-character hex colors pass through unchanged.
func HexToRGBA(hex string, alpha float64) string {
	if !strings.HasPrefix(hex, "#") || len(hex) < 7 {
		return hex
	}
	r, err1 := strconv.ParseUint(hex[1:3], 16, 8)
	g, err2 := strconv.ParseUint(hex[3:5], 16, 8)
	b, err3 := strconv.ParseUint(hex[5:7], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return hex
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%g)", r, g, b, alpha)
}
