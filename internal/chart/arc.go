// Package chart converts derived budget metrics into drawable angular
// geometry for the radial (donut/gauge) visualizations.
//
// Angles are radians. Zero points at 12 o'clock and angles grow clockwise,
// the convention the mobile renderer uses for its SVG arcs.
package chart

import "math"

// Slice is one input entry: a non-negative value and its display color.
// Input order is preserved; it carries the category's visual identity.
type Slice struct {
	Value float64
	Color string
}

// Config holds the donut chart parameters.
type Config struct {
	OuterRadius float64
	Thickness   float64
	// GapAngle is trimmed between adjacent segments, half from each side,
	// so neighboring arcs never touch. It is a rendering inset only: the
	// pre-gap sweeps still cover the full circle.
	GapAngle float64
	// CornerRadius rounds the arc end caps. It is passed through to each
	// segment, clamped to half the ring thickness.
	CornerRadius float64
	// LabelRadius is the distance of label anchors from the center.
	LabelRadius float64
	// LabelThreshold is the minimum share (fraction of the total) a segment
	// needs before it gets a label anchor. Smaller segments suppress their
	// label to avoid overlap.
	LabelThreshold float64
	// EmptyColor fills the single background segment when there is nothing
	// to draw.
	EmptyColor string
}

// DefaultConfig mirrors the app's donut: 280pt canvas, 28pt ring.
func DefaultConfig() Config {
	const size = 280.0
	const thickness = 28.0
	outer := size / 2
	return Config{
		OuterRadius:    outer,
		Thickness:      thickness,
		GapAngle:       0.03,
		CornerRadius:   0,
		LabelRadius:    outer - thickness/2,
		LabelThreshold: 0.03,
		EmptyColor:     "#E8E8E8",
	}
}

// Segment is one drawable donut segment.
//
// StartAngle/EndAngle are the pre-gap boundaries: across all segments they
// partition exactly 2π. DrawStart/DrawEnd are the boundaries after the
// symmetric gap trim and are what the renderer should use for the arc path.
type Segment struct {
	Index      int
	Color      string
	Share      float64
	StartAngle float64
	EndAngle   float64
	DrawStart  float64
	DrawEnd    float64
	// CornerRadius for the end caps, already clamped against the ring
	// thickness.
	CornerRadius float64
	// Label anchor on the segment's bisecting angle, at LabelRadius from
	// the center. Only meaningful when ShowLabel is true.
	LabelX    float64
	LabelY    float64
	ShowLabel bool
}

// Sweep returns the pre-gap angular width.
func (s Segment) Sweep() float64 {
	return s.EndAngle - s.StartAngle
}

// Donut partitions the full circle proportionally to the slice values, in
// input order. Negative and NaN values count as zero. An empty input, or
// one whose values sum to zero, yields a single neutral background segment
// spanning the whole circle so the renderer never divides by zero.
func Donut(slices []Slice, cfg Config) []Segment {
	values := make([]float64, len(slices))
	total := 0.0
	for i, s := range slices {
		v := s.Value
		if math.IsNaN(v) || v < 0 {
			v = 0
		}
		values[i] = v
		total += v
	}

	corner := cornerRadius(cfg)

	if total == 0 {
		return []Segment{{
			Index:        0,
			Color:        cfg.EmptyColor,
			Share:        1,
			StartAngle:   0,
			EndAngle:     2 * math.Pi,
			DrawStart:    0,
			DrawEnd:      2 * math.Pi,
			CornerRadius: corner,
		}}
	}

	segments := make([]Segment, 0, len(slices))
	cum := 0.0
	start := 0.0
	for i, s := range slices {
		cum += values[i]
		// Boundaries come from the cumulative share so the final segment
		// ends at exactly 2π regardless of rounding along the way.
		end := 2 * math.Pi * (cum / total)
		share := values[i] / total

		seg := Segment{
			Index:        i,
			Color:        s.Color,
			Share:        share,
			StartAngle:   start,
			EndAngle:     end,
			CornerRadius: corner,
		}
		seg.DrawStart, seg.DrawEnd = trimGap(start, end, cfg.GapAngle)

		if share > cfg.LabelThreshold && cfg.LabelRadius > 0 {
			mid := (start + end) / 2
			seg.LabelX = cfg.LabelRadius * math.Sin(mid)
			seg.LabelY = -cfg.LabelRadius * math.Cos(mid)
			seg.ShowLabel = true
		}

		segments = append(segments, seg)
		start = end
	}
	return segments
}

// cornerRadius clamps the configured radius to half the ring thickness;
// anything larger would fold the cap back on itself.
func cornerRadius(cfg Config) float64 {
	r := cfg.CornerRadius
	if r < 0 {
		return 0
	}
	if limit := cfg.Thickness / 2; cfg.Thickness > 0 && r > limit {
		return limit
	}
	return r
}

// trimGap insets the drawable arc by half the gap on each side. A segment
// narrower than the gap collapses to its midpoint instead of inverting.
func trimGap(start, end, gap float64) (float64, float64) {
	if gap <= 0 {
		return start, end
	}
	sweep := end - start
	if sweep <= gap {
		mid := (start + end) / 2
		return mid, mid
	}
	return start + gap/2, end - gap/2
}
