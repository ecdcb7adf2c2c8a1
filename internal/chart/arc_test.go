package chart

import (
	"math"
	"testing"
)

const epsilon = 1e-6

func TestDonutSweepsPartitionFullCircle(t *testing.T) {
	cases := [][]Slice{
		{{Value: 7200, Color: "a"}, {Value: 4000, Color: "b"}, {Value: 14000, Color: "c"}},
		{{Value: 1, Color: "a"}},
		{{Value: 1, Color: "a"}, {Value: 1, Color: "b"}, {Value: 1, Color: "c"}, {Value: 1, Color: "d"}, {Value: 1, Color: "e"}, {Value: 1, Color: "f"}, {Value: 1, Color: "g"}},
		{{Value: 0.1, Color: "a"}, {Value: 0.2, Color: "b"}, {Value: 0.3, Color: "c"}},
	}
	for _, slices := range cases {
		segs := Donut(slices, DefaultConfig())
		if len(segs) != len(slices) {
			t.Fatalf("expected %d segments, got %d", len(slices), len(segs))
		}

		sum := 0.0
		for _, s := range segs {
			sum += s.Sweep()
		}
		if math.Abs(sum-2*math.Pi) > epsilon {
			t.Fatalf("sweeps sum to %v, want 2π", sum)
		}
		// Boundaries are contiguous and the last lands exactly on 2π.
		if segs[0].StartAngle != 0 {
			t.Fatalf("first segment starts at %v, want 0", segs[0].StartAngle)
		}
		for i := 1; i < len(segs); i++ {
			if segs[i].StartAngle != segs[i-1].EndAngle {
				t.Fatalf("segment %d start %v != previous end %v", i, segs[i].StartAngle, segs[i-1].EndAngle)
			}
		}
		if math.Abs(segs[len(segs)-1].EndAngle-2*math.Pi) > epsilon {
			t.Fatalf("last segment ends at %v, want 2π", segs[len(segs)-1].EndAngle)
		}
	}
}

func TestDonutEmptyInputs(t *testing.T) {
	cfg := DefaultConfig()
	for _, slices := range [][]Slice{
		nil,
		{},
		{{Value: 0, Color: "a"}, {Value: 0, Color: "b"}},
		{{Value: -5, Color: "a"}},
		{{Value: math.NaN(), Color: "a"}},
	} {
		segs := Donut(slices, cfg)
		if len(segs) != 1 {
			t.Fatalf("expected single background segment, got %d", len(segs))
		}
		s := segs[0]
		if s.Color != cfg.EmptyColor {
			t.Fatalf("expected empty color %q, got %q", cfg.EmptyColor, s.Color)
		}
		if s.StartAngle != 0 || math.Abs(s.EndAngle-2*math.Pi) > epsilon {
			t.Fatalf("background must span the full circle, got [%v, %v]", s.StartAngle, s.EndAngle)
		}
		if s.Share != 1 {
			t.Fatalf("background share expected 1, got %v", s.Share)
		}
	}
}

func TestDonutNegativeAndNaNCountAsZero(t *testing.T) {
	segs := Donut([]Slice{
		{Value: 10, Color: "a"},
		{Value: -3, Color: "b"},
		{Value: math.NaN(), Color: "c"},
		{Value: 10, Color: "d"},
	}, DefaultConfig())

	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}
	if segs[1].Sweep() != 0 || segs[2].Sweep() != 0 {
		t.Fatalf("zeroed slices must have zero sweep, got %v and %v", segs[1].Sweep(), segs[2].Sweep())
	}
	if math.Abs(segs[0].Sweep()-math.Pi) > epsilon || math.Abs(segs[3].Sweep()-math.Pi) > epsilon {
		t.Fatalf("equal slices should split the circle, got %v and %v", segs[0].Sweep(), segs[3].Sweep())
	}
}

func TestDonutGapTrim(t *testing.T) {
	cfg := DefaultConfig()
	segs := Donut([]Slice{{Value: 1, Color: "a"}, {Value: 1, Color: "b"}}, cfg)

	for _, s := range segs {
		if math.Abs((s.DrawStart-s.StartAngle)-cfg.GapAngle/2) > epsilon {
			t.Fatalf("draw start should be inset by half gap, got %v", s.DrawStart-s.StartAngle)
		}
		if math.Abs((s.EndAngle-s.DrawEnd)-cfg.GapAngle/2) > epsilon {
			t.Fatalf("draw end should be inset by half gap, got %v", s.EndAngle-s.DrawEnd)
		}
	}

	// A sliver narrower than the gap collapses instead of inverting.
	segs = Donut([]Slice{{Value: 1000, Color: "a"}, {Value: 1, Color: "b"}}, cfg)
	sliver := segs[1]
	if sliver.DrawEnd != sliver.DrawStart {
		t.Fatalf("sliver should collapse to its midpoint, got [%v, %v]", sliver.DrawStart, sliver.DrawEnd)
	}
	if sliver.DrawStart < sliver.StartAngle || sliver.DrawEnd > sliver.EndAngle {
		t.Fatal("collapsed sliver must stay within its boundaries")
	}
}

func TestDonutCornerRadius(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CornerRadius = 6

	segs := Donut([]Slice{{Value: 1, Color: "a"}, {Value: 1, Color: "b"}}, cfg)
	for _, s := range segs {
		if s.CornerRadius != 6 {
			t.Fatalf("expected corner radius 6, got %v", s.CornerRadius)
		}
	}

	// The background segment carries it too.
	segs = Donut(nil, cfg)
	if segs[0].CornerRadius != 6 {
		t.Fatalf("background expected corner radius 6, got %v", segs[0].CornerRadius)
	}

	// Larger than half the ring thickness clamps; negative zeroes out.
	cfg.CornerRadius = cfg.Thickness
	segs = Donut([]Slice{{Value: 1, Color: "a"}}, cfg)
	if segs[0].CornerRadius != cfg.Thickness/2 {
		t.Fatalf("expected clamp to %v, got %v", cfg.Thickness/2, segs[0].CornerRadius)
	}
	cfg.CornerRadius = -1
	segs = Donut([]Slice{{Value: 1, Color: "a"}}, cfg)
	if segs[0].CornerRadius != 0 {
		t.Fatalf("negative radius expected 0, got %v", segs[0].CornerRadius)
	}
}

func TestDonutLabelThreshold(t *testing.T) {
	cfg := DefaultConfig()
	segs := Donut([]Slice{{Value: 97, Color: "a"}, {Value: 3, Color: "b"}, {Value: 0, Color: "c"}}, cfg)

	if !segs[0].ShowLabel {
		t.Fatal("dominant segment should carry a label")
	}
	if segs[1].ShowLabel {
		t.Fatal("3% share is at the threshold, not above it")
	}
	if segs[2].ShowLabel {
		t.Fatal("zero segment must not carry a label")
	}

	// Label anchor sits at LabelRadius from center on the bisector.
	lx, ly := segs[0].LabelX, segs[0].LabelY
	if r := math.Hypot(lx, ly); math.Abs(r-cfg.LabelRadius) > epsilon {
		t.Fatalf("label distance %v, want %v", r, cfg.LabelRadius)
	}
}

func TestDonutSingleSliceLabelPointsUpRight(t *testing.T) {
	// One slice spans the circle; its bisector is π, pointing straight down.
	segs := Donut([]Slice{{Value: 5, Color: "a"}}, DefaultConfig())
	if math.Abs(segs[0].LabelX) > epsilon {
		t.Fatalf("expected label on the vertical axis, x=%v", segs[0].LabelX)
	}
	if segs[0].LabelY <= 0 {
		t.Fatalf("expected label below center (y>0 in screen coords), y=%v", segs[0].LabelY)
	}
}
