package core

import (
	"errors"
	"math"
	"testing"
)

// near reports whether got is within tol of want. Pattern maths is
// plain float64, so comparisons throughout these tests carry explicit
// tolerances.
func near(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

// newTestArray builds a small array or fails the test.
func newTestArray(t *testing.T, p ArrayParams) *Array {
	t.Helper()
	a, err := NewArray(p)
	if err != nil {
		t.Fatalf("NewArray(%+v): %v", p, err)
	}
	return a
}

func TestNewArray_DerivedValues(t *testing.T) {
	a := newTestArray(t, ArrayParams{
		NumElements: 8,
		Spacing:     0.5,
		FrequencyHz: 1e9,
		Topology:    TopologyLinear,
	})

	// c/f at 1 GHz.
	if !near(a.Wavelength(), 0.299792458, 1e-12) {
		t.Fatalf("wavelength = %v, want 0.299792458", a.Wavelength())
	}

	pos := a.Positions()
	if len(pos) != 8 {
		t.Fatalf("got %d positions, want 8", len(pos))
	}
	if pos[0].X != 0 || pos[0].Y != 0 || pos[0].Z != 0 {
		t.Errorf("element 0 should sit at the origin, got %+v", pos[0])
	}

	pitch := 0.5 * a.Wavelength()
	for i := 1; i < len(pos); i++ {
		if pos[i].X <= pos[i-1].X {
			t.Errorf("x positions must be strictly increasing, pos[%d]=%v pos[%d]=%v",
				i-1, pos[i-1].X, i, pos[i].X)
		}
		if !near(pos[i].X-pos[i-1].X, pitch, 1e-12) {
			t.Errorf("pitch between %d and %d = %v, want %v", i-1, i, pos[i].X-pos[i-1].X, pitch)
		}
		if pos[i].Y != 0 || pos[i].Z != 0 {
			t.Errorf("linear layout must stay on the x-axis, pos[%d]=%+v", i, pos[i])
		}
	}
}

func TestNewArray_RejectsBadParams(t *testing.T) {
	cases := []struct {
		name string
		p    ArrayParams
	}{
		{"zero elements", ArrayParams{NumElements: 0, Spacing: 0.5, FrequencyHz: 1e9, Topology: TopologyLinear}},
		{"negative spacing", ArrayParams{NumElements: 4, Spacing: -0.5, FrequencyHz: 1e9, Topology: TopologyLinear}},
		{"zero spacing", ArrayParams{NumElements: 4, Spacing: 0, FrequencyHz: 1e9, Topology: TopologyLinear}},
		{"zero frequency", ArrayParams{NumElements: 4, Spacing: 0.5, FrequencyHz: 0, Topology: TopologyLinear}},
		{"negative curvature", ArrayParams{NumElements: 4, Spacing: 0.5, FrequencyHz: 1e9, Topology: TopologyCurved, Curvature: -0.1}},
		{"unknown topology", ArrayParams{NumElements: 4, Spacing: 0.5, FrequencyHz: 1e9, Topology: Topology("planar")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewArray(tc.p); !errors.Is(err, ErrBadConfig) {
				t.Fatalf("NewArray(%+v) err = %v, want ErrBadConfig", tc.p, err)
			}
		})
	}
}

func TestNewArray_ZeroCurvatureMatchesLinear(t *testing.T) {
	linear := newTestArray(t, ArrayParams{
		NumElements: 6, Spacing: 0.5, FrequencyHz: 2.4e9, Topology: TopologyLinear,
	})
	flatArc := newTestArray(t, ArrayParams{
		NumElements: 6, Spacing: 0.5, FrequencyHz: 2.4e9, Topology: TopologyCurved, Curvature: 0,
	})

	if flatArc.Topology() != TopologyCurved {
		t.Fatalf("topology tag = %q, want %q", flatArc.Topology(), TopologyCurved)
	}

	lp, cp := linear.Positions(), flatArc.Positions()
	for i := range lp {
		if lp[i] != cp[i] {
			t.Fatalf("position %d differs: linear %+v vs flat arc %+v", i, lp[i], cp[i])
		}
	}
}

func TestArray_PositionsAreACopy(t *testing.T) {
	a := newTestArray(t, ArrayParams{
		NumElements: 4, Spacing: 0.5, FrequencyHz: 1e9, Topology: TopologyLinear,
	})

	pos := a.Positions()
	pos[1].X = -42

	if got := a.Positions()[1].X; got == -42 {
		t.Fatalf("mutating the returned slice must not reach the array, got x=%v", got)
	}
}
