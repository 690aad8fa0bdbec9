package core

import (
	"fmt"
	"math"

	"github.com/wiless/vlib"
)

// generatePositions computes the element coordinates for the given
// parameters, in metres. All layouts live in the z=0 plane.
func generatePositions(p ArrayParams, wavelength float64) ([]vlib.Location3D, error) {
	pitch := p.Spacing * wavelength

	switch p.Topology {
	case TopologyLinear:
		return linePositions(p.NumElements, pitch), nil
	case TopologyCurved:
		if p.Curvature == 0 {
			// A flat arc degenerates to the linear layout.
			return linePositions(p.NumElements, pitch), nil
		}
		return arcPositions(p.NumElements, pitch, p.Curvature), nil
	default:
		return nil, fmt.Errorf("%w: unknown array type %q", ErrBadConfig, p.Topology)
	}
}

// linePositions places n elements along the x-axis with the given
// pitch, element 0 at the origin.
func linePositions(n int, pitch float64) []vlib.Location3D {
	out := make([]vlib.Location3D, n)
	for i := range out {
		out[i] = vlib.Location3D{X: float64(i) * pitch}
	}
	return out
}

// arcPositions places n elements on a circular arc bowing into +y.
// The curvature is the arc angle between adjacent elements, so the
// full aperture subtends curvature*(n-1) radians. The radius follows
// from the chord length between neighbours being the element pitch.
func arcPositions(n int, pitch, curvature float64) []vlib.Location3D {
	totalAngle := curvature * float64(n-1)
	radius := pitch / (2 * math.Sin(curvature/2))

	out := make([]vlib.Location3D, n)
	for i := range out {
		var a float64
		if n > 1 {
			a = -totalAngle/2 + totalAngle*float64(i)/float64(n-1)
		}
		out[i] = vlib.Location3D{
			X: radius * math.Sin(a),
			Y: radius * (1 - math.Cos(a)),
		}
	}
	return out
}
