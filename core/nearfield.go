package core

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/floats"
)

// DefaultFieldResolution is the grid edge length used when a caller
// does not ask for a specific interference-map resolution.
const DefaultFieldResolution = 100

// The observation window is expressed in wavelengths. The y span is
// fixed to show the field propagating forward of the aperture; the x
// span is auto-scaled from the element layout.
const (
	fieldYMinWl = -3.0
	fieldYMaxWl = 8.0

	// Grid points that coincide with an element keep a finite phase:
	// distances are floored at lambda/100.
	minDistanceWl = 1.0 / 100
)

// InterferenceMap is the near-field intensity over a 2-D slice of
// space in the z=0 plane. X and Y are in wavelengths; Intensity is
// |field|^2 normalized to [0, 1].
type InterferenceMap struct {
	X          vlib.MatrixF
	Y          vlib.MatrixF
	Intensity  vlib.MatrixF
	SteerAzDeg float64
	SteerElDeg float64
	Resolution int
}

// InterferencePattern renders the near-field map with the array
// phased toward the given steering direction. A resolution of zero or
// less selects DefaultFieldResolution.
func (a *Array) InterferencePattern(steerAzDeg, steerElDeg float64, resolution int) (*InterferenceMap, error) {
	if resolution <= 0 {
		resolution = DefaultFieldResolution
	}
	weights := a.SteeringVector(steerAzDeg, steerElDeg)
	m, err := a.renderInterference(weights, resolution)
	if err != nil {
		return nil, err
	}
	m.SteerAzDeg = steerAzDeg
	m.SteerElDeg = steerElDeg
	return m, nil
}

// renderInterference sums each element's contribution at every grid
// point as a unit-amplitude spherical phase front: w * exp(-j k d),
// with no 1/d falloff so the interference structure stays visible at
// range. Intensity is the squared magnitude of the summed field.
func (a *Array) renderInterference(weights vlib.VectorC, resolution int) (*InterferenceMap, error) {
	if weights.Size() != a.params.NumElements {
		return nil, fmt.Errorf("%w: %d weights for %d elements",
			ErrDimensionMismatch, weights.Size(), a.params.NumElements)
	}

	// Per-map copy so normalizing never mutates the caller's weights.
	w := vlib.NewVectorC(weights.Size())
	copy(w, weights)
	maxAbs := 0.0
	for _, c := range w {
		if abs := cmplx.Abs(c); abs > maxAbs {
			maxAbs = abs
		}
	}
	if maxAbs > 0 {
		for i := range w {
			w[i] /= complex(maxAbs, 0)
		}
	}

	// X window: the element span in wavelengths, padded 2x either side.
	xMinWl, xMaxWl := math.Inf(1), math.Inf(-1)
	for _, p := range a.positions {
		xWl := p.X / a.wavelength
		xMinWl = math.Min(xMinWl, xWl)
		xMaxWl = math.Max(xMaxWl, xWl)
	}
	span := math.Max(xMaxWl-xMinWl, 1.0)
	center := (xMaxWl + xMinWl) / 2

	xs := make([]float64, resolution)
	floats.Span(xs, center-2*span, center+2*span)
	ys := make([]float64, resolution)
	floats.Span(ys, fieldYMinWl, fieldYMaxWl)

	xGrid := vlib.NewMatrixF(resolution, resolution)
	yGrid := vlib.NewMatrixF(resolution, resolution)
	intensity := vlib.NewMatrixF(resolution, resolution)

	k := 2 * math.Pi / a.wavelength
	minDistance := a.wavelength * minDistanceWl

	peak := 0.0
	for i, yWl := range ys {
		for j, xWl := range xs {
			xGrid[i][j] = xWl
			yGrid[i][j] = yWl

			xm := xWl * a.wavelength
			ym := yWl * a.wavelength

			var field complex128
			for e, p := range a.positions {
				dx := xm - p.X
				dy := ym - p.Y
				dz := -p.Z
				d := math.Sqrt(dx*dx + dy*dy + dz*dz)
				if d < minDistance {
					d = minDistance
				}
				field += w[e] * cmplx.Exp(complex(0, -k*d))
			}

			mag := cmplx.Abs(field)
			intensity[i][j] = mag * mag
			if intensity[i][j] > peak {
				peak = intensity[i][j]
			}
		}
	}

	if peak > 0 {
		for i := range intensity {
			for j := range intensity[i] {
				intensity[i][j] /= peak
			}
		}
	}

	return &InterferenceMap{X: xGrid, Y: yGrid, Intensity: intensity, Resolution: resolution}, nil
}
