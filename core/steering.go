package core

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/wiless/vlib"
)

// SteeringVector returns the per-element phasing that points the beam
// at the given direction. Angles are in degrees: azimuth is measured
// in the element plane, elevation out of it. The direction unit
// vector is
//
//	d = (sin az * cos el, sin az * sin el, cos az)
//
// and each element's weight is exp(+j k (p . d)) with k = 2*pi/lambda.
func (a *Array) SteeringVector(azimuthDeg, elevationDeg float64) vlib.VectorC {
	az := azimuthDeg * math.Pi / 180
	el := elevationDeg * math.Pi / 180

	k := 2 * math.Pi / a.wavelength
	dx := math.Sin(az) * math.Cos(el)
	dy := math.Sin(az) * math.Sin(el)
	dz := math.Cos(az)

	sv := vlib.NewVectorC(a.params.NumElements)
	for i, p := range a.positions {
		phase := k * (p.X*dx + p.Y*dy + p.Z*dz)
		sv[i] = cmplx.Exp(complex(0, phase))
	}
	return sv
}

// ArrayFactor evaluates the far-field response of the weighted array
// in the given direction: the plain (unconjugated) inner product of
// the weights with the direction's steering vector. The phase
// convention matches SteeringVector, so steering weights evaluated at
// their own steering direction do NOT collapse to a real sum; only
// broadside (0, 0) is phase-free for on-axis layouts.
func (a *Array) ArrayFactor(azimuthDeg, elevationDeg float64, weights vlib.VectorC) (complex128, error) {
	if weights.Size() != a.params.NumElements {
		return 0, fmt.Errorf("%w: %d weights for %d elements",
			ErrDimensionMismatch, weights.Size(), a.params.NumElements)
	}

	sv := a.SteeringVector(azimuthDeg, elevationDeg)
	var sum complex128
	for i, w := range weights {
		sum += w * sv[i]
	}
	return sum, nil
}
