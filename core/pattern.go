package core

import (
	"math"
	"math/cmplx"

	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/floats"
)

// Azimuth cuts sample the forward hemisphere only; the 3-D pattern
// covers the full sphere.
const (
	azimuthSamples = 361
	azimuthMinDeg  = -90.0
	azimuthMaxDeg  = 90.0

	sphereAzimuthSamples   = 72
	sphereElevationSamples = 36

	// dbFloor keeps the log argument positive at pattern nulls.
	dbFloor = 1e-10
)

// AzimuthCut is a 1-D pattern slice at zero elevation. Magnitudes are
// in dB, normalized so the strongest direction sits at 0 dB.
type AzimuthCut struct {
	AnglesDeg    vlib.VectorF
	MagnitudesDb vlib.VectorF
	SteerAzDeg   float64
}

// SpherePattern is the far-field magnitude over the full sphere.
// All three grids are elevation-major: row i is elevation sample i,
// column j is azimuth sample j. Magnitude is linear with peak 1.0.
type SpherePattern struct {
	AzimuthDeg   vlib.MatrixF
	ElevationDeg vlib.MatrixF
	Magnitude    vlib.MatrixF
	SteerAzDeg   float64
	SteerElDeg   float64
}

// AzimuthPattern renders the beam pattern over [-90, +90] degrees at
// zero elevation, phased toward steerAzDeg.
func (a *Array) AzimuthPattern(steerAzDeg float64) *AzimuthCut {
	weights := a.SteeringVector(steerAzDeg, 0)
	cut := a.renderAzimuth(weights)
	cut.SteerAzDeg = steerAzDeg
	return cut
}

// renderAzimuth evaluates the cut for explicit weights. The weights
// must be one per element.
func (a *Array) renderAzimuth(weights vlib.VectorC) *AzimuthCut {
	angles := vlib.NewVectorF(azimuthSamples)
	floats.Span(angles, azimuthMinDeg, azimuthMaxDeg)

	mags := vlib.NewVectorF(azimuthSamples)
	for i, ang := range angles {
		sv := a.SteeringVector(ang, 0)
		var sum complex128
		for e, w := range weights {
			sum += w * sv[e]
		}
		mags[i] = cmplx.Abs(sum)
	}

	peak := floats.Max(mags)
	if peak <= 0 {
		peak = 1
	}
	for i, m := range mags {
		mags[i] = 20 * math.Log10(m/peak+dbFloor)
	}

	return &AzimuthCut{AnglesDeg: angles, MagnitudesDb: mags}
}

// SpherePatternAt renders the full-sphere pattern phased toward the
// given steering direction.
func (a *Array) SpherePatternAt(steerAzDeg, steerElDeg float64) *SpherePattern {
	weights := a.SteeringVector(steerAzDeg, steerElDeg)
	p := a.renderSphere(weights)
	p.SteerAzDeg = steerAzDeg
	p.SteerElDeg = steerElDeg
	return p
}

func (a *Array) renderSphere(weights vlib.VectorC) *SpherePattern {
	azimuths := vlib.NewVectorF(sphereAzimuthSamples)
	floats.Span(azimuths, 0, 360)
	elevations := vlib.NewVectorF(sphereElevationSamples)
	floats.Span(elevations, 0, 180)

	azGrid := vlib.NewMatrixF(sphereElevationSamples, sphereAzimuthSamples)
	elGrid := vlib.NewMatrixF(sphereElevationSamples, sphereAzimuthSamples)
	mag := vlib.NewMatrixF(sphereElevationSamples, sphereAzimuthSamples)

	peak := 0.0
	for i, el := range elevations {
		for j, az := range azimuths {
			sv := a.SteeringVector(az, el)
			var sum complex128
			for e, w := range weights {
				sum += w * sv[e]
			}
			azGrid[i][j] = az
			elGrid[i][j] = el
			mag[i][j] = cmplx.Abs(sum)
			if mag[i][j] > peak {
				peak = mag[i][j]
			}
		}
	}

	if peak > 0 {
		for i := range mag {
			for j := range mag[i] {
				mag[i][j] /= peak
			}
		}
	}

	return &SpherePattern{AzimuthDeg: azGrid, ElevationDeg: elGrid, Magnitude: mag}
}
