package core

import (
	"errors"
	"fmt"

	"github.com/wiless/vlib"
)

// SpeedOfLight is the propagation speed used to derive wavelengths (m/s).
const SpeedOfLight = 299792458.0

// Topology describes the element layout of a phased array. The two
// supported layouts are a straight line along the x-axis and a
// circular arc bowing into +y.
type Topology string

const (
	TopologyLinear Topology = "linear"
	TopologyCurved Topology = "curved"
)

var (
	ErrBadConfig         = errors.New("invalid array configuration")
	ErrDimensionMismatch = errors.New("weight count does not match element count")
)

// ArrayParams is the caller-facing description of a phased array.
// Spacing is the element pitch in wavelengths; Curvature is the arc
// angle per element step in radians and only applies to curved arrays.
type ArrayParams struct {
	NumElements int      `json:"num_elements"`
	Spacing     float64  `json:"element_spacing"`
	FrequencyHz float64  `json:"frequency"`
	Topology    Topology `json:"array_type"`
	Curvature   float64  `json:"curvature"`
}

// Array is a phased array with its derived wavelength and element
// positions. It is immutable after construction: the derived fields
// can never drift from the parameters, so a "reconfigure" is always
// the construction of a new Array.
type Array struct {
	params     ArrayParams
	wavelength float64
	positions  []vlib.Location3D
}

// NewArray validates params, derives the wavelength and element
// positions, and returns the finished array.
func NewArray(p ArrayParams) (*Array, error) {
	if p.NumElements < 1 {
		return nil, fmt.Errorf("%w: num_elements must be >= 1, got %d", ErrBadConfig, p.NumElements)
	}
	if p.Spacing <= 0 {
		return nil, fmt.Errorf("%w: element_spacing must be > 0, got %g", ErrBadConfig, p.Spacing)
	}
	if p.FrequencyHz <= 0 {
		return nil, fmt.Errorf("%w: frequency must be > 0, got %g", ErrBadConfig, p.FrequencyHz)
	}
	if p.Curvature < 0 {
		return nil, fmt.Errorf("%w: curvature must be >= 0, got %g", ErrBadConfig, p.Curvature)
	}

	wavelength := SpeedOfLight / p.FrequencyHz
	positions, err := generatePositions(p, wavelength)
	if err != nil {
		return nil, err
	}

	return &Array{
		params:     p,
		wavelength: wavelength,
		positions:  positions,
	}, nil
}

// Params returns the parameters the array was built from.
func (a *Array) Params() ArrayParams { return a.params }

// NumElements returns the element count.
func (a *Array) NumElements() int { return a.params.NumElements }

// Topology returns the element layout.
func (a *Array) Topology() Topology { return a.params.Topology }

// Wavelength returns the derived carrier wavelength in metres.
func (a *Array) Wavelength() float64 { return a.wavelength }

// Positions returns a copy of the element positions in metres.
// Element 0 sits at the origin for linear arrays; curved arrays are
// centred on the arc's midpoint.
func (a *Array) Positions() []vlib.Location3D {
	out := make([]vlib.Location3D, len(a.positions))
	copy(out, a.positions)
	return out
}
