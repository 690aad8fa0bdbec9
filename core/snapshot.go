package core

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"

	"github.com/wiless/vlib"
)

// SnapshotParams controls synthetic received-signal generation. The
// seed makes a snapshot reproducible; identical inputs always produce
// identical samples.
type SnapshotParams struct {
	NumSamples int
	SNRDb      float64
	Seed       int64
}

// Snapshot is a block of simulated baseband samples as received at
// the array, element-major: Samples[e][t].
type Snapshot struct {
	Samples    []vlib.VectorC
	NumSamples int
	SNRDb      float64
	SourceIDs  []string
}

// Snapshot synthesizes what the array would receive from the given
// sources. Each source emits a random complex signal scaled by the
// square root of its power, arriving with the element-index phase
// signature of its azimuth. Complex white noise is then added so the
// block's signal-to-noise ratio matches SNRDb.
func (a *Array) Snapshot(sources []Source, p SnapshotParams) (*Snapshot, error) {
	if p.NumSamples < 1 {
		return nil, fmt.Errorf("%w: num_samples must be >= 1, got %d", ErrBadConfig, p.NumSamples)
	}

	n := a.params.NumElements
	rng := rand.New(rand.NewSource(p.Seed))

	out := &Snapshot{
		Samples:    make([]vlib.VectorC, n),
		NumSamples: p.NumSamples,
		SNRDb:      p.SNRDb,
	}
	for e := range out.Samples {
		out.Samples[e] = vlib.NewVectorC(p.NumSamples)
	}

	for _, src := range sources {
		out.SourceIDs = append(out.SourceIDs, src.ID)

		amp := math.Sqrt(src.Power)
		signal := vlib.NewVectorC(p.NumSamples)
		for t := range signal {
			signal[t] = complex(rng.NormFloat64()*amp, rng.NormFloat64()*amp)
		}

		sinAz := math.Sin(src.AzimuthDeg * math.Pi / 180)
		for e := 0; e < n; e++ {
			shift := cmplx.Exp(complex(0, 2*math.Pi*float64(e)*sinAz))
			for t := range signal {
				out.Samples[e][t] += signal[t] * shift
			}
		}
	}

	// Scale the noise floor off the mean signal power across the block.
	var signalPower float64
	for e := range out.Samples {
		for _, s := range out.Samples[e] {
			signalPower += real(s)*real(s) + imag(s)*imag(s)
		}
	}
	signalPower /= float64(n * p.NumSamples)

	noisePower := signalPower / vlib.InvDb(p.SNRDb)
	noiseAmp := math.Sqrt(noisePower / 2)
	for e := range out.Samples {
		for t := range out.Samples[e] {
			out.Samples[e][t] += complex(rng.NormFloat64()*noiseAmp, rng.NormFloat64()*noiseAmp)
		}
	}

	return out, nil
}
