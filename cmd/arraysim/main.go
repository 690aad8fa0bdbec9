package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/floats"

	"github.com/signalforge/arraysim/core"
)

// Sample TLE used when track mode is run without explicit elements
// (the ISS, epoch October 2021).
const (
	defaultTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	defaultTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func main() {
	mode := flag.String("mode", "pattern",
		"what to compute: geometry, pattern, sphere, field, sweep, snapshot or track")

	elements := flag.Int("elements", 8, "number of array elements")
	spacing := flag.Float64("spacing", 0.5, "element pitch in wavelengths")
	freq := flag.Float64("freq", 1e9, "carrier frequency in Hz")
	layout := flag.String("layout", "linear", "element layout: linear or curved")
	curvature := flag.Float64("curvature", 0.1, "arc angle per element step in radians (curved layout)")
	scenario := flag.String("scenario", "",
		"build the array from a catalog preset instead of the geometry flags")

	azimuth := flag.Float64("azimuth", 0, "steering azimuth in degrees")
	elevation := flag.Float64("elevation", 0, "steering elevation in degrees")
	resolution := flag.Int("resolution", core.DefaultFieldResolution, "near-field grid resolution")

	sweepStart := flag.Float64("sweep-start", -60, "sweep start azimuth in degrees")
	sweepEnd := flag.Float64("sweep-end", 60, "sweep end azimuth in degrees")
	sweepSteps := flag.Int("sweep-steps", 25, "number of sweep frames")
	tick := flag.Duration("tick", 0, "wall-clock pacing between sweep frames (0 = free-running)")

	samples := flag.Int("samples", 100, "snapshot samples per element")
	snr := flag.Float64("snr", 20, "snapshot SNR in dB")
	seed := flag.Int64("seed", 1, "snapshot noise seed")

	tle1 := flag.String("tle1", defaultTLE1, "TLE line 1 for track mode")
	tle2 := flag.String("tle2", defaultTLE2, "TLE line 2 for track mode")
	siteLat := flag.Float64("lat", 12.97, "tracking site latitude in degrees")
	siteLon := flag.Float64("lon", 77.59, "tracking site longitude in degrees")
	siteAlt := flag.Float64("alt", 0.92, "tracking site altitude in km")
	trackStart := flag.String("track-start", "", "pass start time, RFC3339 (default: now)")
	trackStep := flag.Duration("track-step", time.Minute, "time between track points")
	trackSteps := flag.Int("track-steps", 90, "number of track points")

	out := flag.String("out", "arraysim", "base name for the JSON export")
	writeMatlab := flag.Bool("matlab", false, "also write a Matlab script with the raw vectors")

	flag.Parse()

	catalog := core.NewCatalog()

	params := core.ArrayParams{
		NumElements: *elements,
		Spacing:     *spacing,
		FrequencyHz: *freq,
		Topology:    core.Topology(*layout),
		Curvature:   *curvature,
	}
	var sources []core.Source
	if *scenario != "" {
		sc, err := catalog.Get(*scenario)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unknown scenario %q; available presets:\n", *scenario)
			for _, s := range catalog.List() {
				fmt.Fprintf(os.Stderr, "  %-16s %s\n", s.ID, s.Name)
			}
			os.Exit(1)
		}
		params = sc.ArrayParams()
		sources = sc.Sources
		fmt.Printf("Scenario %q: %s\n", sc.ID, sc.Name)
	}

	arr, err := core.NewArray(params)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Array: %d elements, %s layout, %.3g Hz carrier, wavelength %.4g m\n",
		arr.NumElements(), params.Topology, params.FrequencyHz, arr.Wavelength())

	exp := exporter{base: *out, matlab: *writeMatlab}

	switch *mode {
	case "geometry":
		runGeometry(arr, exp)

	case "pattern":
		runPattern(arr, *azimuth, exp)

	case "sphere":
		runSphere(arr, *azimuth, *elevation, exp)

	case "field":
		runField(arr, *azimuth, *elevation, *resolution, exp)

	case "sweep":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		p := core.SweepParams{StartDeg: *sweepStart, EndDeg: *sweepEnd, Steps: *sweepSteps, Tick: *tick}
		runSweep(ctx, arr, p, exp)

	case "snapshot":
		if len(sources) == 0 {
			fmt.Fprintln(os.Stderr, "snapshot mode needs -scenario; available presets:")
			for _, s := range catalog.List() {
				fmt.Fprintf(os.Stderr, "  %-16s %s\n", s.ID, s.Name)
			}
			os.Exit(1)
		}
		p := core.SnapshotParams{NumSamples: *samples, SNRDb: *snr, Seed: *seed}
		runSnapshot(arr, sources, p, exp)

	case "track":
		start := time.Now().UTC()
		if *trackStart != "" {
			t, err := time.Parse(time.RFC3339, *trackStart)
			if err != nil {
				panic(fmt.Errorf("bad -track-start: %w", err))
			}
			start = t.UTC()
		}
		p := core.TrackParams{
			TLELine1:   *tle1,
			TLELine2:   *tle2,
			SiteLatDeg: *siteLat,
			SiteLonDeg: *siteLon,
			SiteAltKm:  *siteAlt,
			Start:      start,
			Step:       *trackStep,
			Steps:      *trackSteps,
		}
		runTrack(p, exp)

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q; want geometry, pattern, sphere, field, sweep, snapshot or track\n", *mode)
		os.Exit(1)
	}
}

// runGeometry dumps the element layout.
func runGeometry(arr *core.Array, exp exporter) {
	positions := arr.Positions()
	var xs, ys vlib.VectorF
	for _, p := range positions {
		xs.AppendAtEnd(p.X)
		ys.AppendAtEnd(p.Y)
	}
	fmt.Printf("Aperture: x %.4g..%.4g m, y %.4g..%.4g m\n",
		floats.Min(xs), floats.Max(xs), floats.Min(ys), floats.Max(ys))

	exp.saveJSON("geometry", positions)
	exp.script("geometry", func(m *vlib.Matlab) {
		m.Export("X", xs)
		m.Export("Y", ys)
	})
}

// runPattern renders a single azimuth cut and reports its main lobe.
func runPattern(arr *core.Array, steerAzDeg float64, exp exporter) {
	cut := arr.AzimuthPattern(steerAzDeg)
	angle, level := peakOf(cut)
	fmt.Printf("Steered %+.1f deg: main lobe at %+.2f deg (%.2f dB), %d samples\n",
		steerAzDeg, angle, level, len(cut.AnglesDeg))

	exp.saveJSON("pattern", cut)
	exp.script("pattern", func(m *vlib.Matlab) {
		m.Export("AnglesDeg", cut.AnglesDeg)
		m.Export("GainDb", cut.MagnitudesDb)
	})
}

// runSphere renders the full-sphere pattern.
func runSphere(arr *core.Array, steerAzDeg, steerElDeg float64, exp exporter) {
	sphere := arr.SpherePatternAt(steerAzDeg, steerElDeg)
	rows := len(sphere.Magnitude)
	cols := 0
	if rows > 0 {
		cols = len(sphere.Magnitude[0])
	}
	fmt.Printf("Sphere pattern: %dx%d grid, steered az %+.1f el %+.1f\n",
		rows, cols, steerAzDeg, steerElDeg)

	exp.saveJSON("sphere", sphere)
	exp.script("sphere", func(m *vlib.Matlab) {
		m.ExportStruct("Sphere", sphere)
	})
}

// runField renders the near-field interference map.
func runField(arr *core.Array, steerAzDeg, steerElDeg float64, resolution int, exp exporter) {
	field, err := arr.InterferencePattern(steerAzDeg, steerElDeg, resolution)
	if err != nil {
		panic(err)
	}
	n := field.Resolution
	fmt.Printf("Near field: %dx%d grid, x %.2f..%.2f wl, y %.2f..%.2f wl\n",
		n, n, field.X[0][0], field.X[0][n-1], field.Y[0][0], field.Y[n-1][0])

	exp.saveJSON("field", field)
	exp.script("field", func(m *vlib.Matlab) {
		m.ExportStruct("Field", field)
	})
}

// sweepResult collects one row of dB magnitudes per sweep frame.
type sweepResult struct {
	SteerDeg  vlib.VectorF
	PeakDeg   vlib.VectorF
	AnglesDeg vlib.VectorF
	GainDb    vlib.MatrixF
}

// runSweep steps the steering angle across the span, printing each
// frame's main lobe as it lands.
func runSweep(ctx context.Context, arr *core.Array, p core.SweepParams, exp exporter) {
	var result sweepResult

	engine := core.NewSweepEngine(arr)
	engine.AddListener(func(f core.SweepFrame) {
		angle, level := peakOf(f.Cut)
		fmt.Printf("frame %3d: steer %+7.2f deg -> main lobe %+7.2f deg (%6.2f dB)\n",
			f.Index, f.SteerAzDeg, angle, level)

		result.SteerDeg.AppendAtEnd(f.SteerAzDeg)
		result.PeakDeg.AppendAtEnd(angle)
		if f.Index == 0 {
			result.AnglesDeg = f.Cut.AnglesDeg
		}
		result.GainDb = append(result.GainDb, f.Cut.MagnitudesDb)
	})

	fmt.Printf("Sweeping %+.1f..%+.1f deg in %d frames, tick=%s\n",
		p.StartDeg, p.EndDeg, p.Steps, p.Tick)
	if err := engine.Run(ctx, p); err != nil {
		fmt.Fprintf(os.Stderr, "sweep stopped: %v\n", err)
	}
	fmt.Printf("Sweep complete: %d frames\n", len(result.SteerDeg))

	exp.saveJSON("sweep", result)
	exp.script("sweep", func(m *vlib.Matlab) {
		m.Export("SteerDeg", result.SteerDeg)
		m.Export("PeakDeg", result.PeakDeg)
		m.ExportStruct("GainDb", result.GainDb)
	})
}

// snapshotExport carries snapshot samples as separate I/Q planes so
// the complex data survives JSON.
type snapshotExport struct {
	NumSamples int
	SNRDb      float64
	SourceIDs  []string
	I          vlib.MatrixF
	Q          vlib.MatrixF
}

// runSnapshot synthesizes a received-signal block for the scenario's
// sources.
func runSnapshot(arr *core.Array, sources []core.Source, p core.SnapshotParams, exp exporter) {
	for _, src := range sources {
		fmt.Printf("  source %-20s az %+6.1f deg  power %.2f  %s\n",
			src.ID, src.AzimuthDeg, src.Power, src.Type)
	}

	snap, err := arr.Snapshot(sources, p)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Snapshot: %d elements x %d samples at %.1f dB SNR (seed %d)\n",
		len(snap.Samples), snap.NumSamples, snap.SNRDb, p.Seed)

	result := snapshotExport{
		NumSamples: snap.NumSamples,
		SNRDb:      snap.SNRDb,
		SourceIDs:  snap.SourceIDs,
		I:          vlib.NewMatrixF(len(snap.Samples), snap.NumSamples),
		Q:          vlib.NewMatrixF(len(snap.Samples), snap.NumSamples),
	}
	for e, row := range snap.Samples {
		for t, v := range row {
			result.I[e][t] = real(v)
			result.Q[e][t] = imag(v)
		}
	}

	exp.saveJSON("snapshot", result)
	exp.script("snapshot", func(m *vlib.Matlab) {
		m.ExportStruct("I", result.I)
		m.ExportStruct("Q", result.Q)
	})
}

// runTrack propagates a pass and prints the steering solution for
// every visible point.
func runTrack(p core.TrackParams, exp exporter) {
	track, err := core.PredictPass(p)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Pass from %s, step %s: %d/%d points visible\n",
		p.Start.Format(time.RFC3339), p.Step, track.VisibleCount, len(track.Points))

	var elevations, ranges vlib.VectorF
	for _, pt := range track.Points {
		elevations.AppendAtEnd(pt.ElevationDeg)
		ranges.AppendAtEnd(pt.RangeKm)
		if !pt.Visible {
			continue
		}
		fmt.Printf("  %s  el %5.1f deg  range %8.1f km  steer az %+6.1f el %+6.1f\n",
			pt.Time.Format(time.RFC3339), pt.ElevationDeg, pt.RangeKm, pt.SteerAzDeg, pt.SteerElDeg)
	}

	exp.saveJSON("track", track)
	exp.script("track", func(m *vlib.Matlab) {
		m.Export("ElevationDeg", elevations)
		m.Export("RangeKm", ranges)
	})
}

// peakOf returns the angle and level of the strongest sample in a cut.
func peakOf(cut *core.AzimuthCut) (angleDeg, levelDb float64) {
	idx := floats.MaxIdx(cut.MagnitudesDb)
	return cut.AnglesDeg[idx], cut.MagnitudesDb[idx]
}

// exporter persists results: formatted JSON always, plus a Matlab
// script when -matlab is set. File names are derived from the -out
// base and the mode.
type exporter struct {
	base   string
	matlab bool
}

func (e exporter) saveJSON(kind string, v any) {
	name := e.base + "." + kind + ".json"
	vlib.SaveStructure(v, name, true)
	fmt.Printf("Wrote %s\n", name)
}

func (e exporter) script(kind string, fill func(m *vlib.Matlab)) {
	if !e.matlab {
		return
	}
	m := vlib.NewMatlab(e.base + "_" + kind)
	m.Silent = true
	fill(m)
	m.Close()
	fmt.Printf("Wrote %s_%s.m\n", e.base, kind)
}
