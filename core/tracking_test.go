package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

// ISS sample TLE, same element set the propagation examples use.
const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestPredictPass_StepInvariants(t *testing.T) {
	start := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	track, err := PredictPass(TrackParams{
		TLELine1:   issTLE1,
		TLELine2:   issTLE2,
		SiteLatDeg: 40,
		SiteLonDeg: -75,
		Start:      start,
		Step:       time.Minute,
		Steps:      180,
	})
	if err != nil {
		t.Fatalf("PredictPass: %v", err)
	}
	if len(track.Points) != 180 {
		t.Fatalf("got %d points, want 180", len(track.Points))
	}

	visible := 0
	for i, pt := range track.Points {
		if want := start.Add(time.Duration(i) * time.Minute); !pt.Time.Equal(want) {
			t.Fatalf("point %d time = %v, want %v", i, pt.Time, want)
		}
		// LEO ranges: above the surface, below a few Earth radii.
		if pt.RangeKm < 200 || pt.RangeKm > 4*EarthRadiusKm {
			t.Fatalf("point %d range = %v km, implausible for LEO", i, pt.RangeKm)
		}
		// Visibility must agree with the horizon, away from the boundary.
		if pt.ElevationDeg > 0.5 && !pt.Visible {
			t.Fatalf("point %d at elevation %v marked invisible", i, pt.ElevationDeg)
		}
		if pt.ElevationDeg < -0.5 && pt.Visible {
			t.Fatalf("point %d at elevation %v marked visible", i, pt.ElevationDeg)
		}
		if pt.Visible {
			visible++
			if pt.SteerAzDeg < -90 || pt.SteerAzDeg > 90 || pt.SteerElDeg < -90 || pt.SteerElDeg > 90 {
				t.Fatalf("point %d steering (%v, %v) outside [-90, 90]", i, pt.SteerAzDeg, pt.SteerElDeg)
			}
			// Zenith angle and horizon elevation describe the same
			// geometry from opposite references.
			if !near(math.Abs(pt.SteerAzDeg), 90-pt.ElevationDeg, 1e-6) {
				t.Fatalf("point %d |steer az| = %v vs 90-elevation = %v",
					i, math.Abs(pt.SteerAzDeg), 90-pt.ElevationDeg)
			}
		} else if pt.SteerAzDeg != 0 || pt.SteerElDeg != 0 {
			t.Fatalf("point %d below horizon should carry zero steering, got (%v, %v)",
				i, pt.SteerAzDeg, pt.SteerElDeg)
		}
	}
	if track.VisibleCount != visible {
		t.Fatalf("VisibleCount = %d, want %d", track.VisibleCount, visible)
	}
}

func TestPredictPass_PositionsChangeOverTime(t *testing.T) {
	// We don't assert exact orbital values (those belong to go-satellite);
	// distinct times just have to give distinct geometry.
	start := time.Date(2021, 10, 2, 12, 0, 0, 0, time.UTC)
	track, err := PredictPass(TrackParams{
		TLELine1:   issTLE1,
		TLELine2:   issTLE2,
		SiteLatDeg: 0,
		SiteLonDeg: 0,
		Start:      start,
		Step:       5 * time.Minute,
		Steps:      3,
	})
	if err != nil {
		t.Fatalf("PredictPass: %v", err)
	}
	if track.Points[0].RangeKm == track.Points[1].RangeKm &&
		track.Points[1].RangeKm == track.Points[2].RangeKm {
		t.Fatalf("range did not change across steps: %v", track.Points[0].RangeKm)
	}
}

func TestPredictPass_RejectsBadInputs(t *testing.T) {
	start := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	good := TrackParams{
		TLELine1: issTLE1, TLELine2: issTLE2,
		SiteLatDeg: 10, Start: start, Step: time.Minute, Steps: 5,
	}

	cases := []struct {
		name   string
		mutate func(*TrackParams)
	}{
		{"empty line 1", func(p *TrackParams) { p.TLELine1 = "" }},
		{"truncated line 2", func(p *TrackParams) { p.TLELine2 = "2 25544" }},
		{"swapped lines", func(p *TrackParams) { p.TLELine1, p.TLELine2 = p.TLELine2, p.TLELine1 }},
		{"zero steps", func(p *TrackParams) { p.Steps = 0 }},
		{"zero step duration", func(p *TrackParams) { p.Step = 0 }},
		{"bad latitude", func(p *TrackParams) { p.SiteLatDeg = 91 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := good
			tc.mutate(&p)
			if _, err := PredictPass(p); !errors.Is(err, ErrBadConfig) {
				t.Fatalf("err = %v, want ErrBadConfig", err)
			}
		})
	}
}

func TestSteerAnglesENU_ReconstructsDirection(t *testing.T) {
	site := GeodeticToECEF(35, 20, 0)

	targets := []Vec3{
		GeodeticToECEF(36, 20, 400),
		GeodeticToECEF(35, 21, 400),
		GeodeticToECEF(34, 19, 400),
		GeodeticToECEF(35.1, 19.2, 800),
	}
	for i, target := range targets {
		az, el := steerAnglesENU(site, target)
		if az < -90 || az > 90 || el < -90 || el > 90 {
			t.Fatalf("target %d: angles (%v, %v) outside [-90, 90]", i, az, el)
		}

		// Feeding the angles back through the steering convention must
		// reproduce the east/north/up direction.
		azRad, elRad := az*math.Pi/180, el*math.Pi/180
		wantE, wantN, wantU := enuDirection(site, target)
		if !near(math.Sin(azRad)*math.Cos(elRad), wantE, 1e-9) ||
			!near(math.Sin(azRad)*math.Sin(elRad), wantN, 1e-9) ||
			!near(math.Cos(azRad), wantU, 1e-9) {
			t.Fatalf("target %d: angles (%v, %v) do not reconstruct (%v, %v, %v)",
				i, az, el, wantE, wantN, wantU)
		}
	}
}
