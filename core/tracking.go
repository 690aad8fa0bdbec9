package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// TrackParams describes a spacecraft pass over a ground-sited array.
// The array is assumed horizontal at the site: boresight at zenith,
// element axis pointing east.
type TrackParams struct {
	TLELine1   string
	TLELine2   string
	SiteLatDeg float64
	SiteLonDeg float64
	SiteAltKm  float64
	Start      time.Time
	Step       time.Duration
	Steps      int
}

// TrackPoint is one steering solution along a pass. SteerAzDeg and
// SteerElDeg are the beam angles to feed the pattern renderers, both
// folded into [-90, 90]. Visible means the array can steer at the
// target: nothing blocks the path and the target sits above the
// array's horizon plane. ElevationDeg is the target's height above
// that plane; invisible points carry zero steering.
type TrackPoint struct {
	Time         time.Time
	Visible      bool
	SteerAzDeg   float64
	SteerElDeg   float64
	ElevationDeg float64
	RangeKm      float64
}

// PassTrack is a propagated pass: one point per time step.
type PassTrack struct {
	Points       []TrackPoint
	VisibleCount int
}

// PredictPass propagates the TLE with SGP4 and returns the steering
// solution for each time step as seen from the site.
func PredictPass(p TrackParams) (*PassTrack, error) {
	if err := checkTLELines(p.TLELine1, p.TLELine2); err != nil {
		return nil, err
	}
	if p.Steps < 1 {
		return nil, fmt.Errorf("%w: steps must be >= 1, got %d", ErrBadConfig, p.Steps)
	}
	if p.Step <= 0 {
		return nil, fmt.Errorf("%w: step duration must be > 0, got %s", ErrBadConfig, p.Step)
	}
	if p.SiteLatDeg < -90 || p.SiteLatDeg > 90 {
		return nil, fmt.Errorf("%w: site latitude out of range: %g", ErrBadConfig, p.SiteLatDeg)
	}

	sat := satellite.TLEToSat(p.TLELine1, p.TLELine2, satellite.GravityWGS72)
	site := GeodeticToECEF(p.SiteLatDeg, p.SiteLonDeg, p.SiteAltKm)

	track := &PassTrack{Points: make([]TrackPoint, 0, p.Steps)}
	for i := 0; i < p.Steps; i++ {
		t := p.Start.Add(time.Duration(i) * p.Step).UTC()
		year, month, day := t.Date()
		hour, min, sec := t.Clock()

		posECI, _ := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
		jd := satellite.JDay(year, int(month), day, hour, min, sec)
		gmst := satellite.ThetaG_JD(jd)
		posECEF := satellite.ECIToECEF(posECI, gmst)

		target := Vec3{X: posECEF.X, Y: posECEF.Y, Z: posECEF.Z}
		elev := ElevationDegrees(site, target)

		pt := TrackPoint{
			Time:         t,
			Visible:      elev > 0 && hasLineOfSight(site, target),
			ElevationDeg: elev,
			RangeKm:      site.DistanceTo(target),
		}
		if pt.Visible {
			pt.SteerAzDeg, pt.SteerElDeg = steerAnglesENU(site, target)
			track.VisibleCount++
		}
		track.Points = append(track.Points, pt)
	}

	return track, nil
}

// steerAnglesENU converts the site->target direction into the array's
// steering convention: the direction unit vector in the local frame
// (x=east, y=north, z=up) equals (sin az cos el, sin az sin el, cos az).
// Both returned angles are folded into [-90, 90] using the identity
// (az, el) == (-az, el-180).
func steerAnglesENU(site, target Vec3) (steerAzDeg, steerElDeg float64) {
	e, n, u := enuDirection(site, target)

	if u > 1 {
		u = 1
	} else if u < -1 {
		u = -1
	}
	az := math.Acos(u) * 180 / math.Pi
	el := math.Atan2(n, e) * 180 / math.Pi

	if el > 90 {
		el -= 180
		az = -az
	} else if el < -90 {
		el += 180
		az = -az
	}
	// Rounding in the direction components can leave az a hair past the
	// fold boundary; pin it at the endfire limit.
	if az > 90 {
		az = 90
	} else if az < -90 {
		az = -90
	}
	return az, el
}

// checkTLELines rejects obviously malformed element sets before they
// reach the SGP4 initialiser, which assumes well-formed input.
func checkTLELines(line1, line2 string) error {
	l1 := strings.TrimRight(line1, "\r\n ")
	l2 := strings.TrimRight(line2, "\r\n ")
	if len(l1) < 69 || !strings.HasPrefix(l1, "1 ") {
		return fmt.Errorf("%w: malformed TLE line 1", ErrBadConfig)
	}
	if len(l2) < 69 || !strings.HasPrefix(l2, "2 ") {
		return fmt.Errorf("%w: malformed TLE line 2", ErrBadConfig)
	}
	return nil
}
