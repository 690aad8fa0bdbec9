package api

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/signalforge/arraysim/core"
)

var (
	ErrInvalidConfig   = errors.New("invalid array configuration")
	ErrInvalidSteering = errors.New("invalid steering angle")
	ErrInvalidRequest  = errors.New("invalid request")
)

// API-layer boundary constraints. The core accepts anything physically
// meaningful; the HTTP surface keeps inputs inside the documented ranges.
const (
	minElements = 2
	maxElements = 512

	maxSpacingWl = 2.0

	minSteerDeg = -90.0
	maxSteerDeg = 90.0

	minResolution = 10
	maxResolution = 500

	maxSnapshotSamples = 10000

	maxTrackSteps = 10000
)

// validateArrayConfig enforces the request boundary constraints on an array
// configuration.
func validateArrayConfig(cfg *ArrayConfigRequest) error {
	if cfg == nil {
		return fmt.Errorf("%w: array configuration is required", ErrInvalidConfig)
	}
	if cfg.NumElements < minElements || cfg.NumElements > maxElements {
		return fmt.Errorf("%w: num_elements %d outside [%d, %d]", ErrInvalidConfig, cfg.NumElements, minElements, maxElements)
	}
	if cfg.ElementSpacing <= 0 || cfg.ElementSpacing > maxSpacingWl {
		return fmt.Errorf("%w: element_spacing %g outside (0, %g]", ErrInvalidConfig, cfg.ElementSpacing, maxSpacingWl)
	}
	if cfg.Frequency <= 0 {
		return fmt.Errorf("%w: frequency must be positive, got %g", ErrInvalidConfig, cfg.Frequency)
	}
	if cfg.Curvature < 0 || cfg.Curvature > 1 {
		return fmt.Errorf("%w: curvature %g outside [0, 1]", ErrInvalidConfig, cfg.Curvature)
	}
	switch core.Topology(cfg.ArrayType) {
	case core.TopologyLinear, core.TopologyCurved:
	default:
		return fmt.Errorf("%w: array_type must be linear or curved, got %q", ErrInvalidConfig, cfg.ArrayType)
	}
	return nil
}

// validateSteering bounds a steering angle to the array's steerable window.
func validateSteering(name string, angleDeg float64) error {
	if math.IsNaN(angleDeg) || angleDeg < minSteerDeg || angleDeg > maxSteerDeg {
		return fmt.Errorf("%w: %s %g outside [%g, %g]", ErrInvalidSteering, name, angleDeg, minSteerDeg, maxSteerDeg)
	}
	return nil
}

// validateResolution accepts zero (default) or a value inside the documented
// grid bounds.
func validateResolution(resolution int) error {
	if resolution == 0 {
		return nil
	}
	if resolution < minResolution || resolution > maxResolution {
		return fmt.Errorf("%w: resolution %d outside [%d, %d]", ErrInvalidRequest, resolution, minResolution, maxResolution)
	}
	return nil
}

func validateSteeringRequest(req *BeamSteeringRequest) error {
	if req.ArrayConfig != nil {
		if err := validateArrayConfig(req.ArrayConfig); err != nil {
			return err
		}
	}
	if err := validateSteering("azimuth_angle", req.AzimuthAngle); err != nil {
		return err
	}
	return validateSteering("elevation_angle", req.ElevationAngle)
}

func validateInterferenceRequest(req *InterferenceRequest) error {
	if req.ArrayConfig != nil {
		if err := validateArrayConfig(req.ArrayConfig); err != nil {
			return err
		}
	}
	if err := validateSteering("azimuth_angle", req.AzimuthAngle); err != nil {
		return err
	}
	if err := validateSteering("elevation_angle", req.ElevationAngle); err != nil {
		return err
	}
	return validateResolution(req.Resolution)
}

func validateSnapshotRequest(req *SnapshotRequest) error {
	if req.NumSamples < 1 || req.NumSamples > maxSnapshotSamples {
		return fmt.Errorf("%w: num_samples %d outside [1, %d]", ErrInvalidRequest, req.NumSamples, maxSnapshotSamples)
	}
	if math.IsNaN(req.SNRDb) {
		return fmt.Errorf("%w: snr_db is not a number", ErrInvalidRequest)
	}
	return nil
}

func validateTrackRequest(req *TrackRequest) error {
	if strings.TrimSpace(req.TLELine1) == "" || strings.TrimSpace(req.TLELine2) == "" {
		return fmt.Errorf("%w: tle_line1 and tle_line2 are required", ErrInvalidRequest)
	}
	if req.SiteLat < -90 || req.SiteLat > 90 {
		return fmt.Errorf("%w: site_lat %g outside [-90, 90]", ErrInvalidRequest, req.SiteLat)
	}
	if req.SiteLon < -180 || req.SiteLon > 180 {
		return fmt.Errorf("%w: site_lon %g outside [-180, 180]", ErrInvalidRequest, req.SiteLon)
	}
	if req.SiteAltKm < 0 {
		return fmt.Errorf("%w: site_alt_km cannot be negative", ErrInvalidRequest)
	}
	if req.StartTime.IsZero() {
		return fmt.Errorf("%w: start_time is required", ErrInvalidRequest)
	}
	if req.StepSeconds <= 0 {
		return fmt.Errorf("%w: step_seconds must be positive", ErrInvalidRequest)
	}
	if req.Steps < 1 || req.Steps > maxTrackSteps {
		return fmt.Errorf("%w: steps %d outside [1, %d]", ErrInvalidRequest, req.Steps, maxTrackSteps)
	}
	return nil
}
