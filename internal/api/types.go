package api

import (
	"encoding/json"
	"time"

	"github.com/wiless/vlib"

	"github.com/signalforge/arraysim/core"
)

// ArrayConfigRequest carries an array configuration on the wire. Omitted
// fields take the same defaults the service has always offered.
type ArrayConfigRequest struct {
	NumElements    int     `json:"num_elements"`
	ElementSpacing float64 `json:"element_spacing"`
	Frequency      float64 `json:"frequency"`
	ArrayType      string  `json:"array_type"`
	Curvature      float64 `json:"curvature"`
}

func defaultArrayConfig() ArrayConfigRequest {
	return ArrayConfigRequest{
		NumElements:    8,
		ElementSpacing: 0.5,
		Frequency:      1e9,
		ArrayType:      string(core.TopologyLinear),
		Curvature:      0,
	}
}

// UnmarshalJSON decodes over the default configuration so partial requests
// keep the documented defaults.
func (r *ArrayConfigRequest) UnmarshalJSON(data []byte) error {
	type plain ArrayConfigRequest
	cfg := plain(defaultArrayConfig())
	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}
	*r = ArrayConfigRequest(cfg)
	return nil
}

func (r *ArrayConfigRequest) arrayParams() core.ArrayParams {
	return core.ArrayParams{
		NumElements: r.NumElements,
		Spacing:     r.ElementSpacing,
		FrequencyHz: r.Frequency,
		Topology:    core.Topology(r.ArrayType),
		Curvature:   r.Curvature,
	}
}

// BeamSteeringRequest asks for a pattern at a steering direction. When
// ArrayConfig is present the session is reconfigured before computing.
type BeamSteeringRequest struct {
	ArrayConfig    *ArrayConfigRequest `json:"array_config,omitempty"`
	AzimuthAngle   float64             `json:"azimuth_angle"`
	ElevationAngle float64             `json:"elevation_angle"`
}

// InterferenceRequest asks for the near-field map. Resolution zero selects
// the default grid size.
type InterferenceRequest struct {
	ArrayConfig    *ArrayConfigRequest `json:"array_config,omitempty"`
	AzimuthAngle   float64             `json:"azimuth_angle"`
	ElevationAngle float64             `json:"elevation_angle"`
	Resolution     int                 `json:"resolution"`
}

// SnapshotRequest asks for synthetic received samples from the session's
// array and loaded scenario.
type SnapshotRequest struct {
	NumSamples int     `json:"num_samples"`
	SNRDb      float64 `json:"snr_db"`
	Seed       int64   `json:"seed"`
}

func defaultSnapshotRequest() SnapshotRequest {
	return SnapshotRequest{NumSamples: 100, SNRDb: 20}
}

// UnmarshalJSON decodes over the defaults, matching ArrayConfigRequest.
func (r *SnapshotRequest) UnmarshalJSON(data []byte) error {
	type plain SnapshotRequest
	req := plain(defaultSnapshotRequest())
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	*r = SnapshotRequest(req)
	return nil
}

// TrackRequest asks for a satellite pass as steering directions.
type TrackRequest struct {
	TLELine1    string    `json:"tle_line1"`
	TLELine2    string    `json:"tle_line2"`
	SiteLat     float64   `json:"site_lat"`
	SiteLon     float64   `json:"site_lon"`
	SiteAltKm   float64   `json:"site_alt_km"`
	StartTime   time.Time `json:"start_time"`
	StepSeconds float64   `json:"step_seconds"`
	Steps       int       `json:"steps"`
}

func (r *TrackRequest) trackParams() core.TrackParams {
	return core.TrackParams{
		TLELine1:   r.TLELine1,
		TLELine2:   r.TLELine2,
		SiteLatDeg: r.SiteLat,
		SiteLonDeg: r.SiteLon,
		SiteAltKm:  r.SiteAltKm,
		Start:      r.StartTime,
		Step:       time.Duration(r.StepSeconds * float64(time.Second)),
		Steps:      r.Steps,
	}
}

// ElementPosition is one antenna element's location in metres.
type ElementPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CreateArrayResponse echoes the installed configuration plus derived values.
type CreateArrayResponse struct {
	NumElements    int     `json:"num_elements"`
	ElementSpacing float64 `json:"element_spacing"`
	Frequency      float64 `json:"frequency"`
	ArrayType      string  `json:"array_type"`
	Curvature      float64 `json:"curvature"`
	Wavelength     float64 `json:"wavelength"`
	Status         string  `json:"status"`
}

// ArrayGeometryResponse lists element positions for visualization.
type ArrayGeometryResponse struct {
	Elements    []ElementPosition `json:"elements"`
	NumElements int               `json:"num_elements"`
	ArrayType   string            `json:"array_type"`
}

// AzimuthPatternResponse is the azimuth cut in dB.
type AzimuthPatternResponse struct {
	Angles        []float64 `json:"angles"`
	Magnitudes    []float64 `json:"magnitudes"`
	SteeringAngle float64   `json:"steering_angle"`
	PatternType   string    `json:"pattern_type"`
}

// Pattern3DResponse is the full-sphere pattern over meshed angle grids.
type Pattern3DResponse struct {
	Theta             [][]float64 `json:"theta"`
	Phi               [][]float64 `json:"phi"`
	Magnitude         [][]float64 `json:"magnitude"`
	SteeringAzimuth   float64     `json:"steering_azimuth"`
	SteeringElevation float64     `json:"steering_elevation"`
	PatternType       string      `json:"pattern_type"`
}

// InterferenceResponse is the near-field intensity map over meshed grids in
// wavelength units.
type InterferenceResponse struct {
	XGrid             [][]float64 `json:"x_grid"`
	YGrid             [][]float64 `json:"y_grid"`
	Magnitude         [][]float64 `json:"magnitude"`
	SteeringAzimuth   float64     `json:"steering_azimuth"`
	SteeringElevation float64     `json:"steering_elevation"`
	PatternType       string      `json:"pattern_type"`
	Resolution        int         `json:"resolution"`
}

// CalculateAllResponse aggregates every visualization payload.
type CalculateAllResponse struct {
	ArrayGeometry       ArrayGeometryResponse  `json:"array_geometry"`
	AzimuthPattern      AzimuthPatternResponse `json:"azimuth_pattern"`
	Pattern3D           Pattern3DResponse      `json:"pattern_3d"`
	InterferencePattern InterferenceResponse   `json:"interference_pattern"`
}

// TemplateSummary is one catalog entry in the templates listing.
type TemplateSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TemplatesResponse lists the available scenario presets.
type TemplatesResponse struct {
	Templates []TemplateSummary `json:"templates"`
}

// ScenarioResponse reports a loaded scenario preset.
type ScenarioResponse struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	NumElements int     `json:"num_elements"`
	Frequency   float64 `json:"frequency"`
	ArrayType   string  `json:"array_type"`
	Status      string  `json:"status"`
}

// ScenarioSourcesResponse exposes the loaded scenario's signal environment.
type ScenarioSourcesResponse struct {
	Scenario string        `json:"scenario"`
	Sources  []core.Source `json:"sources"`
}

// SnapshotResponse carries per-element received samples split into I/Q rails.
type SnapshotResponse struct {
	NumSamples int         `json:"num_samples"`
	SNRDb      float64     `json:"snr_db"`
	SourceIDs  []string    `json:"source_ids"`
	SamplesI   [][]float64 `json:"samples_i"`
	SamplesQ   [][]float64 `json:"samples_q"`
}

// TrackPointResponse is one propagation step of a tracked pass.
type TrackPointResponse struct {
	Time              time.Time `json:"time"`
	Visible           bool      `json:"visible"`
	SteeringAzimuth   float64   `json:"steering_azimuth"`
	SteeringElevation float64   `json:"steering_elevation"`
	Elevation         float64   `json:"elevation"`
	RangeKm           float64   `json:"range_km"`
}

// TrackResponse is a full tracked pass.
type TrackResponse struct {
	Points       []TrackPointResponse `json:"points"`
	VisibleCount int                  `json:"visible_count"`
}

// ---- core -> wire mapping ----

func newCreateArrayResponse(arr *core.Array) CreateArrayResponse {
	p := arr.Params()
	return CreateArrayResponse{
		NumElements:    p.NumElements,
		ElementSpacing: p.Spacing,
		Frequency:      p.FrequencyHz,
		ArrayType:      string(p.Topology),
		Curvature:      p.Curvature,
		Wavelength:     arr.Wavelength(),
		Status:         "Array created successfully",
	}
}

func newArrayGeometryResponse(arr *core.Array) ArrayGeometryResponse {
	positions := arr.Positions()
	elements := make([]ElementPosition, len(positions))
	for i, pos := range positions {
		elements[i] = ElementPosition{X: pos.X, Y: pos.Y, Z: pos.Z}
	}
	return ArrayGeometryResponse{
		Elements:    elements,
		NumElements: arr.NumElements(),
		ArrayType:   string(arr.Topology()),
	}
}

func newAzimuthPatternResponse(cut *core.AzimuthCut) AzimuthPatternResponse {
	return AzimuthPatternResponse{
		Angles:        cut.AnglesDeg,
		Magnitudes:    cut.MagnitudesDb,
		SteeringAngle: cut.SteerAzDeg,
		PatternType:   "azimuth",
	}
}

func newPattern3DResponse(sphere *core.SpherePattern) Pattern3DResponse {
	return Pattern3DResponse{
		Theta:             matrixRows(sphere.AzimuthDeg),
		Phi:               matrixRows(sphere.ElevationDeg),
		Magnitude:         matrixRows(sphere.Magnitude),
		SteeringAzimuth:   sphere.SteerAzDeg,
		SteeringElevation: sphere.SteerElDeg,
		PatternType:       "3d",
	}
}

func newInterferenceResponse(field *core.InterferenceMap) InterferenceResponse {
	return InterferenceResponse{
		XGrid:             matrixRows(field.X),
		YGrid:             matrixRows(field.Y),
		Magnitude:         matrixRows(field.Intensity),
		SteeringAzimuth:   field.SteerAzDeg,
		SteeringElevation: field.SteerElDeg,
		PatternType:       "interference",
		Resolution:        field.Resolution,
	}
}

func newSnapshotResponse(snap *core.Snapshot) SnapshotResponse {
	samplesI := make([][]float64, len(snap.Samples))
	samplesQ := make([][]float64, len(snap.Samples))
	for e, row := range snap.Samples {
		samplesI[e] = make([]float64, len(row))
		samplesQ[e] = make([]float64, len(row))
		for j, c := range row {
			samplesI[e][j] = real(c)
			samplesQ[e][j] = imag(c)
		}
	}
	return SnapshotResponse{
		NumSamples: snap.NumSamples,
		SNRDb:      snap.SNRDb,
		SourceIDs:  snap.SourceIDs,
		SamplesI:   samplesI,
		SamplesQ:   samplesQ,
	}
}

func newTrackResponse(track *core.PassTrack) TrackResponse {
	points := make([]TrackPointResponse, len(track.Points))
	for i, pt := range track.Points {
		points[i] = TrackPointResponse{
			Time:              pt.Time,
			Visible:           pt.Visible,
			SteeringAzimuth:   pt.SteerAzDeg,
			SteeringElevation: pt.SteerElDeg,
			Elevation:         pt.ElevationDeg,
			RangeKm:           pt.RangeKm,
		}
	}
	return TrackResponse{Points: points, VisibleCount: track.VisibleCount}
}

// matrixRows exposes a matrix's rows as plain slices for JSON encoding.
func matrixRows(m vlib.MatrixF) [][]float64 {
	rows := make([][]float64, len(m))
	for i, row := range m {
		rows[i] = []float64(row)
	}
	return rows
}
