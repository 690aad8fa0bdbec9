package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario preset")
	ErrScenarioExists  = errors.New("scenario preset already exists")
	ErrBadScenario     = errors.New("invalid scenario preset")
)

// SignalType classifies a scenario source.
type SignalType string

const (
	SignalDesired      SignalType = "desired"
	SignalInterference SignalType = "interference"
	SignalNoise        SignalType = "noise"
)

// Source is an emitter in a scenario's environment: a direction, a
// power and a role. FrequencyHz of zero means the scenario carrier.
type Source struct {
	ID           string     `json:"id"`
	AzimuthDeg   float64    `json:"azimuth"`
	ElevationDeg float64    `json:"elevation"`
	Power        float64    `json:"power"`
	Type         SignalType `json:"type"`
	FrequencyHz  float64    `json:"frequency,omitempty"`
}

// Scenario is a named array setup with the signal environment around
// it. Entries in the catalog are read-only.
type Scenario struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	NumElements int      `json:"num_elements"`
	Spacing     float64  `json:"element_spacing"`
	FrequencyHz float64  `json:"frequency"`
	Topology    Topology `json:"array_type"`
	Sources     []Source `json:"sources,omitempty"`
}

// presetCurvature is the arc pitch applied whenever a curved scenario
// is instantiated; scenarios themselves carry no curvature knob.
const presetCurvature = 0.2

// ArrayParams returns the array description this scenario configures.
func (s *Scenario) ArrayParams() ArrayParams {
	curvature := 0.0
	if s.Topology == TopologyCurved {
		curvature = presetCurvature
	}
	return ArrayParams{
		NumElements: s.NumElements,
		Spacing:     s.Spacing,
		FrequencyHz: s.FrequencyHz,
		Topology:    s.Topology,
		Curvature:   curvature,
	}
}

// Catalog holds the scenario presets, the fixed built-ins plus any
// registered at startup from configuration. Lookups are
// case-insensitive on the scenario ID.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*Scenario
	order   []string
}

// NewCatalog returns a catalog seeded with the built-in scenarios.
func NewCatalog() *Catalog {
	c := &Catalog{entries: make(map[string]*Scenario)}
	for _, s := range builtinScenarios() {
		c.entries[strings.ToLower(s.ID)] = s
		c.order = append(c.order, strings.ToLower(s.ID))
	}
	return c
}

// Register adds a scenario preset. Built-ins can never be replaced,
// and IDs must be unique.
func (c *Catalog) Register(s *Scenario) error {
	if s == nil || strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: empty scenario ID", ErrBadScenario)
	}
	if s.NumElements < 1 || s.Spacing <= 0 || s.FrequencyHz <= 0 {
		return fmt.Errorf("%w: %q has non-positive array parameters", ErrBadScenario, s.ID)
	}
	if s.Topology != TopologyLinear && s.Topology != TopologyCurved {
		return fmt.Errorf("%w: %q has unknown array type %q", ErrBadScenario, s.ID, s.Topology)
	}

	key := strings.ToLower(strings.TrimSpace(s.ID))

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return fmt.Errorf("%w: %q", ErrScenarioExists, s.ID)
	}
	c.entries[key] = s
	c.order = append(c.order, key)
	return nil
}

// Get returns the scenario with the given ID (case-insensitive).
func (c *Catalog) Get(id string) (*Scenario, error) {
	key := strings.ToLower(strings.TrimSpace(id))

	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	return s, nil
}

// List returns all scenarios in registration order, built-ins first.
func (c *Catalog) List() []*Scenario {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Scenario, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.entries[key])
	}
	return out
}

// builtinScenarios returns the fixed demo setups: a 5G mmWave base
// station, a diagnostic ultrasound probe, and a focused-ultrasound
// therapy array.
func builtinScenarios() []*Scenario {
	return []*Scenario{
		{
			ID:          "5g",
			Name:        "5G Communications",
			Description: "5G mmWave base station with 64-element array at 28 GHz, beamforming to multiple users",
			NumElements: 64,
			Spacing:     0.5,
			FrequencyHz: 28e9,
			Topology:    TopologyLinear,
			Sources: []Source{
				{ID: "user_1", AzimuthDeg: 15, Power: 1.0, Type: SignalDesired},
				{ID: "user_2", AzimuthDeg: -25, Power: 0.8, Type: SignalDesired},
				{ID: "interference_1", AzimuthDeg: 60, Power: 0.5, Type: SignalInterference},
			},
		},
		{
			ID:          "ultrasound",
			Name:        "Ultrasound Imaging",
			Description: "Medical ultrasound with 128-element linear array at 5 MHz for diagnostic imaging",
			NumElements: 128,
			Spacing:     0.5,
			FrequencyHz: 5e6,
			Topology:    TopologyLinear,
			Sources: []Source{
				{ID: "target_tissue", AzimuthDeg: 0, Power: 1.0, Type: SignalDesired},
				{ID: "reflection_1", AzimuthDeg: 10, Power: 0.3, Type: SignalInterference},
				{ID: "reflection_2", AzimuthDeg: -10, Power: 0.25, Type: SignalInterference},
			},
		},
		{
			ID:          "tumor_ablation",
			Name:        "Tumor Ablation",
			Description: "Focused ultrasound surgery with 256-element hemispherical array at 1 MHz for non-invasive tumor ablation",
			NumElements: 256,
			Spacing:     0.5,
			FrequencyHz: 1e6,
			Topology:    TopologyCurved,
			Sources: []Source{
				{ID: "tumor_target", AzimuthDeg: 0, ElevationDeg: 0, Power: 1.0, Type: SignalDesired},
				{ID: "critical_structure", AzimuthDeg: -15, Power: 0.0, Type: SignalInterference},
			},
		},
	}
}
