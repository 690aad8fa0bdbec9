// internal/sim/state/state.go
package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/signalforge/arraysim/core"
	"github.com/signalforge/arraysim/internal/logging"
)

// Re-export core sentinel errors so callers can depend on state.* instead of
// core.* directly if they want to.
var (
	// ErrBadConfig indicates array parameters failed validation.
	ErrBadConfig = core.ErrBadConfig
	// ErrDimensionMismatch indicates a weight vector does not match the array.
	ErrDimensionMismatch = core.ErrDimensionMismatch
	// ErrUnknownScenario indicates a requested scenario preset does not exist.
	ErrUnknownScenario = core.ErrUnknownScenario
	// ErrNotConfigured indicates a session has no array to compute against.
	ErrNotConfigured = errors.New("array not configured")
	// ErrNoScenario indicates a session has no loaded scenario preset.
	ErrNoScenario = errors.New("no scenario loaded")
)

// DefaultSession is the session key used when a request carries none.
const DefaultSession = "default"

// Store holds per-session array state. Arrays are immutable once built, so a
// computation always sees exactly the configuration it resolved, even when
// another request replaces the session's array concurrently.
type Store struct {
	// mu guards the session map. Computations run on immutable arrays and do
	// not need to hold it.
	mu sync.RWMutex

	// sessions maps a session key to its current array and loaded scenario.
	sessions map[string]*session

	// catalog is the scenario preset catalog shared by all sessions.
	catalog *core.Catalog

	// log is an optional structured logger for store-level events.
	log logging.Logger

	// metrics is an optional recorder for session count gauges.
	metrics SessionMetricsRecorder

	// compute is an optional recorder for computation timings.
	compute ComputeMetricsRecorder
}

type session struct {
	array    *core.Array
	scenario *core.Scenario
}

// SessionMetricsRecorder receives count updates for configured sessions.
type SessionMetricsRecorder interface {
	SetSessionCounts(sessions, elements int)
}

// ComputeMetricsRecorder receives timings for pattern and snapshot computations.
type ComputeMetricsRecorder interface {
	ObserveRender(pattern string, d time.Duration)
	ObserveSnapshot(d time.Duration)
	IncArrayBuilds()
}

// AllPatterns aggregates the results of a full computation pass: the resolved
// array plus every supported pattern at one steering direction.
type AllPatterns struct {
	Array   *core.Array
	Azimuth *core.AzimuthCut
	Sphere  *core.SpherePattern
	Field   *core.InterferenceMap
}

// StoreOption customises Store construction.
type StoreOption func(*Store)

// WithMetricsRecorder attaches an optional metrics recorder for session counts.
func WithMetricsRecorder(m SessionMetricsRecorder) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithComputeRecorder attaches an optional recorder for computation timings.
func WithComputeRecorder(c ComputeMetricsRecorder) StoreOption {
	return func(s *Store) {
		s.compute = c
	}
}

// NewStore prepares an empty session store backed by the given scenario
// catalog, defaulting to the built-in catalog when nil.
func NewStore(catalog *core.Catalog, log logging.Logger, opts ...StoreOption) *Store {
	if catalog == nil {
		catalog = core.NewCatalog()
	}
	if log == nil {
		log = logging.Noop()
	}
	store := &Store{
		sessions: make(map[string]*session),
		catalog:  catalog,
		log:      log,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	store.updateMetricsLocked()
	return store
}

// Catalog exposes the scenario preset catalog.
func (s *Store) Catalog() *core.Catalog {
	return s.catalog
}

// Configure builds an array from the given parameters and installs it as the
// session's current array. A previously loaded scenario stays attached so its
// sources remain available to snapshots.
func (s *Store) Configure(ctx context.Context, sessionID string, params core.ArrayParams) (*core.Array, error) {
	ctx, reqLog := logging.WithRequestLogger(ctx, s.log)

	arr, err := core.NewArray(params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	sess := s.sessionLocked(sessionID)
	sess.array = arr
	s.updateMetricsLocked()
	s.mu.Unlock()

	if s.compute != nil {
		s.compute.IncArrayBuilds()
	}

	reqLog.Debug(ctx, "array configured",
		logging.String("session", sessionKey(sessionID)),
		logging.Int("num_elements", arr.NumElements()),
		logging.String("array_type", string(arr.Topology())),
		logging.Float64("wavelength_m", arr.Wavelength()),
	)
	return arr, nil
}

// Array returns the session's current array, or ErrNotConfigured when the
// session has none.
func (s *Store) Array(sessionID string) (*core.Array, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionKey(sessionID)]
	if !ok || sess.array == nil {
		return nil, ErrNotConfigured
	}
	return sess.array, nil
}

// AzimuthPattern renders the azimuth cut for the session. When params is
// non-nil the session is reconfigured first, so the result always reflects the
// request's own configuration.
func (s *Store) AzimuthPattern(ctx context.Context, sessionID string, params *core.ArrayParams, steerAzDeg float64) (*core.AzimuthCut, error) {
	arr, err := s.resolve(ctx, sessionID, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cut := arr.AzimuthPattern(steerAzDeg)
	s.observeRender("azimuth", time.Since(start))
	return cut, nil
}

// SpherePattern renders the full-sphere pattern for the session.
func (s *Store) SpherePattern(ctx context.Context, sessionID string, params *core.ArrayParams, steerAzDeg, steerElDeg float64) (*core.SpherePattern, error) {
	arr, err := s.resolve(ctx, sessionID, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sphere := arr.SpherePatternAt(steerAzDeg, steerElDeg)
	s.observeRender("3d", time.Since(start))
	return sphere, nil
}

// InterferencePattern renders the near-field intensity map for the session.
func (s *Store) InterferencePattern(ctx context.Context, sessionID string, params *core.ArrayParams, steerAzDeg, steerElDeg float64, resolution int) (*core.InterferenceMap, error) {
	arr, err := s.resolve(ctx, sessionID, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	field, err := arr.InterferencePattern(steerAzDeg, steerElDeg, resolution)
	if err != nil {
		return nil, err
	}
	s.observeRender("interference", time.Since(start))
	return field, nil
}

// CalculateAll computes geometry plus all three patterns at one steering
// direction, failing on the first sub-computation error.
func (s *Store) CalculateAll(ctx context.Context, sessionID string, params *core.ArrayParams, steerAzDeg, steerElDeg float64) (*AllPatterns, error) {
	arr, err := s.resolve(ctx, sessionID, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cut := arr.AzimuthPattern(steerAzDeg)
	sphere := arr.SpherePatternAt(steerAzDeg, steerElDeg)
	field, err := arr.InterferencePattern(steerAzDeg, steerElDeg, core.DefaultFieldResolution)
	if err != nil {
		return nil, err
	}
	s.observeRender("all", time.Since(start))

	return &AllPatterns{
		Array:   arr,
		Azimuth: cut,
		Sphere:  sphere,
		Field:   field,
	}, nil
}

// LoadScenario looks up a preset by ID, builds its array, and installs both on
// the session. An unknown ID leaves the session's prior state untouched.
func (s *Store) LoadScenario(ctx context.Context, sessionID, scenarioID string) (*core.Scenario, *core.Array, error) {
	ctx, reqLog := logging.WithRequestLogger(ctx, s.log)

	sc, err := s.catalog.Get(scenarioID)
	if err != nil {
		return nil, nil, err
	}
	arr, err := core.NewArray(sc.ArrayParams())
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	sess := s.sessionLocked(sessionID)
	sess.array = arr
	sess.scenario = sc
	s.updateMetricsLocked()
	s.mu.Unlock()

	if s.compute != nil {
		s.compute.IncArrayBuilds()
	}

	reqLog.Info(ctx, "scenario loaded",
		logging.String("session", sessionKey(sessionID)),
		logging.String("scenario", sc.ID),
		logging.Int("num_elements", arr.NumElements()),
		logging.Float64("frequency_hz", sc.FrequencyHz),
	)
	return sc, arr, nil
}

// Scenario returns the session's loaded scenario preset, or ErrNoScenario when
// none has been loaded.
func (s *Store) Scenario(sessionID string) (*core.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionKey(sessionID)]
	if !ok || sess.scenario == nil {
		return nil, ErrNoScenario
	}
	return sess.scenario, nil
}

// Snapshot synthesizes received baseband samples for the session's array using
// the loaded scenario's sources.
func (s *Store) Snapshot(ctx context.Context, sessionID string, params core.SnapshotParams) (*core.Snapshot, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionKey(sessionID)]
	var arr *core.Array
	var sc *core.Scenario
	if ok {
		arr = sess.array
		sc = sess.scenario
	}
	s.mu.RUnlock()

	if arr == nil {
		return nil, ErrNotConfigured
	}
	if sc == nil {
		return nil, ErrNoScenario
	}

	start := time.Now()
	snap, err := arr.Snapshot(sc.Sources, params)
	if err != nil {
		return nil, err
	}
	if s.compute != nil {
		s.compute.ObserveSnapshot(time.Since(start))
	}
	return snap, nil
}

// resolve returns the array a computation should run against: the freshly
// configured one when params is present, otherwise the session's current array.
func (s *Store) resolve(ctx context.Context, sessionID string, params *core.ArrayParams) (*core.Array, error) {
	if params != nil {
		return s.Configure(ctx, sessionID, *params)
	}
	return s.Array(sessionID)
}

func (s *Store) observeRender(pattern string, d time.Duration) {
	if s.compute == nil {
		return
	}
	s.compute.ObserveRender(pattern, d)
}

// sessionLocked fetches or creates the session entry. Caller must hold s.mu.
func (s *Store) sessionLocked(id string) *session {
	key := sessionKey(id)
	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{}
		s.sessions[key] = sess
	}
	return sess
}

// updateMetricsLocked pushes current session counts into the metrics recorder.
// Caller must hold s.mu when invoking this helper.
func (s *Store) updateMetricsLocked() {
	if s == nil || s.metrics == nil {
		return
	}
	sessions := 0
	elements := 0
	for _, sess := range s.sessions {
		if sess == nil || sess.array == nil {
			continue
		}
		sessions++
		elements += sess.array.NumElements()
	}
	s.metrics.SetSessionCounts(sessions, elements)
}

func sessionKey(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSession
	}
	return id
}
