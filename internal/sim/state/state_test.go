package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/signalforge/arraysim/core"
)

func newStoreForTest(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	return NewStore(core.NewCatalog(), nil, opts...)
}

func linearParams(numElements int) core.ArrayParams {
	return core.ArrayParams{
		NumElements: numElements,
		Spacing:     0.5,
		FrequencyHz: 1e9,
		Topology:    core.TopologyLinear,
	}
}

func TestConfigureInstallsSessionArray(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	arr, err := store.Configure(ctx, "alpha", linearParams(8))
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if arr.NumElements() != 8 {
		t.Fatalf("NumElements = %d, want 8", arr.NumElements())
	}

	got, err := store.Array("alpha")
	if err != nil {
		t.Fatalf("Array: %v", err)
	}
	if got != arr {
		t.Fatalf("Array returned a different instance than Configure")
	}
}

func TestArrayNotConfigured(t *testing.T) {
	store := newStoreForTest(t)

	if _, err := store.Array("alpha"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Array on empty store: err = %v, want ErrNotConfigured", err)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	if _, err := store.Configure(ctx, "alpha", linearParams(8)); err != nil {
		t.Fatalf("Configure alpha: %v", err)
	}
	if _, err := store.Configure(ctx, "beta", linearParams(16)); err != nil {
		t.Fatalf("Configure beta: %v", err)
	}

	alpha, err := store.Array("alpha")
	if err != nil {
		t.Fatalf("Array alpha: %v", err)
	}
	beta, err := store.Array("beta")
	if err != nil {
		t.Fatalf("Array beta: %v", err)
	}
	if alpha.NumElements() != 8 || beta.NumElements() != 16 {
		t.Fatalf("session arrays = %d/%d elements, want 8/16", alpha.NumElements(), beta.NumElements())
	}

	if _, err := store.Array(""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("default session should be untouched, err = %v", err)
	}
}

func TestSessionKeyNormalization(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	arr, err := store.Configure(ctx, "", linearParams(4))
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}

	for _, key := range []string{"", "  ", DefaultSession, " default "} {
		got, err := store.Array(key)
		if err != nil {
			t.Fatalf("Array(%q): %v", key, err)
		}
		if got != arr {
			t.Fatalf("Array(%q) returned a different instance", key)
		}
	}
}

func TestConfigureRejectsBadParams(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	bad := linearParams(8)
	bad.Spacing = -1
	if _, err := store.Configure(ctx, "alpha", bad); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("Configure with negative spacing: err = %v, want ErrBadConfig", err)
	}
	if _, err := store.Array("alpha"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("failed Configure must not install an array, err = %v", err)
	}
}

func TestPatternOpsRequireConfiguredArray(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	if _, err := store.AzimuthPattern(ctx, "alpha", nil, 0); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("AzimuthPattern: err = %v, want ErrNotConfigured", err)
	}
	if _, err := store.SpherePattern(ctx, "alpha", nil, 0, 90); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("SpherePattern: err = %v, want ErrNotConfigured", err)
	}
	if _, err := store.InterferencePattern(ctx, "alpha", nil, 0, 90, 50); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("InterferencePattern: err = %v, want ErrNotConfigured", err)
	}
	if _, err := store.CalculateAll(ctx, "alpha", nil, 0, 90); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("CalculateAll: err = %v, want ErrNotConfigured", err)
	}
}

func TestPatternRequestConfigReconfiguresSession(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	params := linearParams(16)
	cut, err := store.AzimuthPattern(ctx, "alpha", &params, 20)
	if err != nil {
		t.Fatalf("AzimuthPattern with inline config: %v", err)
	}
	if cut.SteerAzDeg != 20 {
		t.Fatalf("SteerAzDeg = %v, want 20", cut.SteerAzDeg)
	}

	arr, err := store.Array("alpha")
	if err != nil {
		t.Fatalf("Array after inline config: %v", err)
	}
	if arr.NumElements() != 16 {
		t.Fatalf("inline config did not stick: %d elements, want 16", arr.NumElements())
	}
}

func TestCalculateAllAggregates(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	if _, err := store.Configure(ctx, "alpha", linearParams(8)); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	all, err := store.CalculateAll(ctx, "alpha", nil, 10, 90)
	if err != nil {
		t.Fatalf("CalculateAll: %v", err)
	}
	if all.Array == nil || all.Azimuth == nil || all.Sphere == nil || all.Field == nil {
		t.Fatalf("CalculateAll left nil components: %+v", all)
	}
	if all.Azimuth.SteerAzDeg != 10 {
		t.Fatalf("Azimuth.SteerAzDeg = %v, want 10", all.Azimuth.SteerAzDeg)
	}
	if all.Field.Resolution != core.DefaultFieldResolution {
		t.Fatalf("Field.Resolution = %d, want %d", all.Field.Resolution, core.DefaultFieldResolution)
	}
}

func TestLoadScenarioInstallsPreset(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	sc, arr, err := store.LoadScenario(ctx, "alpha", "5G")
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.ID != "5g" {
		t.Fatalf("scenario ID = %q, want 5g", sc.ID)
	}
	if arr.NumElements() != 64 {
		t.Fatalf("5g preset array = %d elements, want 64", arr.NumElements())
	}

	loaded, err := store.Scenario("alpha")
	if err != nil {
		t.Fatalf("Scenario: %v", err)
	}
	if loaded != sc {
		t.Fatalf("Scenario returned a different preset instance")
	}
	if len(loaded.Sources) == 0 {
		t.Fatalf("5g preset should carry sources")
	}
}

func TestLoadScenarioUnknownLeavesStateUntouched(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	if _, err := store.Configure(ctx, "alpha", linearParams(8)); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	if _, _, err := store.LoadScenario(ctx, "alpha", "nope"); !errors.Is(err, ErrUnknownScenario) {
		t.Fatalf("LoadScenario unknown: err = %v, want ErrUnknownScenario", err)
	}

	arr, err := store.Array("alpha")
	if err != nil {
		t.Fatalf("Array after failed load: %v", err)
	}
	if arr.NumElements() != 8 {
		t.Fatalf("failed load clobbered the array: %d elements, want 8", arr.NumElements())
	}
	if _, err := store.Scenario("alpha"); !errors.Is(err, ErrNoScenario) {
		t.Fatalf("failed load attached a scenario: err = %v, want ErrNoScenario", err)
	}
}

func TestConfigureKeepsLoadedScenario(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	if _, _, err := store.LoadScenario(ctx, "alpha", "5g"); err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if _, err := store.Configure(ctx, "alpha", linearParams(8)); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	arr, err := store.Array("alpha")
	if err != nil {
		t.Fatalf("Array: %v", err)
	}
	if arr.NumElements() != 8 {
		t.Fatalf("reconfigure did not replace the array: %d elements, want 8", arr.NumElements())
	}
	if _, err := store.Scenario("alpha"); err != nil {
		t.Fatalf("reconfigure dropped the loaded scenario: %v", err)
	}
}

func TestSnapshotRequiresArrayAndScenario(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()
	params := core.SnapshotParams{NumSamples: 16, SNRDb: 20, Seed: 7}

	if _, err := store.Snapshot(ctx, "alpha", params); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Snapshot on empty session: err = %v, want ErrNotConfigured", err)
	}

	if _, err := store.Configure(ctx, "alpha", linearParams(8)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if _, err := store.Snapshot(ctx, "alpha", params); !errors.Is(err, ErrNoScenario) {
		t.Fatalf("Snapshot without scenario: err = %v, want ErrNoScenario", err)
	}

	if _, _, err := store.LoadScenario(ctx, "alpha", "ultrasound"); err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	snap, err := store.Snapshot(ctx, "alpha", params)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Samples) != 128 {
		t.Fatalf("snapshot rows = %d, want 128 (ultrasound elements)", len(snap.Samples))
	}
	if snap.NumSamples != 16 {
		t.Fatalf("snapshot NumSamples = %d, want 16", snap.NumSamples)
	}
}

type recordingSessionMetrics struct {
	mu       sync.Mutex
	sessions int
	elements int
}

func (r *recordingSessionMetrics) SetSessionCounts(sessions, elements int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = sessions
	r.elements = elements
}

func (r *recordingSessionMetrics) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions, r.elements
}

type recordingCompute struct {
	mu        sync.Mutex
	renders   map[string]int
	snapshots int
	builds    int
}

func (r *recordingCompute) ObserveRender(pattern string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.renders == nil {
		r.renders = make(map[string]int)
	}
	r.renders[pattern]++
}

func (r *recordingCompute) ObserveSnapshot(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots++
}

func (r *recordingCompute) IncArrayBuilds() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builds++
}

func TestStoreDrivesMetricsRecorders(t *testing.T) {
	sessionRec := &recordingSessionMetrics{}
	computeRec := &recordingCompute{}
	store := newStoreForTest(t, WithMetricsRecorder(sessionRec), WithComputeRecorder(computeRec))
	ctx := context.Background()

	if _, err := store.Configure(ctx, "alpha", linearParams(8)); err != nil {
		t.Fatalf("Configure alpha: %v", err)
	}
	if _, err := store.Configure(ctx, "beta", linearParams(16)); err != nil {
		t.Fatalf("Configure beta: %v", err)
	}

	sessions, elements := sessionRec.counts()
	if sessions != 2 || elements != 24 {
		t.Fatalf("session counts = %d sessions / %d elements, want 2 / 24", sessions, elements)
	}

	if _, err := store.AzimuthPattern(ctx, "alpha", nil, 0); err != nil {
		t.Fatalf("AzimuthPattern: %v", err)
	}
	if _, _, err := store.LoadScenario(ctx, "alpha", "5g"); err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if _, err := store.Snapshot(ctx, "alpha", core.SnapshotParams{NumSamples: 4, SNRDb: 10, Seed: 1}); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	computeRec.mu.Lock()
	defer computeRec.mu.Unlock()
	if computeRec.builds != 3 {
		t.Fatalf("array builds = %d, want 3", computeRec.builds)
	}
	if computeRec.renders["azimuth"] != 1 {
		t.Fatalf("azimuth renders = %d, want 1", computeRec.renders["azimuth"])
	}
	if computeRec.snapshots != 1 {
		t.Fatalf("snapshots observed = %d, want 1", computeRec.snapshots)
	}
}

func TestStoreConcurrentConfigureAndCompute(t *testing.T) {
	store := newStoreForTest(t)
	ctx := context.Background()

	if _, err := store.Configure(ctx, "alpha", linearParams(4)); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		n := 4 + i
		go func() {
			defer wg.Done()
			params := linearParams(n)
			if _, err := store.Configure(ctx, "alpha", params); err != nil {
				t.Errorf("concurrent Configure: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			cut, err := store.AzimuthPattern(ctx, "alpha", nil, 15)
			if err != nil {
				t.Errorf("concurrent AzimuthPattern: %v", err)
				return
			}
			if len(cut.AnglesDeg) != len(cut.MagnitudesDb) {
				t.Errorf("cut lengths diverge: %d vs %d", len(cut.AnglesDeg), len(cut.MagnitudesDb))
			}
		}()
	}
	wg.Wait()
}
