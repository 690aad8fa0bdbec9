package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalforge/arraysim/core"
	"github.com/signalforge/arraysim/internal/logging"
)

// requestLog prefers the per-request logger installed by instrument.
func (s *Server) requestLog(ctx context.Context) logging.Logger {
	if log := logging.LoggerFromContext(ctx); log != nil {
		return log
	}
	return s.log
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.requestLog(r.Context()).Warn(r.Context(), "response encode failed", logging.Err(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)

	span := trace.SpanFromContext(r.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	log := s.requestLog(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", logging.Err(err), logging.Int("status", status))
	} else {
		log.Debug(r.Context(), "request rejected", logging.Err(err), logging.Int("status", status))
	}

	s.writeJSON(w, r, status, map[string]string{"error": err.Error()})
}

// requireMethod rejects requests with the wrong verb. Returns false after
// writing the error response.
func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	s.writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", ErrInvalidRequest)
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// steeringParams extracts the optional inline array configuration.
func steeringParams(cfg *ArrayConfigRequest) *core.ArrayParams {
	if cfg == nil {
		return nil
	}
	p := cfg.arrayParams()
	return &p
}

func (s *Server) handleCreateArray(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req ArrayConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateArrayConfig(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	arr, err := s.store.Configure(r.Context(), sessionID(r), req.arrayParams())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newCreateArrayResponse(arr))
}

func (s *Server) handleArrayGeometry(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	arr, err := s.store.Array(sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newArrayGeometryResponse(arr))
}

func (s *Server) handleAzimuthPattern(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req BeamSteeringRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateSteeringRequest(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	cut, err := s.store.AzimuthPattern(r.Context(), sessionID(r), steeringParams(req.ArrayConfig), req.AzimuthAngle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newAzimuthPatternResponse(cut))
}

func (s *Server) handle3DPattern(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req BeamSteeringRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateSteeringRequest(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sphere, err := s.store.SpherePattern(r.Context(), sessionID(r), steeringParams(req.ArrayConfig), req.AzimuthAngle, req.ElevationAngle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newPattern3DResponse(sphere))
}

func (s *Server) handleInterferencePattern(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req InterferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateInterferenceRequest(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	field, err := s.store.InterferencePattern(r.Context(), sessionID(r), steeringParams(req.ArrayConfig),
		req.AzimuthAngle, req.ElevationAngle, req.Resolution)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newInterferenceResponse(field))
}

func (s *Server) handleCalculateAll(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req BeamSteeringRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateSteeringRequest(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, span := StartChildSpan(r.Context(), "compute.calculate_all")
	defer span.End()

	all, err := s.store.CalculateAll(ctx, sessionID(r), steeringParams(req.ArrayConfig), req.AzimuthAngle, req.ElevationAngle)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, CalculateAllResponse{
		ArrayGeometry:       newArrayGeometryResponse(all.Array),
		AzimuthPattern:      newAzimuthPatternResponse(all.Azimuth),
		Pattern3D:           newPattern3DResponse(all.Sphere),
		InterferencePattern: newInterferenceResponse(all.Field),
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	presets := s.store.Catalog().List()
	templates := make([]TemplateSummary, len(presets))
	for i, sc := range presets {
		templates[i] = TemplateSummary{ID: sc.ID, Name: sc.Name, Description: sc.Description}
	}
	s.writeJSON(w, r, http.StatusOK, TemplatesResponse{Templates: templates})
}

func (s *Server) handleLoadScenario(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, routePrefix+"/load-scenario/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, r, fmt.Errorf("%w: %q", core.ErrUnknownScenario, id))
		return
	}

	sc, arr, err := s.store.LoadScenario(r.Context(), sessionID(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, ScenarioResponse{
		Name:        sc.Name,
		Description: sc.Description,
		NumElements: arr.NumElements(),
		Frequency:   sc.FrequencyHz,
		ArrayType:   string(sc.Topology),
		Status:      fmt.Sprintf("Loaded %s scenario successfully", id),
	})
}

func (s *Server) handleScenarioSources(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	sc, err := s.store.Scenario(sessionID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, ScenarioSourcesResponse{Scenario: sc.ID, Sources: sc.Sources})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req SnapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateSnapshotRequest(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := s.store.Snapshot(r.Context(), sessionID(r), core.SnapshotParams{
		NumSamples: req.NumSamples,
		SNRDb:      req.SNRDb,
		Seed:       req.Seed,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newSnapshotResponse(snap))
}

func (s *Server) handleTrackPass(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req TrackRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validateTrackRequest(&req); err != nil {
		s.writeError(w, r, err)
		return
	}

	_, span := StartChildSpan(r.Context(), "compute.predict_pass", attribute.Int("steps", req.Steps))
	defer span.End()

	track, err := core.PredictPass(req.trackParams())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newTrackResponse(track))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "arraysim",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
