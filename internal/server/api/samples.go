package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/glovecore/internal/calibration"
	"github.com/ayusman/glovecore/internal/store"
)

// SamplesHandler handles HTTP requests for calibration samples of a profile.
type SamplesHandler struct {
	store *store.Store
}

// NewSamplesHandler creates a new SamplesHandler with the given store.
func NewSamplesHandler(s *store.Store) *SamplesHandler {
	return &SamplesHandler{store: s}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/profiles/{id}/samples
func (h *SamplesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[1] != "samples" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	profileID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, profileID)
	case http.MethodPost:
		h.create(w, r, profileID)
	case http.MethodDelete:
		h.delete(w, r, profileID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Request types

type samplePoint struct {
	Stage  int       `json:"stage"`
	Label  string    `json:"label"`
	TimeMs int64     `json:"time_ms"`
	Values []float32 `json:"values"`
}

type createSamplesRequest struct {
	RunID  string        `json:"run_id"`
	Points []samplePoint `json:"points"`
}

// Response types

type sampleResponse struct {
	ID        int64  `json:"id"`
	ProfileID string `json:"profile_id"`
	RunID     string `json:"run_id"`
	Sequence  int    `json:"sequence"`
	Stage     int    `json:"stage"`
	Line      string `json:"line"`
	CreatedAt string `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

type createSamplesResponse struct {
	RunID   string `json:"run_id"`
	Samples int    `json:"samples"`
}

// list handles GET /api/profiles/{id}/samples
func (h *SamplesHandler) list(w http.ResponseWriter, r *http.Request, profileID string) {
	if !h.exists(w, profileID) {
		return
	}
	samples, err := h.store.Samples().GetByProfileID(profileID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{
		Samples: make([]sampleResponse, 0, len(samples)),
	}

	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			ID:        s.ID,
			ProfileID: s.ProfileID,
			RunID:     s.RunID,
			Sequence:  s.Sequence,
			Stage:     s.Stage,
			Line:      s.Line,
			CreatedAt: formatTime(s.CreatedAt),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/profiles/{id}/samples
func (h *SamplesHandler) create(w http.ResponseWriter, r *http.Request, profileID string) {
	if !h.exists(w, profileID) {
		return
	}

	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Points) == 0 {
		writeError(w, http.StatusBadRequest, "At least one point is required")
		return
	}
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}

	points := make([]calibration.DataPoint, len(req.Points))
	for i, p := range req.Points {
		points[i] = calibration.DataPoint{
			Stage:  p.Stage,
			Label:  p.Label,
			Time:   time.UnixMilli(p.TimeMs),
			Values: p.Values,
		}
	}

	if err := h.store.Samples().Create(profileID, req.RunID, points); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save samples")
		return
	}

	writeJSON(w, http.StatusCreated, createSamplesResponse{RunID: req.RunID, Samples: len(points)})
}

// delete handles DELETE /api/profiles/{id}/samples
func (h *SamplesHandler) delete(w http.ResponseWriter, r *http.Request, profileID string) {
	if !h.exists(w, profileID) {
		return
	}
	if err := h.store.Samples().DeleteByProfileID(profileID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete samples")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SamplesHandler) exists(w http.ResponseWriter, profileID string) bool {
	if _, err := h.store.Profiles().GetByID(profileID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return false
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify profile")
		return false
	}
	return true
}
