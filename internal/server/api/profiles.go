package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/profile"
	"github.com/ayusman/glovecore/internal/store"
)

// Activator applies a profile to a running glove session.
type Activator interface {
	SetProfile(p *profile.HandProfile) error
}

// ProfileHandler handles HTTP requests for profile resources.
type ProfileHandler struct {
	store  *store.Store
	active Activator
}

// NewProfileHandler creates a ProfileHandler. active may be nil, in which
// case profiles cannot be activated.
func NewProfileHandler(s *store.Store, active Activator) *ProfileHandler {
	return &ProfileHandler{store: s, active: active}
}

// ServeHTTP routes requests.
// Expected paths: /api/profiles, /api/profiles/latest, /api/profiles/{id}
// and /api/profiles/{id}/activate
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "":
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	case path == "latest":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.latest(w, r)

	case len(parts) == 2 && parts[1] == "activate":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, parts[0])

	case len(parts) == 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodPut:
			h.update(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Request and response types

type createProfileRequest struct {
	Name   string `json:"name"`
	Side   string `json:"side"`
	Device string `json:"device"`
	// Data is a serialized profile. When empty the device's factory
	// profile is stored.
	Data string `json:"data"`
}

type updateProfileRequest struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

type profileResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Side       string `json:"side"`
	Device     string `json:"device"`
	Calibrated bool   `json:"calibrated"`
	Data       string `json:"data"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

func toProfileResponse(p *store.Profile) profileResponse {
	return profileResponse{
		ID:         p.ID,
		Name:       p.Name,
		Side:       p.Side.String(),
		Device:     p.Device.String(),
		Calibrated: p.Data.Validate() == nil,
		Data:       p.Data.Serialize(),
		CreatedAt:  formatTime(p.CreatedAt),
		UpdatedAt:  formatTime(p.UpdatedAt),
	}
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	response := listProfilesResponse{
		Profiles: make([]profileResponse, 0, len(profiles)),
	}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toProfileResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// latest handles GET /api/profiles/latest?side=left.
func (h *ProfileHandler) latest(w http.ResponseWriter, r *http.Request) {
	side, err := hand.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid side")
		return
	}
	p, err := h.store.Profiles().Latest(side)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := h.load(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// create handles POST /api/profiles.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}

	var data *profile.HandProfile
	if req.Data != "" {
		var err error
		if data, err = profile.Deserialize(req.Data); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid profile data")
			return
		}
	} else {
		side, err := hand.ParseSide(req.Side)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid side")
			return
		}
		kind, err := device.ParseKind(req.Device)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid device")
			return
		}
		d, err := device.New(kind, side)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Custom devices need profile data")
			return
		}
		data = profile.Default(d)
	}

	p := &store.Profile{
		ID:   uuid.New().String(),
		Name: req.Name,
		Data: data,
	}
	if err := h.store.Profiles().Create(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create profile")
		return
	}

	writeJSON(w, http.StatusCreated, toProfileResponse(p))
}

// update handles PUT /api/profiles/{id}.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, ok := h.load(w, id)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Data != "" {
		data, err := profile.Deserialize(req.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid profile data")
			return
		}
		p.Data = data
	}

	if err := h.store.Profiles().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Profiles().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete profile")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/profiles/{id}/activate.
func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	if h.active == nil {
		writeError(w, http.StatusNotImplemented, "No glove session")
		return
	}
	p, ok := h.load(w, id)
	if !ok {
		return
	}
	if err := h.active.SetProfile(p.Data); err != nil {
		writeError(w, http.StatusConflict, "Profile does not fit the connected glove")
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *ProfileHandler) load(w http.ResponseWriter, id string) (*store.Profile, bool) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profile not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get profile")
		return nil, false
	}
	return p, true
}
