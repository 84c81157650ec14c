package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/pose"
	"github.com/ayusman/glovecore/internal/store"
)

// PoseRecorder is the live session templates are captured from.
type PoseRecorder interface {
	Pose() (pose.HandPose, error)
	AddTemplate(t *pose.Template)
	RemoveTemplate(name string)
}

// TemplateHandler handles HTTP requests for pose templates.
type TemplateHandler struct {
	store    *store.Store
	recorder PoseRecorder
}

// NewTemplateHandler creates a TemplateHandler recording from rec.
func NewTemplateHandler(s *store.Store, rec PoseRecorder) *TemplateHandler {
	return &TemplateHandler{store: s, recorder: rec}
}

// ServeHTTP routes requests.
// Expected paths: /api/templates?side=right and /api/templates/{id}
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/templates")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.delete(w, r, path)
}

type createTemplateRequest struct {
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
}

type templateResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Side      string     `json:"side"`
	Tolerance float64    `json:"tolerance"`
	Flexion   [5]float32 `json:"flexion"`
	CreatedAt string     `json:"created_at"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
}

func toTemplateResponse(t *store.Template) templateResponse {
	return templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Side:      t.Side.String(),
		Tolerance: t.Tolerance,
		Flexion:   t.Pose.Flexion,
		CreatedAt: formatTime(t.CreatedAt),
	}
}

// list handles GET /api/templates?side=right.
func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	side, err := hand.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid side")
		return
	}
	templates, err := h.store.Templates().ListBySide(side)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	response := listTemplatesResponse{
		Templates: make([]templateResponse, 0, len(templates)),
	}
	for _, t := range templates {
		response.Templates = append(response.Templates, toTemplateResponse(t))
	}
	writeJSON(w, http.StatusOK, response)
}

// create handles POST /api/templates: the session's current pose is stored
// under the given name and recognised from then on.
func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Tolerance == 0 {
		req.Tolerance = 0.5
	}

	p, err := h.recorder.Pose()
	if err != nil {
		if errors.Is(err, hand.ErrNoData) {
			writeError(w, http.StatusConflict, "No pose received from the glove yet")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read pose")
		return
	}

	t := &store.Template{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Tolerance: req.Tolerance,
		Pose:      p,
	}
	if err := h.store.Templates().Create(t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}
	h.recorder.AddTemplate(t.Matcher())

	writeJSON(w, http.StatusCreated, toTemplateResponse(t))
}

// delete handles DELETE /api/templates/{id}.
func (h *TemplateHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.Templates().GetByID(id)
	if err == nil {
		err = h.store.Templates().Delete(id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}
	h.recorder.RemoveTemplate(t.Name)
	w.WriteHeader(http.StatusNoContent)
}
