package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/handmodel"
	"github.com/ayusman/glovecore/internal/pose"
)

// fakeRecorder serves a fixed pose and tracks registered templates.
type fakeRecorder struct {
	pose      *pose.HandPose
	templates map[string]*pose.Template
}

func newFakeRecorder(p *pose.HandPose) *fakeRecorder {
	return &fakeRecorder{pose: p, templates: make(map[string]*pose.Template)}
}

func (f *fakeRecorder) Pose() (pose.HandPose, error) {
	if f.pose == nil {
		return pose.HandPose{}, fmt.Errorf("nothing yet: %w", hand.ErrNoData)
	}
	return *f.pose, nil
}

func (f *fakeRecorder) AddTemplate(t *pose.Template) { f.templates[t.Name] = t }
func (f *fakeRecorder) RemoveTemplate(name string)   { delete(f.templates, name) }

func TestTemplateHandler_Workflow(t *testing.T) {
	s := newTestStore(t)
	fist := pose.Fist(handmodel.Default(hand.Left))
	rec := newFakeRecorder(&fist)
	handler := NewTemplateHandler(s, rec)

	res := serve(handler, http.MethodPost, "/api/templates", `{"name": "grab"}`)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, res.Code, res.Body)
	}
	var created templateResponse
	json.NewDecoder(res.Body).Decode(&created)
	if created.Side != "left" || created.Tolerance != 0.5 || created.Flexion != fist.Flexion {
		t.Errorf("unexpected template %+v", created)
	}
	if _, ok := rec.templates["grab"]; !ok {
		t.Error("template should be registered with the session")
	}

	res = serve(handler, http.MethodGet, "/api/templates?side=left", "")
	var listed listTemplatesResponse
	json.NewDecoder(res.Body).Decode(&listed)
	if len(listed.Templates) != 1 || listed.Templates[0].Name != "grab" {
		t.Errorf("unexpected list %+v", listed)
	}
	res = serve(handler, http.MethodGet, "/api/templates?side=right", "")
	json.NewDecoder(res.Body).Decode(&listed)
	if len(listed.Templates) != 0 {
		t.Errorf("expected no right hand templates, got %d", len(listed.Templates))
	}

	res = serve(handler, http.MethodDelete, "/api/templates/"+created.ID, "")
	if res.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, res.Code)
	}
	if _, ok := rec.templates["grab"]; ok {
		t.Error("template should be removed from the session")
	}
	res = serve(handler, http.MethodDelete, "/api/templates/"+created.ID, "")
	if res.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, res.Code)
	}
}

func TestTemplateHandler_Errors(t *testing.T) {
	s := newTestStore(t)
	handler := NewTemplateHandler(s, newFakeRecorder(nil))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"no pose yet", http.MethodPost, "/api/templates", `{"name": "grab"}`, http.StatusConflict},
		{"missing name", http.MethodPost, "/api/templates", `{"tolerance": 0.2}`, http.StatusBadRequest},
		{"invalid JSON", http.MethodPost, "/api/templates", `{`, http.StatusBadRequest},
		{"invalid side", http.MethodGet, "/api/templates?side=up", "", http.StatusBadRequest},
		{"method", http.MethodPut, "/api/templates", "", http.StatusMethodNotAllowed},
		{"item method", http.MethodGet, "/api/templates/abc", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := serve(handler, tt.method, tt.path, tt.body)
			if res.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, res.Code)
			}
		})
	}
}
