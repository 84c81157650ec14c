package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/profile"
	"github.com/ayusman/glovecore/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// storeProfile creates a factory Nova profile in the store.
func storeProfile(t *testing.T, s *store.Store, id, name string, side hand.Side) *store.Profile {
	t.Helper()
	p := &store.Profile{ID: id, Name: name, Data: profile.Default(device.Nova{Hand: side})}
	if err := s.Profiles().Create(p); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	return p
}

// fakeActivator records the profiles it was given.
type fakeActivator struct {
	side    hand.Side
	applied []*profile.HandProfile
}

func (f *fakeActivator) SetProfile(p *profile.HandProfile) error {
	if p.Side != f.side {
		return errors.New("wrong hand")
	}
	f.applied = append(f.applied, p)
	return nil
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProfileHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, nil)
	storeProfile(t, s, "profile-1", "alice", hand.Right)

	rec := serve(handler, http.MethodGet, "/api/profiles", "")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response listProfilesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(response.Profiles))
	}
	got := response.Profiles[0]
	if got.ID != "profile-1" || got.Name != "alice" || got.Side != "right" || got.Device != "nova" {
		t.Errorf("unexpected profile %+v", got)
	}
	if !got.Calibrated {
		t.Error("factory profile ranges are valid")
	}
}

func TestProfileHandler_ListEmpty(t *testing.T) {
	handler := NewProfileHandler(newTestStore(t), nil)

	rec := serve(handler, http.MethodGet, "/api/profiles", "")

	var response listProfilesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Profiles == nil || len(response.Profiles) != 0 {
		t.Errorf("expected an empty list, got %v", response.Profiles)
	}
}

func TestProfileHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, nil)

	t.Run("factory profile of a device", func(t *testing.T) {
		rec := serve(handler, http.MethodPost, "/api/profiles", `{"name": "bob", "side": "left", "device": "senseglove"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body)
		}

		var response profileResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.ID == "" {
			t.Error("expected an id")
		}
		stored, err := s.Profiles().GetByID(response.ID)
		if err != nil {
			t.Fatalf("profile not stored: %v", err)
		}
		if stored.Side != hand.Left || stored.Device != device.KindSenseGlove {
			t.Errorf("unexpected stored profile %+v", stored)
		}
	})

	t.Run("serialized profile", func(t *testing.T) {
		data := profile.Default(device.Nova2{Hand: hand.Right}).Serialize()
		body, _ := json.Marshal(createProfileRequest{Name: "carol", Data: data})
		rec := serve(handler, http.MethodPost, "/api/profiles", string(body))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body)
		}
		var response profileResponse
		json.NewDecoder(rec.Body).Decode(&response)
		if response.Device != "nova2" || response.Data != data {
			t.Errorf("unexpected response %+v", response)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{`},
		{"missing name", `{"side": "left", "device": "nova"}`},
		{"invalid side", `{"name": "x", "side": "middle", "device": "nova"}`},
		{"invalid device", `{"name": "x", "side": "left", "device": "toaster"}`},
		{"custom device without data", `{"name": "x", "side": "left", "device": "custom"}`},
		{"malformed data", `{"name": "x", "data": "[right,nova"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, http.MethodPost, "/api/profiles", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestProfileHandler_GetUpdateDelete(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, nil)
	p := storeProfile(t, s, "profile-1", "alice", hand.Right)

	rec := serve(handler, http.MethodGet, "/api/profiles/profile-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET: expected status %d, got %d", http.StatusOK, rec.Code)
	}

	scaled, err := p.Data.Model.Scaled(1.1)
	if err != nil {
		t.Fatal(err)
	}
	next := *p.Data
	next.Model = scaled
	body, _ := json.Marshal(updateProfileRequest{Name: "alice xl", Data: next.Serialize()})
	rec = serve(handler, http.MethodPut, "/api/profiles/profile-1", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT: expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body)
	}
	stored, _ := s.Profiles().GetByID("profile-1")
	if stored.Name != "alice xl" || !stored.Data.Model.Equals(scaled, 1e-4) {
		t.Errorf("update not stored: %+v", stored)
	}

	rec = serve(handler, http.MethodPut, "/api/profiles/profile-1", `{"data": "nonsense"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("PUT malformed: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = serve(handler, http.MethodDelete, "/api/profiles/profile-1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE: expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec = serve(handler, method, "/api/profiles/profile-1", `{}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s after delete: expected status %d, got %d", method, http.StatusNotFound, rec.Code)
		}
	}
}

func TestProfileHandler_Latest(t *testing.T) {
	s := newTestStore(t)
	handler := NewProfileHandler(s, nil)
	storeProfile(t, s, "left-1", "alice", hand.Left)

	rec := serve(handler, http.MethodGet, "/api/profiles/latest?side=left", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response profileResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if response.ID != "left-1" {
		t.Errorf("expected left-1, got %s", response.ID)
	}

	if rec := serve(handler, http.MethodGet, "/api/profiles/latest?side=right", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	if rec := serve(handler, http.MethodGet, "/api/profiles/latest", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestProfileHandler_Activate(t *testing.T) {
	s := newTestStore(t)
	storeProfile(t, s, "right-1", "alice", hand.Right)
	storeProfile(t, s, "left-1", "alice", hand.Left)

	t.Run("without session", func(t *testing.T) {
		rec := serve(NewProfileHandler(s, nil), http.MethodPost, "/api/profiles/right-1/activate", "")
		if rec.Code != http.StatusNotImplemented {
			t.Errorf("expected status %d, got %d", http.StatusNotImplemented, rec.Code)
		}
	})

	active := &fakeActivator{side: hand.Right}
	handler := NewProfileHandler(s, active)

	if rec := serve(handler, http.MethodPost, "/api/profiles/right-1/activate", ""); rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if len(active.applied) != 1 {
		t.Errorf("expected the profile to be applied once, got %d", len(active.applied))
	}
	if rec := serve(handler, http.MethodPost, "/api/profiles/left-1/activate", ""); rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
	if rec := serve(handler, http.MethodPost, "/api/profiles/missing/activate", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	if rec := serve(handler, http.MethodGet, "/api/profiles/right-1/activate", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestProfileHandler_MethodNotAllowed(t *testing.T) {
	handler := NewProfileHandler(newTestStore(t), nil)

	if rec := serve(handler, http.MethodDelete, "/api/profiles", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if rec := serve(handler, http.MethodPatch, "/api/profiles/x", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
	if rec := serve(handler, http.MethodGet, "/api/profiles/x/y/z", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}
