package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/session"
	"github.com/ayusman/glovecore/internal/store"
)

func TestAPI_ProfileWorkflow(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	sess := newTestSession(t)
	ts := httptest.NewServer(New(Config{Store: st, Session: sess}))
	defer ts.Close()
	client := ts.Client()

	// 1. Create a profile
	resp, err := client.Post(ts.URL+"/api/profiles", "application/json",
		bytes.NewBufferString(`{"name": "alice", "side": "right", "device": "nova"}`))
	if err != nil {
		t.Fatalf("POST /api/profiles error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// 2. Activate it on the session
	resp, _ = client.Post(ts.URL+"/api/profiles/"+created.ID+"/activate", "application/json", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activate status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// 3. Record calibration samples for it
	resp, _ = client.Post(ts.URL+"/api/profiles/"+created.ID+"/samples", "application/json",
		bytes.NewBufferString(`{"points": [{"stage": 0, "label": "open", "values": [1, 2]}]}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("samples status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()

	// 4. Capture the current pose as a template
	d := sess.Device()
	values := make([]float32, device.Channels(d))
	for i := range values {
		values[i] = 30
	}
	if _, err := sess.Feed(device.NewFrame(d, values, geom.Identity)); err != nil {
		t.Fatal(err)
	}
	resp, _ = client.Post(ts.URL+"/api/templates", "application/json", bytes.NewBufferString(`{"name": "rest"}`))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("template status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	resp.Body.Close()
	u, err := sess.Feed(mustLatestFrame(t, sess))
	if err != nil {
		t.Fatal(err)
	}
	if u.Gesture != "rest" {
		t.Errorf("expected the captured template to be recognised, got %q", u.Gesture)
	}

	// 5. Delete the profile, its samples go with it
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/profiles/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	resp, _ = client.Get(ts.URL + "/api/profiles/" + created.ID + "/samples")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("samples after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()
}

func TestAPI_PoseStream(t *testing.T) {
	sess := newTestSession(t)
	ts := httptest.NewServer(New(Config{Session: sess}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/pose/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The subscription starts after the upgrade; keep feeding until one arrives.
	d := sess.Device()
	frame := device.NewFrame(d, make([]float32, device.Channels(d)), geom.Identity)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				sess.Feed(frame)
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var u session.Update
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read: %v", err)
	}
	if u.Pose.Side != sess.Device().Side() {
		t.Errorf("unexpected pose side %s", u.Pose.Side)
	}
}

func mustLatestFrame(t *testing.T, sess *session.Session) device.Frame {
	t.Helper()
	f, err := sess.LatestFrame()
	if err != nil {
		t.Fatal(err)
	}
	return f
}
