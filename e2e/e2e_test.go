package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/glovecore/internal/calibration"
	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/glove"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/profile"
	"github.com/ayusman/glovecore/internal/server"
	"github.com/ayusman/glovecore/internal/session"
	"github.com/ayusman/glovecore/internal/store"
)

const samplesPerStage = 3

func newSession(t *testing.T, st *store.Store) *session.Session {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Calibration.MinSamplesPerStage = samplesPerStage
	cfg.Calibration.AutoAdvanceSamples = samplesPerStage
	cfg.Calibration.MinStableDuration = time.Hour

	sess, err := session.New(device.Nova{Hand: hand.Right}, nil, cfg)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	sess.OnProfile = func(p *profile.HandProfile, points []calibration.DataPoint) {
		rec := &store.Profile{ID: uuid.New().String(), Name: "calibrated", Data: p}
		if err := st.Profiles().Create(rec); err != nil {
			t.Errorf("save profile: %v", err)
			return
		}
		if err := st.Samples().Create(rec.ID, uuid.New().String(), points); err != nil {
			t.Errorf("save samples: %v", err)
		}
	}
	return sess
}

// runFrames plays frames through the session until the mock glove runs dry.
func runFrames(t *testing.T, sess *session.Session, values []float32, n int) {
	t.Helper()
	src := glove.NewMockGlove(sess.Device())
	for i := 0; i < n; i++ {
		src.PushValues(values)
	}
	if err := sess.Run(context.Background(), src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func post(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	return resp
}

func TestE2E_CalibrateStoreAndStream(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	sess := newSession(t, s)
	ts := httptest.NewServer(server.New(server.Config{Store: s, Session: sess}))
	defer ts.Close()
	client := ts.Client()

	defaults := device.DefaultRange(sess.Device())
	open, closed := defaults.MinValues(), defaults.MaxValues()

	t.Run("Calibrate", func(t *testing.T) {
		resp := post(t, client, ts.URL+"/api/calibration")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("start status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		// open hand, fist, thumbs up
		for stage, values := range [][]float32{open, closed, closed} {
			resp := post(t, client, ts.URL+"/api/calibration/trigger")
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("stage %d: trigger status = %d, want %d", stage, resp.StatusCode, http.StatusOK)
			}
			runFrames(t, sess, values, samplesPerStage)
		}

		if sess.Calibration() != nil {
			t.Fatal("calibration should be finished")
		}
		if stage := sess.CheckStage(); stage != calibration.CheckDone {
			t.Errorf("check stage = %s, want done", stage)
		}
		if !sess.Profile().Range.Equals(defaults, 1e-6) {
			t.Errorf("calibrated range = %s, want %s", sess.Profile().Range.Serialize(), defaults.Serialize())
		}
	})

	var profileID string
	t.Run("ProfileStored", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/profiles/latest?side=right")
		if err != nil {
			t.Fatalf("GET latest error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("latest status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var p struct {
			ID         string `json:"id"`
			Device     string `json:"device"`
			Calibrated bool   `json:"calibrated"`
		}
		json.NewDecoder(resp.Body).Decode(&p)
		if p.Device != "nova" || !p.Calibrated {
			t.Errorf("stored profile = %+v", p)
		}
		profileID = p.ID

		resp, err = client.Get(ts.URL + "/api/profiles/" + profileID + "/samples")
		if err != nil {
			t.Fatalf("GET samples error = %v", err)
		}
		defer resp.Body.Close()
		var list struct {
			Samples []struct {
				Stage int    `json:"stage"`
				Line  string `json:"line"`
			} `json:"samples"`
		}
		json.NewDecoder(resp.Body).Decode(&list)
		if len(list.Samples) != 3*samplesPerStage {
			t.Fatalf("stored %d samples, want %d", len(list.Samples), 3*samplesPerStage)
		}
		if last := list.Samples[len(list.Samples)-1]; last.Stage != 2 || !strings.HasPrefix(last.Line, "2;thumbs_up;") {
			t.Errorf("last sample = %+v", last)
		}
	})

	t.Run("ReloadedProfileMatches", func(t *testing.T) {
		stored, err := s.Profiles().Latest(hand.Right)
		if err != nil {
			t.Fatalf("Latest() error = %v", err)
		}
		if !stored.Data.Equals(sess.Profile(), 1e-5) {
			t.Error("stored profile differs from the active one")
		}
	})

	t.Run("StreamPose", func(t *testing.T) {
		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/pose/stream"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial error = %v", err)
		}
		defer conn.Close()

		// The subscription is registered after the upgrade; keep the glove
		// closing until an update arrives.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					sess.Feed(device.NewFrame(sess.Device(), closed, geom.Identity))
				}
			}
		}()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var u session.Update
		if err := conn.ReadJSON(&u); err != nil {
			t.Fatalf("read error = %v", err)
		}
		if u.Pose.Side != hand.Right {
			t.Errorf("pose side = %s, want right", u.Pose.Side)
		}
		if f := u.Pose.Flexion[hand.Index]; f < 0.5 {
			t.Errorf("index flexion = %v, want a closed finger", f)
		}
	})

	t.Run("ResetCalibration", func(t *testing.T) {
		n, err := s.Profiles().ResetCalibration(hand.Right)
		if err != nil || n != 1 {
			t.Fatalf("ResetCalibration() = %d, %v", n, err)
		}
		resp, _ := client.Get(ts.URL + "/api/profiles/" + profileID + "/samples")
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("samples after reset status = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})
}
