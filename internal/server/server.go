// Package server provides the HTTP server of the glove daemon.
package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/server/api"
	"github.com/ayusman/glovecore/internal/session"
	"github.com/ayusman/glovecore/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Session   *session.Session
}

// Server represents the HTTP server of the daemon.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		var activator api.Activator
		if s.config.Session != nil {
			activator = s.config.Session
		}
		profileHandler := api.NewProfileHandler(s.config.Store, activator)
		samplesHandler := api.NewSamplesHandler(s.config.Store)

		// Route /api/profiles/{id}/samples to the samples handler
		profileRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/samples") {
				samplesHandler.ServeHTTP(w, r)
				return
			}
			profileHandler.ServeHTTP(w, r)
		})

		s.mux.Handle("/api/profiles", profileRouter)
		s.mux.Handle("/api/profiles/", profileRouter)
	}

	if s.config.Session != nil {
		s.mux.HandleFunc("/api/pose", s.handlePose)
		s.mux.Handle("/api/pose/stream", NewPoseStreamHandler(s.config.Session))

		calibration := NewCalibrationHandler(s.config.Session)
		s.mux.Handle("/api/calibration", calibration)
		s.mux.Handle("/api/calibration/", calibration)

		if s.config.Store != nil {
			templates := api.NewTemplateHandler(s.config.Store, s.config.Session)
			s.mux.Handle("/api/templates", templates)
			s.mux.Handle("/api/templates/", templates)
		}
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Session != nil {
		response["device"] = device.Name(s.config.Session.Device())
		_, err := s.config.Session.Pose()
		response["receiving"] = err == nil
		response["calibration_check"] = s.config.Session.CheckStage().String()
	}

	writeJSON(w, http.StatusOK, response)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
