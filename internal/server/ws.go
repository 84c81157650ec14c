package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/session"
)

const writeTimeout = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// handlePose handles GET /api/pose with the latest update as JSON.
func (s *Server) handlePose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	u, err := s.config.Session.Latest()
	if err != nil {
		if errors.Is(err, hand.ErrNoData) {
			writeError(w, http.StatusServiceUnavailable, "No data received from the glove yet")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read pose")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// PoseStreamHandler streams every session update to WebSocket clients.
type PoseStreamHandler struct {
	session *session.Session
}

// NewPoseStreamHandler creates a PoseStreamHandler for a session.
func NewPoseStreamHandler(sess *session.Session) *PoseStreamHandler {
	return &PoseStreamHandler{session: sess}
}

// ServeHTTP upgrades the connection and writes updates until the client
// goes away.
func (h *PoseStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.session.Subscribe()
	defer cancel()

	// Reading detects the client closing the connection.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(u); err != nil {
				return
			}
		}
	}
}
