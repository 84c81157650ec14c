package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/glovecore/internal/calibration"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/session"
)

// CalibrationHandler drives the guided calibration of a session.
//
//	GET    /api/calibration          progress and instruction
//	POST   /api/calibration          start with the default stages
//	POST   /api/calibration/next     complete the current stage
//	POST   /api/calibration/trigger  start collecting without waiting for a still hand
//	DELETE /api/calibration          cancel
type CalibrationHandler struct {
	session *session.Session
}

// NewCalibrationHandler creates a CalibrationHandler for a session.
func NewCalibrationHandler(sess *session.Session) *CalibrationHandler {
	return &CalibrationHandler{session: sess}
}

type calibrationResponse struct {
	Running     bool                 `json:"running"`
	Progress    calibration.Progress `json:"progress"`
	Instruction string               `json:"instruction"`
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/calibration"), "/")

	var err error
	switch {
	case action == "" && r.Method == http.MethodGet:
	case action == "" && r.Method == http.MethodPost:
		_, err = h.session.StartCalibration(nil)
	case action == "" && r.Method == http.MethodDelete:
		err = h.session.CancelCalibration()
	case action == "next" && r.Method == http.MethodPost:
		err = h.session.NextStage()
	case action == "trigger" && r.Method == http.MethodPost:
		if seq := h.session.Calibration(); seq != nil {
			err = seq.Trigger()
		} else {
			err = calibration.ErrInvalidTransition
		}
	case action == "" || action == "next" || action == "trigger":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, calibration.ErrInvalidTransition), errors.Is(err, hand.ErrInsufficientData):
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := calibrationResponse{}
	if seq := h.session.Calibration(); seq != nil {
		response.Running = true
		response.Progress = seq.Progress()
		response.Instruction = seq.Instruction()
	}
	writeJSON(w, http.StatusOK, response)
}
