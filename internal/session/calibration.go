package session

import (
	"fmt"
	"log"

	"github.com/ayusman/glovecore/internal/calibration"
	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/pose"
	"github.com/ayusman/glovecore/internal/profile"
)

// StartCalibration begins a guided calibration fed by the session's frames.
// Nil stages use calibration.DefaultStages. When the sequence is done its
// range replaces the profile's and OnProfile is called.
func (s *Session) StartCalibration(stages []calibration.Stage) (*calibration.Sequence, error) {
	seq, err := calibration.NewSequence(s.dev, stages, s.cfg.Calibration)
	if err != nil {
		return nil, err
	}
	seq.OnTransition = func(t calibration.Transition) {
		log.Printf("Calibration of %s: %s -> %s (stage %d)", device.Name(s.dev), t.From, t.To, t.Stage)
	}

	s.mu.Lock()
	if s.seq != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("calibration already running on %s: %w", device.Name(s.dev), calibration.ErrInvalidTransition)
	}
	s.seq = seq
	s.mu.Unlock()

	if err := seq.Start(); err != nil {
		s.clearCalibration(seq)
		return nil, err
	}
	if check := s.currentCheck(); check.Stage() == calibration.CheckCalibrationNeeded {
		if err := check.BeginCalibration(); err != nil {
			log.Printf("Calibration check of %s: %v", device.Name(s.dev), err)
		}
	}
	return seq, nil
}

// Calibration returns the guided calibration in progress, or nil.
func (s *Session) Calibration() *calibration.Sequence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// NextStage completes the current calibration stage. It finishes the
// calibration after the last stage.
func (s *Session) NextStage() error {
	seq := s.Calibration()
	if seq == nil {
		return fmt.Errorf("no calibration running: %w", calibration.ErrInvalidTransition)
	}
	if err := seq.Next(); err != nil {
		return err
	}
	s.finishCalibration(seq)
	return nil
}

// CancelCalibration stops the guided calibration and keeps the current profile.
func (s *Session) CancelCalibration() error {
	seq := s.Calibration()
	if seq == nil {
		return fmt.Errorf("no calibration running: %w", calibration.ErrInvalidTransition)
	}
	err := seq.Cancel()
	s.clearCalibration(seq)
	if check := s.currentCheck(); check.Stage() == calibration.CheckCalibrating {
		check.Reset()
	}
	return err
}

// CalibrationPreview returns the pose shown to the wearer during calibration.
func (s *Session) CalibrationPreview() (pose.HandPose, error) {
	seq := s.Calibration()
	if seq == nil {
		return pose.HandPose{}, fmt.Errorf("no calibration running: %w", calibration.ErrInvalidTransition)
	}
	prof := s.Profile()
	return seq.PreviewPose(prof.Interpolation, prof.Model)
}

func (s *Session) feedCalibration(seq *calibration.Sequence, frame device.Frame, prof *profile.HandProfile) {
	var err error
	if angles, aerr := pose.Angles(frame, prof.Range, prof.Interpolation); aerr == nil {
		err = seq.FeedEstimate(frame, angles)
	} else {
		err = seq.Feed(frame)
	}
	if err != nil {
		log.Printf("Calibration feed on %s: %v", device.Name(s.dev), err)
		return
	}
	s.finishCalibration(seq)
}

// finishCalibration publishes the calibrated profile once seq is done.
func (s *Session) finishCalibration(seq *calibration.Sequence) {
	if seq.State() != calibration.StateDone {
		return
	}
	if !s.clearCalibration(seq) {
		return
	}
	prof := s.Profile()
	next, err := profile.CompileSequence(seq, prof.Model)
	if err != nil {
		log.Printf("Compiling calibration of %s: %v", device.Name(s.dev), err)
		return
	}
	next = next.WithInterpolation(prof.Interpolation)

	s.mu.Lock()
	err = s.setProfileLocked(next)
	check := s.check
	s.mu.Unlock()
	if err != nil {
		log.Printf("Applying calibration of %s: %v", device.Name(s.dev), err)
		return
	}
	if check.Stage() == calibration.CheckCalibrating {
		if err := check.Finish(); err != nil {
			log.Printf("Calibration check of %s: %v", device.Name(s.dev), err)
		}
	}
	log.Printf("Calibration of %s complete", device.Name(s.dev))
	if s.OnProfile != nil {
		s.OnProfile(next, seq.DataPoints())
	}
}

// clearCalibration detaches seq and reports whether it was still attached.
func (s *Session) clearCalibration(seq *calibration.Sequence) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return false
	}
	s.seq = nil
	return true
}

// CheckStage reports whether the stored calibration still fits the wearer.
func (s *Session) CheckStage() calibration.CheckStage {
	return s.currentCheck().Stage()
}

func (s *Session) currentCheck() *calibration.Check {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.check
}

// updateCheck feeds the start-up check until it reaches a conclusion.
func (s *Session) updateCheck(check *calibration.Check, frame device.Frame) {
	before := check.Stage()
	if before != calibration.CheckMoveFingers {
		return
	}
	stage, err := check.Update(frame)
	if err != nil {
		log.Printf("Calibration check of %s: %v", device.Name(s.dev), err)
		return
	}
	switch stage {
	case calibration.CheckDone:
		log.Printf("Stored calibration of %s fits the wearer", device.Name(s.dev))
	case calibration.CheckCalibrationNeeded:
		log.Printf("Stored calibration of %s does not fit, calibration needed", device.Name(s.dev))
	}
}
