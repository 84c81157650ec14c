// Package session ties a device, its profile and the pose pipeline together.
// A Session replaces process-wide calibration state: everything a pose
// computation needs is reachable from it, and several sessions can coexist.
package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/glovecore/internal/calibration"
	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/pose"
	"github.com/ayusman/glovecore/internal/profile"
	"github.com/ayusman/glovecore/internal/sensor"
)

// Config holds session options.
type Config struct {
	// ClampToLimits clamps interpolated angles to anatomical joint limits.
	ClampToLimits bool `yaml:"clamp_to_limits"`
	// QuickCalibration refines the profile's range in the background.
	QuickCalibration bool `yaml:"quick_calibration"`
	// Calibration configures guided and quick calibration.
	Calibration calibration.Config `yaml:"calibration"`
	// Check configures the start-up check of a stored profile.
	Check calibration.CheckConfig `yaml:"check"`
}

// DefaultConfig returns a Config with quick calibration enabled.
func DefaultConfig() Config {
	return Config{
		ClampToLimits:    true,
		QuickCalibration: true,
		Calibration:      calibration.DefaultConfig(),
		Check:            calibration.DefaultCheckConfig(),
	}
}

// Update is published for every posed frame.
type Update struct {
	Pose    pose.HandPose `json:"pose"`
	Gesture string        `json:"gesture,omitempty"`
	Score   float64       `json:"score,omitempty"`
	Time    time.Time     `json:"time"`
}

// subscriberBuffer is the number of updates a slow subscriber may lag behind
// before updates to it are dropped.
const subscriberBuffer = 16

// Session is the context object of one glove.
type Session struct {
	cfg       Config
	dev       device.Device
	assembler pose.Assembler

	mu      sync.RWMutex
	profile *profile.HandProfile
	latest  device.Frame
	last    Update
	posed   bool
	quick   *calibration.Quick
	seq     *calibration.Sequence
	check   *calibration.Check
	matcher *pose.Matcher
	extra   []*pose.Template // templates added on top of the presets
	gesture string
	subs    map[chan Update]struct{}

	// OnProfile is called, outside the lock, when a guided calibration
	// produced a new profile. points are the samples it was compiled from.
	OnProfile func(p *profile.HandProfile, points []calibration.DataPoint)
}

// New creates a session. A nil profile uses the device's factory profile and
// reports that calibration is needed; a stored profile is checked against the
// wearer's first movements.
func New(d device.Device, p *profile.HandProfile, cfg Config) (*Session, error) {
	if d == nil {
		return nil, fmt.Errorf("session without device: %w", hand.ErrInvalidArgument)
	}
	var stored *sensor.Range
	if p == nil {
		p = profile.Default(d)
	} else {
		stored = p.Range
	}
	s := &Session{
		cfg:       cfg,
		dev:       d,
		assembler: pose.Assembler{ClampToLimits: cfg.ClampToLimits},
		check:     calibration.NewCheck(d, stored, cfg.Check),
		subs:      make(map[chan Update]struct{}),
	}
	if err := s.setProfileLocked(p); err != nil {
		return nil, err
	}
	return s, nil
}

// Device returns the session's device.
func (s *Session) Device() device.Device {
	return s.dev
}

// Profile returns the profile in use.
func (s *Session) Profile() *profile.HandProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// SetProfile replaces the profile, restarts quick calibration from its range
// and checks the range against the wearer again.
func (s *Session) SetProfile(p *profile.HandProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setProfileLocked(p); err != nil {
		return err
	}
	s.check = calibration.NewCheck(s.dev, p.Range, s.cfg.Check)
	return nil
}

func (s *Session) setProfileLocked(p *profile.HandProfile) error {
	if p == nil || p.Side != s.dev.Side() || p.Device != s.dev.Kind() {
		return fmt.Errorf("profile does not belong to %s: %w", device.Name(s.dev), hand.ErrInvalidArgument)
	}
	if p.Range == nil || p.Range.Len() != device.Channels(s.dev) || p.Interpolation == nil || p.Model == nil {
		return fmt.Errorf("incomplete profile for %s: %w", device.Name(s.dev), hand.ErrInvalidArgument)
	}
	s.profile = p
	s.matcher = pose.DefaultMatcher(p.Model)
	for _, t := range s.extra {
		s.matcher.AddTemplate(t)
	}
	s.quick = nil
	if s.cfg.QuickCalibration {
		q, err := calibration.NewQuick(s.dev, p.Range, s.cfg.Calibration)
		if err != nil {
			return err
		}
		s.quick = q
	}
	return nil
}

// AddTemplate makes the matcher recognise another pose. Templates survive
// profile changes.
func (s *Session) AddTemplate(t *pose.Template) {
	if t == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra = append(s.extra, t)
	s.matcher.AddTemplate(t)
}

// RemoveTemplate forgets a template added with AddTemplate.
func (s *Session) RemoveTemplate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.extra {
		if t.Name == name {
			s.extra = append(s.extra[:i], s.extra[i+1:]...)
			s.matcher.RemoveTemplate(name)
			return
		}
	}
}

// ResetQuickCalibration restarts quick calibration from the profile's range.
func (s *Session) ResetQuickCalibration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setProfileLocked(s.profile)
}

// Range returns the range poses are currently assembled with.
func (s *Session) Range() *sensor.Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rangeLocked()
}

func (s *Session) rangeLocked() *sensor.Range {
	if s.quick != nil && s.quick.Widened() > 0 {
		return s.quick.Range()
	}
	return s.profile.Range
}

// Feed poses one frame, refines the quick calibration and forwards the frame
// to a guided calibration in progress.
func (s *Session) Feed(frame device.Frame) (Update, error) {
	if err := frame.Validate(); err != nil {
		return Update{}, err
	}
	if frame.Device.Kind() != s.dev.Kind() || frame.Device.Side() != s.dev.Side() {
		return Update{}, fmt.Errorf("frame from %s fed to %s session: %w", device.Name(frame.Device), device.Name(s.dev), hand.ErrInvalidArgument)
	}

	s.mu.Lock()
	s.latest = frame.Clone()
	if s.quick != nil {
		if _, err := s.quick.Feed(frame); err != nil {
			s.mu.Unlock()
			return Update{}, err
		}
	}
	seq := s.seq
	check := s.check
	prof := s.profile
	rng := s.rangeLocked()
	s.mu.Unlock()

	s.updateCheck(check, frame)
	if seq != nil {
		s.feedCalibration(seq, frame, prof)
	}

	p, err := s.assembler.Assemble(frame, rng, prof.Interpolation, prof.Model)
	if err != nil {
		return Update{}, err
	}

	u := Update{Pose: p, Time: frame.Time}
	s.mu.Lock()
	if m, ok := s.matcher.Best(p); ok {
		u.Gesture, u.Score = m.Template.Name, m.Score
	}
	if u.Gesture != s.gesture && u.Gesture != "" {
		log.Printf("Pose recognised: %s (score: %.3f)", u.Gesture, u.Score)
	}
	s.gesture = u.Gesture
	s.last, s.posed = u, true
	s.publishLocked(u)
	s.mu.Unlock()
	return u, nil
}

// Pose returns the most recent pose. It fails with hand.ErrNoData before the
// first frame arrived.
func (s *Session) Pose() (pose.HandPose, error) {
	u, err := s.Latest()
	return u.Pose, err
}

// Latest returns the most recent update.
func (s *Session) Latest() (Update, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.posed {
		return Update{}, fmt.Errorf("no frame received from %s: %w", device.Name(s.dev), hand.ErrNoData)
	}
	return s.last, nil
}

// LatestFrame returns the most recent raw frame.
func (s *Session) LatestFrame() (device.Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest.Empty() {
		return device.Frame{}, fmt.Errorf("no frame received from %s: %w", device.Name(s.dev), hand.ErrNoData)
	}
	return s.latest.Clone(), nil
}

// Subscribe returns a channel receiving every update and a function that
// cancels the subscription. Updates are dropped for subscribers that fall
// behind.
func (s *Session) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) publishLocked(u Update) {
	for ch := range s.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
