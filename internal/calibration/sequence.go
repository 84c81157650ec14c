package calibration

import (
	"fmt"
	"sync"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/handmodel"
	"github.com/ayusman/glovecore/internal/interp"
	"github.com/ayusman/glovecore/internal/pose"
	"github.com/ayusman/glovecore/internal/sensor"
)

// State is the phase of a guided calibration sequence.
type State uint8

const (
	StateIdle State = iota
	StateAwaitingStage
	StateCollectingStage
	StateFinalizing
	StateDone
	StateCancelled
)

var stateNames = [...]string{"idle", "awaiting_stage", "collecting_stage", "finalizing", "done", "cancelled"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stage is one prescribed pose of a sequence.
type Stage struct {
	Name        string
	Instruction string
	// Manual stages start collecting as soon as they are reached instead of
	// waiting for the pose to be held still.
	Manual bool
	// Target is the pose the wearer is asked to make.
	Target func(hand.Side) hand.HandAngles
}

// DefaultStages asks for an open hand, a fist and a thumbs up.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "open", Instruction: "Place your hand flat, fingers together, and hold still.", Target: hand.FlatHandAngles},
		{Name: "fist", Instruction: "Make a tight fist and hold still.", Target: hand.FistAngles},
		{Name: "thumbs_up", Instruction: "Keep the fist and stick your thumb up.", Target: hand.ThumbsUpAngles},
	}
}

// Progress is a snapshot of a sequence for display.
type Progress struct {
	State    State   `json:"state"`
	Stage    int     `json:"stage"`
	Stages   int     `json:"stages"`
	Samples  int     `json:"samples"`
	Stable   bool    `json:"stable"`
	Variance float64 `json:"variance"`
}

// Transition is a state change reported to OnTransition.
type Transition struct {
	From, To State
	Stage    int
}

// Sequence is a guided, multi-stage calibration:
//
//	Idle -> AwaitingStage(n) -> CollectingStage(n) -> AwaitingStage(n+1) | Finalizing -> Done
//
// with Cancelled reachable from every state but Done. One goroutine may feed
// frames while others read progress.
type Sequence struct {
	cfg    Config
	dev    device.Device
	stages []Stage

	state     State
	stage     int
	samples   int // collected in the current stage
	stable    bool
	variance  float64
	committed *sensor.Range // finished stages
	current   *sensor.Range // extrema of the stage in progress
	sealed    *sensor.Range
	points    []DataPoint
	latest    device.Frame
	detector  *StabilityDetector

	// OnTransition is called after every state change, outside the lock.
	OnTransition func(Transition)

	mu sync.Mutex
}

// NewSequence creates a sequence for a device. Nil or empty stages use
// DefaultStages.
func NewSequence(d device.Device, stages []Stage, cfg Config) (*Sequence, error) {
	if d == nil {
		return nil, fmt.Errorf("calibration sequence without device: %w", hand.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("calibration config: %v: %w", err, hand.ErrInvalidArgument)
	}
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	n := device.Channels(d)
	return &Sequence{
		cfg:       cfg,
		dev:       d,
		stages:    stages,
		committed: sensor.ForCalibration(n),
		current:   sensor.ForCalibration(n),
		detector:  NewStabilityDetector(cfg.StabilityWindow, cfg.VarianceThreshold, cfg.MinStableDuration),
	}, nil
}

// Device returns the device being calibrated.
func (s *Sequence) Device() device.Device {
	return s.dev
}

// State returns the current state.
func (s *Sequence) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Progress returns a snapshot of the sequence.
func (s *Sequence) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{
		State:    s.state,
		Stage:    s.stage,
		Stages:   len(s.stages),
		Samples:  s.samples,
		Stable:   s.stable,
		Variance: s.variance,
	}
}

// Start leaves Idle and waits for the first stage.
func (s *Sequence) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("start from %s: %w", st, ErrInvalidTransition)
	}
	var fired []Transition
	s.enterStage(0, &fired)
	s.mu.Unlock()
	s.notify(fired)
	return nil
}

// Feed processes one raw frame.
func (s *Sequence) Feed(frame device.Frame) error {
	return s.feed(frame, nil)
}

// FeedEstimate processes one raw frame together with the pose estimated for it.
func (s *Sequence) FeedEstimate(frame device.Frame, angles hand.HandAngles) error {
	return s.feed(frame, &angles)
}

func (s *Sequence) feed(frame device.Frame, angles *hand.HandAngles) error {
	if err := checkFrame(s.dev, frame); err != nil {
		return err
	}

	var fired []Transition
	s.mu.Lock()
	err := s.feedLocked(frame, angles, &fired)
	s.mu.Unlock()
	s.notify(fired)
	return err
}

func (s *Sequence) feedLocked(frame device.Frame, angles *hand.HandAngles, fired *[]Transition) error {
	switch s.state {
	case StateIdle, StateFinalizing, StateDone:
		return fmt.Errorf("feed in %s: %w", s.state, ErrInvalidTransition)
	case StateCancelled:
		return ErrCancelled
	}
	s.latest = frame.Clone()

	held, variance := s.detector.Add(frame.Values, frame.Time)
	s.stable, s.variance = held, variance

	if s.state == StateAwaitingStage {
		if !held {
			return nil
		}
		s.transition(StateCollectingStage, fired)
	}

	// Collecting: every frame widens the stage extrema.
	if err := s.current.ExpandToInclude(frame.Values); err != nil {
		return err
	}
	s.samples++
	s.points = appendBounded(s.points, newDataPoint(s.stage, s.stages[s.stage].Name, frame.Time, frame.Values, angles), s.cfg.MaxDataPoints)

	if s.cfg.AutoAdvanceSamples > 0 && s.samples >= s.cfg.AutoAdvanceSamples && s.samples >= s.cfg.MinSamplesPerStage {
		s.advanceLocked(fired)
	}
	return nil
}

// Trigger starts collecting the awaited stage without waiting for the pose
// to be held still.
func (s *Sequence) Trigger() error {
	var fired []Transition
	s.mu.Lock()
	if s.state != StateAwaitingStage {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("trigger in %s: %w", st, ErrInvalidTransition)
	}
	s.transition(StateCollectingStage, &fired)
	s.mu.Unlock()
	s.notify(fired)
	return nil
}

// Next completes the stage being collected and moves to the next stage, or
// finalizes after the last one. With too few samples it reports
// ErrInsufficientData and keeps collecting.
func (s *Sequence) Next() error {
	var fired []Transition
	s.mu.Lock()
	if s.state != StateCollectingStage {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("next in %s: %w", st, ErrInvalidTransition)
	}
	if s.samples < s.cfg.MinSamplesPerStage {
		stage, n := s.stage, s.samples
		s.mu.Unlock()
		return fmt.Errorf("stage %d has %d of %d samples: %w", stage, n, s.cfg.MinSamplesPerStage, hand.ErrInsufficientData)
	}
	s.advanceLocked(&fired)
	s.mu.Unlock()
	s.notify(fired)
	return nil
}

// advanceLocked commits the current stage and moves on.
func (s *Sequence) advanceLocked(fired *[]Transition) {
	// Range sizes always match, Merge cannot fail here.
	_ = s.committed.Merge(s.current)
	s.current = s.committed.ForCalibration()

	if s.stage+1 < len(s.stages) {
		s.enterStage(s.stage+1, fired)
		return
	}
	s.transition(StateFinalizing, fired)
	s.sealed = s.committed.Seal(s.cfg.NoiseFloor)
	s.transition(StateDone, fired)
}

func (s *Sequence) enterStage(n int, fired *[]Transition) {
	s.stage = n
	s.samples = 0
	s.stable = false
	s.detector.Reset()
	s.transition(StateAwaitingStage, fired)
	if s.stages[n].Manual {
		s.transition(StateCollectingStage, fired)
	}
}

func (s *Sequence) transition(to State, fired *[]Transition) {
	*fired = append(*fired, Transition{From: s.state, To: to, Stage: s.stage})
	s.state = to
}

func (s *Sequence) notify(fired []Transition) {
	if s.OnTransition == nil {
		return
	}
	for _, t := range fired {
		s.OnTransition(t)
	}
}

// Cancel stops the sequence. Extrema of the stage in progress are discarded;
// stages already completed are kept and available from CompletedRange.
func (s *Sequence) Cancel() error {
	var fired []Transition
	s.mu.Lock()
	if s.state == StateDone || s.state == StateCancelled {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("cancel in %s: %w", st, ErrInvalidTransition)
	}
	s.current = s.committed.ForCalibration()
	s.samples = 0
	s.transition(StateCancelled, &fired)
	s.mu.Unlock()
	s.notify(fired)
	return nil
}

// Result returns the sealed range once the sequence is done.
func (s *Sequence) Result() (*sensor.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateDone:
		return s.sealed.Clone(), nil
	case StateCancelled:
		return nil, ErrCancelled
	}
	return nil, fmt.Errorf("result in %s: %w", s.state, hand.ErrInsufficientData)
}

// CompletedRange returns the extrema of every completed stage.
func (s *Sequence) CompletedRange() *sensor.Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.committed.Clone()
}

// DataPoints returns a copy of the recorded data points.
func (s *Sequence) DataPoints() []DataPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DataPoint(nil), s.points...)
}

// Instruction returns what the wearer should do right now.
func (s *Sequence) Instruction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateIdle:
		return "Press start to begin calibration."
	case StateAwaitingStage:
		return s.stages[s.stage].Instruction
	case StateCollectingStage:
		return s.stages[s.stage].Instruction + " Move slightly until the stage completes."
	case StateDone:
		return "Calibration complete."
	case StateCancelled:
		return "Calibration cancelled."
	}
	return ""
}

// PreviewPose shows the wearer either the pose to make, while waiting for a
// stage, or the last frame posed with the range collected so far.
func (s *Sequence) PreviewPose(set *interp.Set, model *handmodel.Model) (pose.HandPose, error) {
	s.mu.Lock()
	state, stage, latest := s.state, s.stage, s.latest
	rng := s.committed.Clone()
	_ = rng.Merge(s.current)
	s.mu.Unlock()

	if state == StateAwaitingStage && s.stages[stage].Target != nil {
		return pose.FromAngles(model, s.stages[stage].Target(model.Side)), nil
	}
	return pose.Assembler{}.Assemble(latest, rng, set, model)
}

// checkFrame rejects frames that cannot be recorded for d: frames of another
// glove kind or hand, with the wrong channel count, or without a capture time.
// Stability and auto-end timers run on frame time.
func checkFrame(d device.Device, frame device.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if frame.Device.Kind() != d.Kind() || frame.Device.Side() != d.Side() {
		return fmt.Errorf("frame from %s fed to %s calibration: %w", device.Name(frame.Device), device.Name(d), hand.ErrInvalidArgument)
	}
	if got, want := len(frame.Values), device.Channels(d); got != want {
		return fmt.Errorf("frame has %d values, %s has %d channels: %w", got, device.Name(d), want, hand.ErrInvalidArgument)
	}
	if frame.Time.IsZero() {
		return fmt.Errorf("frame from %s has no capture time: %w", device.Name(d), hand.ErrInvalidArgument)
	}
	return nil
}
