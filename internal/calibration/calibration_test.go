package calibration

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/glovecore/internal/codec"
	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/handmodel"
	"github.com/ayusman/glovecore/internal/interp"
	"github.com/ayusman/glovecore/internal/pose"
	"github.com/ayusman/glovecore/internal/sensor"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testGlove(t *testing.T) device.Custom {
	t.Helper()
	d, err := device.NewCustom("test", hand.Right, []device.Binding{
		{Channel: 0, Finger: hand.Index, Movements: []hand.Movement{hand.FingerMcpFlexion}},
		{Channel: 1, Finger: hand.Index, Movements: []hand.Movement{hand.FingerMcpAbduction}},
	}, nil)
	require.NoError(t, err)
	return d
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StabilityWindow = 3
	cfg.VarianceThreshold = 0.01
	cfg.MinStableDuration = 20 * time.Millisecond
	cfg.MinSamplesPerStage = 3
	cfg.NoiseFloor = 0.05
	return cfg
}

// feeder produces frames 10ms apart.
type feeder struct {
	d device.Device
	n int
}

func (f *feeder) frame(values ...float32) device.Frame {
	f.n++
	return device.Frame{Device: f.d, Values: values, Orientation: geom.Identity, Time: t0.Add(time.Duration(f.n) * 10 * time.Millisecond)}
}

func TestSequence_FullRun(t *testing.T) {
	d := testGlove(t)
	seq, err := NewSequence(d, nil, testConfig())
	require.NoError(t, err)

	var transitions []Transition
	seq.OnTransition = func(tr Transition) { transitions = append(transitions, tr) }
	f := &feeder{d: d}

	assert.Equal(t, StateIdle, seq.State())
	assert.ErrorIs(t, seq.Feed(f.frame(0, 0.5)), ErrInvalidTransition)
	require.NoError(t, seq.Start())
	assert.Equal(t, StateAwaitingStage, seq.State())
	assert.Equal(t, DefaultStages()[0].Instruction, seq.Instruction())

	// Moving hand: the stage does not start.
	for i := 0; i < 10; i++ {
		require.NoError(t, seq.Feed(f.frame(float32(i%2), 0.5)))
	}
	assert.Equal(t, StateAwaitingStage, seq.State())

	// Holding still starts collecting.
	for i := 0; i < 20 && seq.State() == StateAwaitingStage; i++ {
		require.NoError(t, seq.Feed(f.frame(0.1, 0.5)))
	}
	require.Equal(t, StateCollectingStage, seq.State())

	// Too few samples to finish.
	assert.ErrorIs(t, seq.Next(), hand.ErrInsufficientData)
	assert.Equal(t, StateCollectingStage, seq.State())

	for _, v := range []float32{0, 0.05, 0.1} {
		require.NoError(t, seq.Feed(f.frame(v, 0.5)))
	}
	require.NoError(t, seq.Next())
	assert.Equal(t, 1, seq.Progress().Stage)
	assert.Equal(t, StateAwaitingStage, seq.State())

	require.NoError(t, seq.Trigger())
	for i := 0; i < 3; i++ {
		require.NoError(t, seq.Feed(f.frame(0.9, 0.51)))
	}
	require.NoError(t, seq.Next())

	require.NoError(t, seq.Trigger())
	for i := 0; i < 3; i++ {
		require.NoError(t, seq.Feed(f.frame(0.5, 0.52)))
	}
	require.NoError(t, seq.Next())
	assert.Equal(t, StateDone, seq.State())

	rng, err := seq.Result()
	require.NoError(t, err)
	assert.Equal(t, sensor.Channel{Min: 0, Max: 0.9}, rng.Channels[0])
	assert.True(t, rng.Channels[1].Uncalibrated, "channel 1 moved less than the noise floor")
	assert.Equal(t, float32(sensor.Neutral), rng.Normalize(1, 0.51))

	require.GreaterOrEqual(t, len(transitions), 2)
	last := transitions[len(transitions)-2:]
	assert.Equal(t, Transition{From: StateCollectingStage, To: StateFinalizing, Stage: 2}, last[0])
	assert.Equal(t, Transition{From: StateFinalizing, To: StateDone, Stage: 2}, last[1])

	assert.ErrorIs(t, seq.Feed(f.frame(0, 0)), ErrInvalidTransition)
	assert.ErrorIs(t, seq.Cancel(), ErrInvalidTransition)
}

func manualStages() []Stage {
	return []Stage{
		{Name: "open", Manual: true, Target: hand.FlatHandAngles},
		{Name: "fist", Manual: true, Target: hand.FistAngles},
	}
}

func TestSequence_ManualStagesCollectImmediately(t *testing.T) {
	d := testGlove(t)
	seq, err := NewSequence(d, manualStages(), testConfig())
	require.NoError(t, err)

	require.NoError(t, seq.Start())
	assert.Equal(t, StateCollectingStage, seq.State())
	assert.ErrorIs(t, seq.Trigger(), ErrInvalidTransition)
}

func TestSequence_CancelKeepsCompletedStages(t *testing.T) {
	d := testGlove(t)
	seq, err := NewSequence(d, manualStages(), testConfig())
	require.NoError(t, err)
	f := &feeder{d: d}

	require.NoError(t, seq.Start())
	for _, v := range []float32{0.2, 0.3, 0.4} {
		require.NoError(t, seq.Feed(f.frame(v, 0.5)))
	}
	require.NoError(t, seq.Next())

	for _, v := range []float32{5, 6, 7} {
		require.NoError(t, seq.Feed(f.frame(v, 9)))
	}
	require.NoError(t, seq.Cancel())
	assert.Equal(t, StateCancelled, seq.State())

	completed := seq.CompletedRange()
	assert.Equal(t, sensor.Channel{Min: 0.2, Max: 0.4}, completed.Channels[0])
	assert.Equal(t, sensor.Channel{Min: 0.5, Max: 0.5}, completed.Channels[1])

	_, err = seq.Result()
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, seq.Feed(f.frame(1, 1)), ErrCancelled)
	assert.ErrorIs(t, seq.Cancel(), ErrInvalidTransition)
}

func TestSequence_AutoAdvance(t *testing.T) {
	d := testGlove(t)
	cfg := testConfig()
	cfg.AutoAdvanceSamples = 3
	seq, err := NewSequence(d, manualStages(), cfg)
	require.NoError(t, err)
	f := &feeder{d: d}

	require.NoError(t, seq.Start())
	for i := 0; i < 6; i++ {
		require.NoError(t, seq.Feed(f.frame(float32(i), float32(i)/2)))
	}
	assert.Equal(t, StateDone, seq.State())

	rng, err := seq.Result()
	require.NoError(t, err)
	assert.Equal(t, sensor.Channel{Min: 0, Max: 5}, rng.Channels[0])
	assert.Equal(t, sensor.Channel{Min: 0, Max: 2.5}, rng.Channels[1])
}

func TestSequence_DataPointBuffer(t *testing.T) {
	d := testGlove(t)
	cfg := testConfig()
	cfg.MaxDataPoints = 4
	seq, err := NewSequence(d, manualStages(), cfg)
	require.NoError(t, err)
	f := &feeder{d: d}

	require.NoError(t, seq.Start())
	for i := 0; i < 6; i++ {
		require.NoError(t, seq.FeedEstimate(f.frame(float32(i), 0), hand.IdleAngles(hand.Right)))
	}
	points := seq.DataPoints()
	require.Len(t, points, 4)
	assert.Equal(t, []float32{2, 0}, points[0].Values)
	assert.Equal(t, "open", points[0].Label)
	require.NotNil(t, points[0].Angles)
	assert.Equal(t, hand.IdleAngles(hand.Right), *points[0].Angles)
}

func TestSequence_RejectsWrongFrames(t *testing.T) {
	d := testGlove(t)
	seq, err := NewSequence(d, manualStages(), testConfig())
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	assert.ErrorIs(t, seq.Feed(device.Frame{}), hand.ErrNoData)
	assert.ErrorIs(t, seq.Feed(device.Frame{Device: d, Values: []float32{1}}), hand.ErrInvalidArgument)

	other := device.Frame{Device: device.Nova{Hand: hand.Right}, Values: make([]float32, 10)}
	assert.ErrorIs(t, seq.Feed(other), hand.ErrInvalidArgument)
}

// otherHand returns testGlove's bindings on the left hand.
func otherHand(t *testing.T, d device.Custom) device.Custom {
	t.Helper()
	left, err := device.NewCustom("test", hand.Left, d.Bindings, nil)
	require.NoError(t, err)
	return left
}

func TestSequence_RejectsOtherHandAndUntimedFrames(t *testing.T) {
	d := testGlove(t)
	seq, err := NewSequence(d, manualStages(), testConfig())
	require.NoError(t, err)
	require.NoError(t, seq.Start())
	require.NoError(t, seq.Trigger())

	f := &feeder{d: otherHand(t, d)}
	assert.ErrorIs(t, seq.Feed(f.frame(0.5, 0.5)), hand.ErrInvalidArgument, "same channel count, other hand")

	untimed := device.Frame{Device: d, Values: []float32{0.5, 0.5}, Orientation: geom.Identity}
	assert.ErrorIs(t, seq.Feed(untimed), hand.ErrInvalidArgument)

	assert.Empty(t, seq.DataPoints(), "rejected frames are not recorded")
}

func TestSequence_PreviewPose(t *testing.T) {
	d := testGlove(t)
	seq, err := NewSequence(d, nil, testConfig())
	require.NoError(t, err)
	model := handmodel.Default(hand.Right)
	set := interp.Default(hand.Right)

	require.NoError(t, seq.Start())
	p, err := seq.PreviewPose(set, model)
	require.NoError(t, err)
	assert.Equal(t, pose.FlatHand(model), p, "awaiting a stage previews its target")

	require.NoError(t, seq.Trigger())
	_, err = seq.PreviewPose(set, model)
	assert.ErrorIs(t, err, hand.ErrNoData, "no frame collected yet")

	f := &feeder{d: d}
	require.NoError(t, seq.Feed(f.frame(0, 0)))
	require.NoError(t, seq.Feed(f.frame(1, 1)))
	p, err = seq.PreviewPose(set, model)
	require.NoError(t, err)
	assert.InDelta(t, 90, p.Angles[hand.Index][0].Y, 1e-4)
}

func TestSequence_ConcurrentReaders(t *testing.T) {
	d := testGlove(t)
	cfg := testConfig()
	cfg.AutoAdvanceSamples = 50
	seq, err := NewSequence(d, manualStages(), cfg)
	require.NoError(t, err)
	require.NoError(t, seq.Start())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f := &feeder{d: d}
		for i := 0; i < 100; i++ {
			_ = seq.Feed(f.frame(float32(i%7), float32(i%3)))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			_ = seq.Progress()
			_ = seq.Instruction()
			_ = seq.CompletedRange()
		}
	}()
	wg.Wait()

	assert.Equal(t, StateDone, seq.State())
}

func TestDataPoint_LogLine(t *testing.T) {
	p := newDataPoint(1, "fist", time.UnixMilli(1500), []float32{0.5, 2}, nil)
	assert.Equal(t, "1\tfist\t1500\t0.5\t2", p.LogLine("\t"))
	assert.Equal(t, "1;fist;1500;0.5;2", p.LogLine(";"))

	angles := hand.FistAngles(hand.Right)
	angles[hand.Thumb][0] = geom.V(1.5, -2, 3)
	withPose := newDataPoint(0, "open", time.UnixMilli(20), []float32{7}, &angles)
	fields := strings.Split(withPose.LogLine(";"), ";")
	require.Len(t, fields, 4+hand.NumFingers*hand.JointsPerFinger)
	assert.Equal(t, []string{"0", "open", "20", "7", "[1.5,-2,3]"}, fields[:5])
	assert.Equal(t, codec.FormatVect(angles[hand.Pinky][2]), fields[len(fields)-1])
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.StabilityWindow = 1
	assert.Error(t, bad.Validate())

	_, err := NewSequence(testGlove(t), nil, bad)
	assert.ErrorIs(t, err, hand.ErrInvalidArgument)
}
