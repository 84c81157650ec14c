package device

import (
	"fmt"

	"github.com/ayusman/glovecore/internal/hand"
)

// Binding routes one raw channel to one or more movements of a finger. Each
// movement evaluates the channel's normalized value through its own curve.
type Binding struct {
	Channel   int
	Finger    hand.Finger
	Movements []hand.Movement
}

func (b Binding) flexion() bool {
	for _, m := range b.Movements {
		if _, axis := m.Target(); axis != hand.AxisFlexion {
			return false
		}
	}
	return true
}

func bind(ch int, f hand.Finger, ms ...hand.Movement) Binding {
	return Binding{Channel: ch, Finger: f, Movements: ms}
}

var novaBindings = func() []Binding {
	b := []Binding{
		bind(0, hand.Thumb, hand.ThumbCmcAbduction, hand.ThumbCmcTwist),
		bind(1, hand.Thumb, hand.ThumbCmcFlexion, hand.ThumbMcpFlexion, hand.ThumbIpFlexion),
	}
	for f := hand.Index; f <= hand.Pinky; f++ {
		ch := 2 * int(f)
		b = append(b,
			bind(ch, f, hand.FingerMcpAbduction),
			bind(ch+1, f, hand.FingerMcpFlexion, hand.FingerPipFlexion, hand.FingerDipFlexion),
		)
	}
	return b
}()

var nova2Bindings = func() []Binding {
	b := []Binding{
		bind(0, hand.Thumb, hand.ThumbCmcAbduction, hand.ThumbCmcTwist),
		bind(1, hand.Thumb, hand.ThumbCmcFlexion, hand.ThumbMcpFlexion),
		bind(2, hand.Thumb, hand.ThumbIpFlexion),
	}
	for f := hand.Index; f <= hand.Pinky; f++ {
		ch := 3 * int(f)
		b = append(b,
			bind(ch, f, hand.FingerMcpAbduction),
			bind(ch+1, f, hand.FingerMcpFlexion),
			bind(ch+2, f, hand.FingerPipFlexion, hand.FingerDipFlexion),
		)
	}
	return b
}()

var senseGloveBindings = func() []Binding {
	b := []Binding{
		bind(0, hand.Thumb, hand.ThumbCmcTwist),
		bind(1, hand.Thumb, hand.ThumbCmcAbduction),
		bind(2, hand.Thumb, hand.ThumbCmcFlexion),
		bind(3, hand.Thumb, hand.ThumbMcpFlexion, hand.ThumbIpFlexion),
	}
	for f := hand.Index; f <= hand.Pinky; f++ {
		ch := 4 * int(f)
		b = append(b,
			bind(ch, f, hand.FingerMcpAbduction),
			bind(ch+1, f, hand.FingerMcpFlexion),
			bind(ch+2, f, hand.FingerPipFlexion),
			bind(ch+3, f, hand.FingerDipFlexion),
		)
	}
	return b
}()

func channelsOf(bindings []Binding) int {
	n := 0
	for _, b := range bindings {
		if b.Channel+1 > n {
			n = b.Channel + 1
		}
	}
	return n
}

// checkBindings rejects negative channels, foreign movements and movements
// driven by more than one channel.
func checkBindings(bindings []Binding) error {
	type key struct {
		f       hand.Finger
		thumb   bool
		ordinal int
	}
	seen := make(map[key]int)
	for _, b := range bindings {
		if b.Channel < 0 {
			return fmt.Errorf("negative channel %d: %w", b.Channel, hand.ErrInvalidArgument)
		}
		if len(b.Movements) == 0 {
			return fmt.Errorf("channel %d drives no movement: %w", b.Channel, hand.ErrInvalidArgument)
		}
		for _, m := range b.Movements {
			if err := hand.CheckMovement(b.Finger, m); err != nil {
				return fmt.Errorf("channel %d: %w", b.Channel, err)
			}
			k := key{b.Finger, m.Thumb(), m.Ordinal()}
			if prev, ok := seen[k]; ok {
				return fmt.Errorf("%s %s bound to channels %d and %d: %w", b.Finger, m, prev, b.Channel, hand.ErrInvalidArgument)
			}
			seen[k] = b.Channel
		}
	}
	return nil
}

// ParseBinding builds a binding from a finger name and movement names.
func ParseBinding(channel int, finger string, movements []string) (Binding, error) {
	f, err := hand.ParseFinger(finger)
	if err != nil {
		return Binding{}, err
	}
	b := Binding{Channel: channel, Finger: f}
	for _, name := range movements {
		m, err := hand.ParseMovement(f, name)
		if err != nil {
			return Binding{}, err
		}
		b.Movements = append(b.Movements, m)
	}
	return b, nil
}
