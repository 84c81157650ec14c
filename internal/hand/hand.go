// Package hand defines the anatomical vocabulary shared by the glove pipeline:
// fingers, the two movement domains, joint indices and the error kinds.
package hand

import (
	"encoding/json"
	"fmt"
)

// Finger identifies one of the five digits, from thumb to pinky.
type Finger uint8

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
	NumFingers = 5
)

// Fingers lists all fingers in pipeline order.
var Fingers = [NumFingers]Finger{Thumb, Index, Middle, Ring, Pinky}

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

func (f Finger) String() string {
	if int(f) < NumFingers {
		return fingerNames[f]
	}
	return fmt.Sprintf("finger(%d)", f)
}

// Valid reports whether f names an existing finger.
func (f Finger) Valid() bool {
	return int(f) < NumFingers
}

// ParseFinger resolves a finger name such as "index".
func ParseFinger(name string) (Finger, error) {
	for _, f := range Fingers {
		if f.String() == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown finger %q: %w", name, ErrInvalidArgument)
}

// Joints and positions per finger. A finger has three articulated joints
// (MCP, PIP, DIP or CMC, MCP, IP for the thumb) and one extra fingertip position.
const (
	JointsPerFinger    = 3
	PositionsPerFinger = JointsPerFinger + 1
)

// Hand joint indices following the MediaPipe landmark convention, used when a
// pose is flattened into a single landmark array.
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// LandmarkIndex returns the flattened landmark index of a finger position
// (0..PositionsPerFinger-1).
func LandmarkIndex(f Finger, position int) int {
	return 1 + int(f)*PositionsPerFinger + position
}

// Side is the handedness of a glove, model or pose.
type Side uint8

const (
	Right Side = iota
	Left
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// IsRight reports whether s is the right hand.
func (s Side) IsRight() bool {
	return s == Right
}

// ParseSide converts "left"/"right" (any case of the first letter) into a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "right", "Right", "R", "r":
		return Right, nil
	case "left", "Left", "L", "l":
		return Left, nil
	}
	return Right, fmt.Errorf("unknown hand side %q: %w", s, ErrInvalidArgument)
}

// MarshalJSON encodes the side as "left" or "right".
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes "left" or "right".
func (s *Side) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseSide(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
