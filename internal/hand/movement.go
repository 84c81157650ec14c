package hand

import "fmt"

// Axis is one component of a joint's angle triplet.
type Axis uint8

const (
	// AxisTwist is the rotation around the bone (pronation / supination).
	AxisTwist Axis = iota
	// AxisFlexion is the rotation that curls the finger.
	AxisFlexion
	// AxisAbduction is the sideways spreading rotation.
	AxisAbduction
)

// Movement is an anatomical movement of a single joint. It is implemented only
// by FingerMovement and ThumbMovement: the thumb has its own movement set and
// the two are never interchangeable.
type Movement interface {
	// Thumb reports whether the movement belongs to the thumb domain.
	Thumb() bool
	// Ordinal is the movement's position inside its own domain.
	Ordinal() int
	// Target returns the joint (0 = proximal) and angle axis the movement drives.
	Target() (joint int, axis Axis)
	String() string
}

// FingerMovement enumerates movements of the index, middle, ring and pinky fingers.
type FingerMovement uint8

const (
	FingerMcpFlexion FingerMovement = iota
	FingerMcpAbduction
	FingerPipFlexion
	FingerDipFlexion
	NumFingerMovements = 4
)

// FingerMovements lists all finger movements in order.
var FingerMovements = [NumFingerMovements]FingerMovement{
	FingerMcpFlexion, FingerMcpAbduction, FingerPipFlexion, FingerDipFlexion,
}

var fingerMovementNames = [NumFingerMovements]string{
	"mcp_flexion", "mcp_abduction", "pip_flexion", "dip_flexion",
}

func (m FingerMovement) Thumb() bool  { return false }
func (m FingerMovement) Ordinal() int { return int(m) }

func (m FingerMovement) Target() (int, Axis) {
	switch m {
	case FingerMcpAbduction:
		return 0, AxisAbduction
	case FingerPipFlexion:
		return 1, AxisFlexion
	case FingerDipFlexion:
		return 2, AxisFlexion
	default:
		return 0, AxisFlexion
	}
}

func (m FingerMovement) String() string {
	if int(m) < NumFingerMovements {
		return fingerMovementNames[m]
	}
	return fmt.Sprintf("finger_movement(%d)", m)
}

// ThumbMovement enumerates movements of the thumb.
type ThumbMovement uint8

const (
	ThumbCmcTwist ThumbMovement = iota
	ThumbCmcFlexion
	ThumbCmcAbduction
	ThumbMcpFlexion
	ThumbIpFlexion
	NumThumbMovements = 5
)

// ThumbMovements lists all thumb movements in order.
var ThumbMovements = [NumThumbMovements]ThumbMovement{
	ThumbCmcTwist, ThumbCmcFlexion, ThumbCmcAbduction, ThumbMcpFlexion, ThumbIpFlexion,
}

var thumbMovementNames = [NumThumbMovements]string{
	"cmc_twist", "cmc_flexion", "cmc_abduction", "mcp_flexion", "ip_flexion",
}

func (m ThumbMovement) Thumb() bool  { return true }
func (m ThumbMovement) Ordinal() int { return int(m) }

func (m ThumbMovement) Target() (int, Axis) {
	switch m {
	case ThumbCmcTwist:
		return 0, AxisTwist
	case ThumbCmcAbduction:
		return 0, AxisAbduction
	case ThumbMcpFlexion:
		return 1, AxisFlexion
	case ThumbIpFlexion:
		return 2, AxisFlexion
	default:
		return 0, AxisFlexion
	}
}

func (m ThumbMovement) String() string {
	if int(m) < NumThumbMovements {
		return thumbMovementNames[m]
	}
	return fmt.Sprintf("thumb_movement(%d)", m)
}

// CheckMovement verifies that m is a valid movement of finger f.
func CheckMovement(f Finger, m Movement) error {
	if !f.Valid() {
		return fmt.Errorf("finger %d: %w", f, ErrInvalidArgument)
	}
	if m == nil {
		return fmt.Errorf("%s: nil movement: %w", f, ErrInvalidArgument)
	}
	if m.Thumb() != (f == Thumb) {
		return fmt.Errorf("movement %s does not apply to the %s: %w", m, f, ErrInvalidArgument)
	}
	limit := NumFingerMovements
	if m.Thumb() {
		limit = NumThumbMovements
	}
	if m.Ordinal() < 0 || m.Ordinal() >= limit {
		return fmt.Errorf("%s movement %d: %w", f, m.Ordinal(), ErrInvalidArgument)
	}
	return nil
}

// MovementsOf returns the movement set of a finger.
func MovementsOf(f Finger) []Movement {
	if f == Thumb {
		out := make([]Movement, NumThumbMovements)
		for i, m := range ThumbMovements {
			out[i] = m
		}
		return out
	}
	out := make([]Movement, NumFingerMovements)
	for i, m := range FingerMovements {
		out[i] = m
	}
	return out
}

// ParseMovement resolves a movement name within the domain of finger f.
func ParseMovement(f Finger, name string) (Movement, error) {
	for _, m := range MovementsOf(f) {
		if m.String() == name {
			return m, nil
		}
	}
	return nil, fmt.Errorf("unknown %s movement %q: %w", f, name, ErrInvalidArgument)
}
