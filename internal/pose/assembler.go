package pose

import (
	"fmt"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/handmodel"
	"github.com/ayusman/glovecore/internal/interp"
	"github.com/ayusman/glovecore/internal/kinematics"
	"github.com/ayusman/glovecore/internal/sensor"
)

// Assembler turns raw frames into hand poses. It keeps no state between calls
// and may be shared between goroutines.
type Assembler struct {
	// ClampToLimits restricts joint angles to the anatomical range of motion
	// after interpolation.
	ClampToLimits bool
}

// Assemble normalizes every bound channel of frame, interpolates the driven
// movements and solves the hand model. Movements without a channel stay at 0.
func (a Assembler) Assemble(frame device.Frame, rng *sensor.Range, set *interp.Set, model *handmodel.Model) (HandPose, error) {
	if frame.Empty() {
		return HandPose{}, fmt.Errorf("assemble pose: %w", hand.ErrNoData)
	}
	if rng == nil || set == nil || model == nil {
		return HandPose{}, fmt.Errorf("assemble pose: missing range, interpolation or model: %w", hand.ErrInvalidArgument)
	}
	if err := frame.Validate(); err != nil {
		return HandPose{}, fmt.Errorf("assemble pose: %w", err)
	}
	if rng.Len() != len(frame.Values) {
		return HandPose{}, fmt.Errorf("assemble pose: range has %d channels, frame %d: %w",
			rng.Len(), len(frame.Values), hand.ErrInvalidArgument)
	}
	if model.Side != frame.Device.Side() {
		return HandPose{}, fmt.Errorf("assemble pose: %s model for %s device: %w",
			model.Side, frame.Device.Side(), hand.ErrInvalidArgument)
	}

	angles, err := Angles(frame, rng, set)
	if err != nil {
		return HandPose{}, err
	}
	if a.ClampToLimits {
		angles = clampAngles(model.Side, angles)
	}

	p := FromAngles(model, angles)
	if frame.Orientation != (geom.Quat{}) {
		p.Orientation = frame.Orientation.Normalized()
	}
	return p, nil
}

// Angles interpolates the joint angles driven by a frame without solving
// kinematics.
func Angles(frame device.Frame, rng *sensor.Range, set *interp.Set) (hand.HandAngles, error) {
	var angles hand.HandAngles
	for _, b := range device.Bindings(frame.Device) {
		input := rng.Normalize(b.Channel, frame.Values[b.Channel])
		for _, m := range b.Movements {
			deg, err := set.GetAngle(b.Finger, m, input)
			if err != nil {
				return angles, fmt.Errorf("assemble pose: %w", err)
			}
			joint, axis := m.Target()
			angles[b.Finger][joint] = hand.WithComponent(angles[b.Finger][joint], axis, deg)
		}
	}
	return angles, nil
}

func clampAngles(side hand.Side, angles hand.HandAngles) hand.HandAngles {
	for _, f := range hand.Fingers {
		for j := range angles[f] {
			angles[f][j] = hand.ClampJointAngle(side, f, j, angles[f][j])
		}
	}
	return angles
}

// FromAngles solves model for the given joint angles. Normalized flexion is
// the summed flexion of each finger over the model's full flexion reference.
func FromAngles(model *handmodel.Model, angles hand.HandAngles) HandPose {
	p := HandPose{
		Side:        model.Side,
		Angles:      angles,
		Orientation: geom.Identity,
	}
	chains := kinematics.Hand(model, angles)
	for _, f := range hand.Fingers {
		p.Positions[f] = chains[f].Positions
		p.Rotations[f] = chains[f].Rotations
		p.Flexion[f] = hand.NormalizeFlexion(angles.FlexionSum(f), model.Fingers[f].FlexionReference())
	}
	return p
}

// FlatHand is the open hand with every joint at 0 degrees.
func FlatHand(model *handmodel.Model) HandPose {
	return FromAngles(model, hand.FlatHandAngles(model.Side))
}

// Fist is the hand with every joint at full flexion.
func Fist(model *handmodel.Model) HandPose {
	return FromAngles(model, hand.FistAngles(model.Side))
}

// ThumbsUp is a fist with the thumb extended.
func ThumbsUp(model *handmodel.Model) HandPose {
	return FromAngles(model, hand.ThumbsUpAngles(model.Side))
}

// Idle is the relaxed resting hand.
func Idle(model *handmodel.Model) HandPose {
	return FromAngles(model, hand.IdleAngles(model.Side))
}
