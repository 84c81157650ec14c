// Package profile aggregates everything needed to turn one device's raw data
// into poses for one wearer.
package profile

import (
	"fmt"

	"github.com/ayusman/glovecore/internal/calibration"
	"github.com/ayusman/glovecore/internal/codec"
	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/handmodel"
	"github.com/ayusman/glovecore/internal/interp"
	"github.com/ayusman/glovecore/internal/pose"
	"github.com/ayusman/glovecore/internal/sensor"
)

// HandProfile pairs a wearer's hand geometry and interpolation curves with
// the calibrated sensor range of a device. A published profile is read-only.
type HandProfile struct {
	Side          hand.Side
	Device        device.Kind
	Range         *sensor.Range
	Interpolation *interp.Set
	Model         *handmodel.Model
}

// Default returns the factory profile of a device: its default raw range,
// default curves and the anthropometric hand model.
func Default(d device.Device) *HandProfile {
	return &HandProfile{
		Side:          d.Side(),
		Device:        d.Kind(),
		Range:         device.DefaultRange(d),
		Interpolation: interp.Default(d.Side()),
		Model:         handmodel.Default(d.Side()),
	}
}

// Compile builds a profile from a calibrated range. A nil model uses the
// default model for the device's side.
func Compile(d device.Device, rng *sensor.Range, model *handmodel.Model) (*HandProfile, error) {
	if rng == nil || rng.Len() != device.Channels(d) {
		return nil, fmt.Errorf("compile profile for %s: range does not match device: %w", device.Name(d), hand.ErrInvalidArgument)
	}
	p := Default(d)
	p.Range = rng.Clone()
	if model != nil {
		if model.Side != d.Side() {
			return nil, fmt.Errorf("compile profile: %s model for %s device: %w", model.Side, d.Side(), hand.ErrInvalidArgument)
		}
		p.Model = model
	}
	return p, nil
}

// CompileSequence builds a profile from a finished calibration sequence.
func CompileSequence(seq *calibration.Sequence, model *handmodel.Model) (*HandProfile, error) {
	rng, err := seq.Result()
	if err != nil {
		return nil, fmt.Errorf("compile profile: %w", err)
	}
	return Compile(seq.Device(), rng, model)
}

// CompileQuick builds a profile from the smoothed range of a quick calibration.
func CompileQuick(d device.Device, q *calibration.Quick, model *handmodel.Model) (*HandProfile, error) {
	rng, err := q.CompileRange()
	if err != nil {
		return nil, fmt.Errorf("compile profile: %w", err)
	}
	return Compile(d, rng, model)
}

// Validate reports an uncalibrated range and missing parts.
func (p *HandProfile) Validate() error {
	if p.Range == nil || p.Interpolation == nil || p.Model == nil {
		return fmt.Errorf("incomplete profile: %w", hand.ErrInvalidArgument)
	}
	return p.Range.Validate()
}

// WithRange returns a copy using another range.
func (p *HandProfile) WithRange(rng *sensor.Range) *HandProfile {
	out := *p
	out.Range = rng.Clone()
	return &out
}

// WithInterpolation returns a copy using another interpolation set.
func (p *HandProfile) WithInterpolation(set *interp.Set) *HandProfile {
	out := *p
	out.Interpolation = set
	return &out
}

// Assemble poses one frame with this profile.
func (p *HandProfile) Assemble(a pose.Assembler, frame device.Frame) (pose.HandPose, error) {
	return a.Assemble(frame, p.Range, p.Interpolation, p.Model)
}

// Equals compares two profiles within tol.
func (p *HandProfile) Equals(o *HandProfile, tol float32) bool {
	return p.Side == o.Side && p.Device == o.Device &&
		p.Range.Equals(o.Range, tol) &&
		p.Interpolation.Equals(o.Interpolation, tol) &&
		p.Model.Equals(o.Model, tol)
}

// Serialize renders the profile as [side,device,range,interpolation,model].
func (p *HandProfile) Serialize() string {
	return codec.Join(
		p.Side.String(),
		p.Device.String(),
		p.Range.Serialize(),
		p.Interpolation.Serialize(),
		p.Model.Serialize(),
	)
}

// Deserialize parses a record produced by Serialize.
func Deserialize(record string) (*HandProfile, error) {
	blocks, err := codec.Expect(record, 5)
	if err != nil {
		return nil, fmt.Errorf("hand profile: %w", err)
	}
	p := &HandProfile{}
	if p.Side, err = hand.ParseSide(blocks[0]); err != nil {
		return nil, fmt.Errorf("hand profile: %w", err)
	}
	if p.Device, err = device.ParseKind(blocks[1]); err != nil {
		return nil, fmt.Errorf("hand profile: %w", err)
	}
	if p.Range, err = sensor.Deserialize(blocks[2]); err != nil {
		return nil, fmt.Errorf("hand profile: %w", err)
	}
	if p.Interpolation, err = interp.Deserialize(blocks[3]); err != nil {
		return nil, fmt.Errorf("hand profile: %w", err)
	}
	if p.Model, err = handmodel.Deserialize(blocks[4]); err != nil {
		return nil, fmt.Errorf("hand profile: %w", err)
	}
	if p.Model.Side != p.Side {
		return nil, fmt.Errorf("%w: %s profile holds a %s model", codec.ErrMalformed, p.Side, p.Model.Side)
	}
	return p, nil
}
