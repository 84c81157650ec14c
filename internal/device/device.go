// Package device describes the glove models the core understands. A Device is
// a closed set of variants; callers dispatch on the concrete type.
package device

import (
	"fmt"
	"strings"

	"github.com/ayusman/glovecore/internal/hand"
	"github.com/ayusman/glovecore/internal/sensor"
)

// Kind identifies a device variant.
type Kind uint8

const (
	KindNova Kind = iota
	KindNova2
	KindSenseGlove
	KindCustom
)

var kindNames = [...]string{"nova", "nova2", "senseglove", "custom"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ParseKind resolves a device kind name.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if strings.EqualFold(s, n) {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown device kind %q: %w", s, hand.ErrInvalidArgument)
}

// Device is one of Nova, Nova2, SenseGlove or Custom.
type Device interface {
	Kind() Kind
	Side() hand.Side
	sealed()
}

// Nova is a soft glove with one flexion and one abduction sensor per finger.
type Nova struct {
	Hand hand.Side
}

// Nova2 adds a separate distal flexion sensor per finger.
type Nova2 struct {
	Hand hand.Side
}

// SenseGlove is the exoskeleton glove with four encoders per finger.
type SenseGlove struct {
	Hand hand.Side
}

// Custom is a device described entirely by its bindings.
type Custom struct {
	Name     string
	Hand     hand.Side
	Bindings []Binding
	// Range holds the raw default range; nil means [0,1] on every channel.
	Range *sensor.Range
}

func (Nova) Kind() Kind       { return KindNova }
func (Nova2) Kind() Kind      { return KindNova2 }
func (SenseGlove) Kind() Kind { return KindSenseGlove }
func (Custom) Kind() Kind     { return KindCustom }

func (d Nova) Side() hand.Side       { return d.Hand }
func (d Nova2) Side() hand.Side      { return d.Hand }
func (d SenseGlove) Side() hand.Side { return d.Hand }
func (d Custom) Side() hand.Side     { return d.Hand }

func (Nova) sealed()       {}
func (Nova2) sealed()      {}
func (SenseGlove) sealed() {}
func (Custom) sealed()     {}

// New returns a built-in device of the given kind. Custom devices are built
// with NewCustom.
func New(kind Kind, side hand.Side) (Device, error) {
	switch kind {
	case KindNova:
		return Nova{Hand: side}, nil
	case KindNova2:
		return Nova2{Hand: side}, nil
	case KindSenseGlove:
		return SenseGlove{Hand: side}, nil
	}
	return nil, fmt.Errorf("device kind %s needs explicit bindings: %w", kind, hand.ErrInvalidArgument)
}

// NewCustom validates bindings and returns a Custom device.
func NewCustom(name string, side hand.Side, bindings []Binding, raw *sensor.Range) (Custom, error) {
	d := Custom{Name: name, Hand: side, Bindings: bindings, Range: raw}
	if len(bindings) == 0 {
		return d, fmt.Errorf("custom device %q has no bindings: %w", name, hand.ErrInvalidArgument)
	}
	if err := checkBindings(bindings); err != nil {
		return d, fmt.Errorf("custom device %q: %w", name, err)
	}
	if raw != nil && raw.Len() != channelsOf(bindings) {
		return d, fmt.Errorf("custom device %q range has %d channels, bindings use %d: %w",
			name, raw.Len(), channelsOf(bindings), hand.ErrInvalidArgument)
	}
	return d, nil
}

// Name returns a display name such as "nova2 (left)".
func Name(d Device) string {
	if c, ok := d.(Custom); ok && c.Name != "" {
		return fmt.Sprintf("%s (%s)", c.Name, c.Hand)
	}
	return fmt.Sprintf("%s (%s)", d.Kind(), d.Side())
}

// Bindings returns how the device's channels drive hand movements.
func Bindings(d Device) []Binding {
	switch v := d.(type) {
	case Nova:
		return novaBindings
	case Nova2:
		return nova2Bindings
	case SenseGlove:
		return senseGloveBindings
	case Custom:
		return v.Bindings
	}
	return nil
}

// Channels returns the number of raw values in one frame of the device.
func Channels(d Device) int {
	return channelsOf(Bindings(d))
}

// DefaultRange returns the factory raw range of a device, used until the
// wearer has calibrated.
func DefaultRange(d Device) *sensor.Range {
	switch v := d.(type) {
	case Nova, Nova2:
		return rangeByRole(Bindings(d), [2]float32{0, 90}, [2]float32{-20, 20})
	case SenseGlove:
		return rangeByRole(Bindings(d), [2]float32{-60, 120}, [2]float32{-30, 30})
	case Custom:
		if v.Range != nil {
			return v.Range.Clone()
		}
		return sensor.New(Channels(v))
	}
	return nil
}

// rangeByRole assigns flex bounds to flexion channels and abd bounds to
// abduction and twist channels.
func rangeByRole(bindings []Binding, flex, abd [2]float32) *sensor.Range {
	r := sensor.New(channelsOf(bindings))
	for _, b := range bindings {
		bounds := flex
		if !b.flexion() {
			bounds = abd
		}
		r.Channels[b.Channel] = sensor.Channel{Min: bounds[0], Max: bounds[1]}
	}
	return r
}
