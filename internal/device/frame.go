package device

import (
	"fmt"
	"time"

	"github.com/ayusman/glovecore/internal/geom"
	"github.com/ayusman/glovecore/internal/hand"
)

// Frame is one instant of raw sensor data from a device.
type Frame struct {
	Device Device
	Values []float32
	// Orientation is the IMU rotation of the hand, identity when the device
	// has no IMU.
	Orientation geom.Quat
	Time        time.Time
}

// NewFrame returns a frame stamped with the current time.
func NewFrame(d Device, values []float32, orientation geom.Quat) Frame {
	return Frame{Device: d, Values: values, Orientation: orientation, Time: time.Now()}
}

// Empty reports whether the frame carries no sensor values.
func (f Frame) Empty() bool {
	return f.Device == nil || len(f.Values) == 0
}

// Validate checks that the frame has one value per device channel.
func (f Frame) Validate() error {
	if f.Empty() {
		return fmt.Errorf("empty frame: %w", hand.ErrNoData)
	}
	if want := Channels(f.Device); len(f.Values) != want {
		return fmt.Errorf("%s frame has %d values, want %d: %w", Name(f.Device), len(f.Values), want, hand.ErrInvalidArgument)
	}
	return nil
}

// Clone returns a frame that does not share its value slice.
func (f Frame) Clone() Frame {
	f.Values = append([]float32(nil), f.Values...)
	return f
}
