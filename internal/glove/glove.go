// Package glove provides sources of raw sensor frames.
package glove

import (
	"context"
	"errors"

	"github.com/ayusman/glovecore/internal/device"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("glove source closed")

// Source is anything that delivers raw frames of one device over time.
type Source interface {
	// Device returns the device the frames belong to.
	Device() device.Device

	// Next blocks until the next frame is available or ctx is done.
	Next(ctx context.Context) (device.Frame, error)

	// Close releases the source.
	Close() error
}
