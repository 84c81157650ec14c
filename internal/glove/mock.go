package glove

import (
	"context"
	"io"
	"sync"

	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/geom"
)

// MockGlove is a test Source. It returns queued frames in order and io.EOF
// once the queue is drained.
type MockGlove struct {
	mu     sync.Mutex
	dev    device.Device
	frames []device.Frame
	err    error
	closed bool
}

// NewMockGlove creates a mock glove for d.
func NewMockGlove(d device.Device) *MockGlove {
	return &MockGlove{dev: d}
}

// Push queues frames.
func (m *MockGlove) Push(frames ...device.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, frames...)
}

// PushValues queues one frame per value vector, stamped with the current time.
func (m *MockGlove) PushValues(values ...[]float32) {
	for _, v := range values {
		m.Push(device.NewFrame(m.dev, v, geom.Identity))
	}
}

// SetError sets the error returned by the next call to Next.
func (m *MockGlove) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Pending returns the number of queued frames.
func (m *MockGlove) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

func (m *MockGlove) Device() device.Device {
	return m.dev
}

// Next returns the oldest queued frame.
func (m *MockGlove) Next(ctx context.Context) (device.Frame, error) {
	if err := ctx.Err(); err != nil {
		return device.Frame{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return device.Frame{}, ErrClosed
	}
	if m.err != nil {
		err := m.err
		m.err = nil
		return device.Frame{}, err
	}
	if len(m.frames) == 0 {
		return device.Frame{}, io.EOF
	}
	f := m.frames[0]
	m.frames = m.frames[1:]
	return f, nil
}

// Close is idempotent.
func (m *MockGlove) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
