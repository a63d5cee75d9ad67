package capture

import (
	"errors"

	"gocv.io/x/gocv"

	"depthmirror/internal/config"
)

// ErrNotStarted is returned when frames are requested from a session that was
// never started.
var ErrNotStarted = errors.New("capture session not started")

// Device abstracts the frame source behind a Session: live depth-camera
// hardware or a recorded playback provider.
type Device interface {
	// Open claims the device and configures its streams: color as BGR8 and
	// depth as 16-bit single-channel, at the profiles in cfg.
	Open(cfg config.Capture) error

	// Close releases the device. Closing an unopened device is a no-op.
	Close() error

	// NextFrameSet blocks until the device delivers its next synchronized
	// frame set, bounded by the device's own timeout policy. A timeout or
	// hardware fault is returned as an error and is fatal to the session.
	// Either Mat in the returned set may be empty when that component was
	// dropped by the device.
	NextFrameSet() (FrameSet, error)

	// Name returns a human-readable name for this device backend.
	Name() string
}

// FrameSet is one raw delivery from a device. Both Mats are always valid; a
// dropped color or depth frame leaves the corresponding Mat empty.
type FrameSet struct {
	Color gocv.Mat
	Depth gocv.Mat
}

// Complete reports whether both components are present.
func (s FrameSet) Complete() bool {
	return !s.Color.Empty() && !s.Depth.Empty()
}

// Close releases both component Mats.
func (s *FrameSet) Close() {
	s.Color.Close()
	s.Depth.Close()
}

// FramePair is one synchronized color+depth pair handed to the consumer.
// Both Mats are always present; the consumer owns them and must Close the
// pair once done.
type FramePair struct {
	// Color is a BGR8 frame at the color stream resolution.
	Color gocv.Mat
	// Depth is a 16-bit single-channel frame. When alignment is enabled its
	// dimensions match the color frame.
	Depth gocv.Mat
}

// Close releases both frames.
func (p *FramePair) Close() {
	p.Color.Close()
	p.Depth.Close()
}
