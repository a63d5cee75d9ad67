package capture

import (
	"fmt"

	"github.com/rs/zerolog"

	"depthmirror/internal/config"
	"depthmirror/internal/logger"
)

// Session owns a capture device and exposes its frames as a blocking,
// unbounded iterator of synchronized color+depth pairs. Lifecycle:
// constructed -> Start -> Frames -> Stop. Start and Stop are idempotent.
type Session struct {
	cfg     config.Capture
	dev     Device
	started bool
	log     *zerolog.Logger
}

// NewSession creates a session over the given device. The device is not
// opened until Start.
func NewSession(cfg config.Capture, dev Device) *Session {
	return &Session{
		cfg: cfg,
		dev: dev,
		log: logger.WithComponent("capture"),
	}
}

// Start opens the device and configures its streams. Calling Start on an
// already started session has no effect.
func (s *Session) Start() error {
	if s.started {
		return nil
	}
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	if err := s.dev.Open(s.cfg); err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}
	s.started = true
	s.log.Info().
		Str("device", s.dev.Name()).
		Int("color_width", s.cfg.ColorStream.Width).
		Int("color_height", s.cfg.ColorStream.Height).
		Int("color_fps", s.cfg.ColorStream.FPS).
		Bool("align_to_color", s.cfg.AlignToColor).
		Msg("Capture session started")
	return nil
}

// Stop releases the device. Calling Stop on a stopped session has no effect.
func (s *Session) Stop() error {
	if !s.started {
		return nil
	}
	s.started = false
	if err := s.dev.Close(); err != nil {
		return fmt.Errorf("failed to close capture device: %w", err)
	}
	s.log.Info().Str("device", s.dev.Name()).Msg("Capture session stopped")
	return nil
}

// Frames returns the frame iterator for this session. It fails with
// ErrNotStarted when the session has not been started.
func (s *Session) Frames() (*FrameIter, error) {
	if !s.started {
		return nil, ErrNotStarted
	}
	return &FrameIter{session: s}, nil
}

// FrameIter pulls synchronized frame pairs from a started session, one at a
// time. It is not safe for concurrent use.
type FrameIter struct {
	session *Session
}

// Next blocks until the next complete frame pair is available. Frame sets
// with a missing color or depth component are skipped without bound; device
// timeouts and hardware faults surface as errors and end the stream. The
// caller owns the returned pair and must Close it.
func (it *FrameIter) Next() (FramePair, error) {
	if !it.session.started {
		return FramePair{}, ErrNotStarted
	}
	for {
		set, err := it.session.dev.NextFrameSet()
		if err != nil {
			return FramePair{}, fmt.Errorf("failed to read frame set: %w", err)
		}
		if !set.Complete() {
			it.session.log.Debug().Msg("Dropping incomplete frame set")
			set.Close()
			continue
		}
		depth := set.Depth
		if it.session.cfg.AlignToColor {
			depth = alignDepthToColor(set.Depth, it.session.cfg.ColorStream)
			set.Depth.Close()
		}
		return FramePair{Color: set.Color, Depth: depth}, nil
	}
}

// WithSession runs fn against a started session and guarantees Stop runs
// exactly once on every exit path, including an error from fn or a panic
// below it. A Stop failure on an otherwise clean exit is returned; on an
// error path it is logged and the original error wins.
func WithSession(cfg config.Capture, dev Device, fn func(*Session) error) (err error) {
	s := NewSession(cfg, dev)
	if err := s.Start(); err != nil {
		return err
	}
	defer func() {
		if stopErr := s.Stop(); stopErr != nil {
			if err == nil {
				err = stopErr
			} else {
				s.log.Warn().Err(stopErr).Msg("Failed to stop capture session")
			}
		}
	}()
	return fn(s)
}
