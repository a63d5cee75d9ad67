package capture

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"depthmirror/internal/config"
)

func testCapture() config.Capture {
	return config.Capture{
		ColorStream: config.StreamProfile{Width: 848, Height: 480, FPS: 30},
		DepthStream: config.StreamProfile{Width: 848, Height: 480, FPS: 30},
	}
}

// fakeDevice replays a scripted list of frame set deliveries.
type fakeDevice struct {
	opens    int
	closes   int
	script   []func() (FrameSet, error)
	position int
}

func (d *fakeDevice) Open(cfg config.Capture) error {
	d.opens++
	return nil
}

func (d *fakeDevice) Close() error {
	d.closes++
	return nil
}

func (d *fakeDevice) NextFrameSet() (FrameSet, error) {
	if d.position >= len(d.script) {
		return FrameSet{}, errors.New("script exhausted")
	}
	next := d.script[d.position]
	d.position++
	return next()
}

func (d *fakeDevice) Name() string { return "fake" }

func completeSet(w, h int) func() (FrameSet, error) {
	return func() (FrameSet, error) {
		return FrameSet{
			Color: gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3),
			Depth: gocv.NewMatWithSize(h, w, gocv.MatTypeCV16UC1),
		}, nil
	}
}

func missingDepthSet(w, h int) func() (FrameSet, error) {
	return func() (FrameSet, error) {
		return FrameSet{
			Color: gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3),
			Depth: gocv.NewMat(),
		}, nil
	}
}

func TestFramesBeforeStart(t *testing.T) {
	s := NewSession(testCapture(), &fakeDevice{})
	_, err := s.Frames()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	dev := &fakeDevice{}
	s := NewSession(testCapture(), dev)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Equal(t, 1, dev.opens)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.Equal(t, 1, dev.closes)
}

func TestStartRejectsInvalidProfile(t *testing.T) {
	cfg := testCapture()
	cfg.DepthStream.FPS = 0
	s := NewSession(cfg, &fakeDevice{})
	assert.Error(t, s.Start())
}

func TestNextSkipsIncompleteSets(t *testing.T) {
	dev := &fakeDevice{script: []func() (FrameSet, error){
		missingDepthSet(848, 480),
		missingDepthSet(848, 480),
		completeSet(848, 480),
	}}
	s := NewSession(testCapture(), dev)
	require.NoError(t, s.Start())
	defer s.Stop()

	frames, err := s.Frames()
	require.NoError(t, err)

	pair, err := frames.Next()
	require.NoError(t, err)
	defer pair.Close()

	assert.False(t, pair.Color.Empty())
	assert.False(t, pair.Depth.Empty())
	assert.Equal(t, 3, dev.position)
}

func TestNextYieldsEveryCompletePair(t *testing.T) {
	const total = 10
	script := make([]func() (FrameSet, error), total)
	for i := range script {
		script[i] = completeSet(848, 480)
	}
	dev := &fakeDevice{script: script}
	s := NewSession(testCapture(), dev)
	require.NoError(t, s.Start())
	defer s.Stop()

	frames, err := s.Frames()
	require.NoError(t, err)

	for i := 0; i < total; i++ {
		pair, err := frames.Next()
		require.NoError(t, err, "pair %d", i)
		assert.Equal(t, 848, pair.Color.Cols())
		assert.Equal(t, 480, pair.Color.Rows())
		pair.Close()
	}
	_, err = frames.Next()
	assert.Error(t, err)
}

func TestNextPropagatesDeviceError(t *testing.T) {
	dev := &fakeDevice{script: []func() (FrameSet, error){
		func() (FrameSet, error) { return FrameSet{}, errors.New("frame wait timed out") },
	}}
	s := NewSession(testCapture(), dev)
	require.NoError(t, s.Start())
	defer s.Stop()

	frames, err := s.Frames()
	require.NoError(t, err)

	_, err = frames.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestAlignmentReprojectsDepthToColor(t *testing.T) {
	cfg := testCapture()
	cfg.AlignToColor = true
	cfg.DepthStream = config.StreamProfile{Width: 424, Height: 240, FPS: 30}

	dev := &fakeDevice{script: []func() (FrameSet, error){
		func() (FrameSet, error) {
			return FrameSet{
				Color: gocv.NewMatWithSize(480, 848, gocv.MatTypeCV8UC3),
				Depth: gocv.NewMatWithSize(240, 424, gocv.MatTypeCV16UC1),
			}, nil
		},
	}}
	s := NewSession(cfg, dev)
	require.NoError(t, s.Start())
	defer s.Stop()

	frames, err := s.Frames()
	require.NoError(t, err)

	pair, err := frames.Next()
	require.NoError(t, err)
	defer pair.Close()

	assert.Equal(t, 848, pair.Depth.Cols())
	assert.Equal(t, 480, pair.Depth.Rows())
	assert.Equal(t, gocv.MatTypeCV16UC1, pair.Depth.Type())
}

func TestNoAlignmentKeepsDepthResolution(t *testing.T) {
	cfg := testCapture()
	cfg.AlignToColor = false
	cfg.DepthStream = config.StreamProfile{Width: 424, Height: 240, FPS: 30}

	dev := &fakeDevice{script: []func() (FrameSet, error){
		func() (FrameSet, error) {
			return FrameSet{
				Color: gocv.NewMatWithSize(480, 848, gocv.MatTypeCV8UC3),
				Depth: gocv.NewMatWithSize(240, 424, gocv.MatTypeCV16UC1),
			}, nil
		},
	}}
	s := NewSession(cfg, dev)
	require.NoError(t, s.Start())
	defer s.Stop()

	frames, err := s.Frames()
	require.NoError(t, err)

	pair, err := frames.Next()
	require.NoError(t, err)
	defer pair.Close()

	assert.Equal(t, 424, pair.Depth.Cols())
	assert.Equal(t, 240, pair.Depth.Rows())
}

func TestWithSessionStopsOnError(t *testing.T) {
	dev := &fakeDevice{}
	wantErr := errors.New("boom")

	err := WithSession(testCapture(), dev, func(s *Session) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, dev.closes)
}

func TestWithSessionStopsOnPanic(t *testing.T) {
	dev := &fakeDevice{}

	require.Panics(t, func() {
		WithSession(testCapture(), dev, func(s *Session) error {
			panic("frame handler exploded")
		})
	})
	assert.Equal(t, 1, dev.closes)
}

func TestWithSessionStopsExactlyOnce(t *testing.T) {
	dev := &fakeDevice{}

	err := WithSession(testCapture(), dev, func(s *Session) error {
		// An explicit Stop inside the scope must not double-release.
		return s.Stop()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, dev.closes)
}
