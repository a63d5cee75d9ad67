package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"depthmirror/internal/config"
	"depthmirror/internal/logger"
)

const (
	playbackColorFile = "color.avi"
	playbackDepthFile = "depth.avi"
)

// PlaybackDevice replays a previously recorded capture session as if it were
// a live device. A recording is a directory holding paired color.avi and
// depth.avi streams captured at the same framerate; playback loops back to
// the first frame when the recording ends.
type PlaybackDevice struct {
	path  string
	color *gocv.VideoCapture
	depth *gocv.VideoCapture
}

// NewPlaybackDevice creates a playback device for the recording at path. The
// recording is not opened until Open.
func NewPlaybackDevice(path string) *PlaybackDevice {
	return &PlaybackDevice{path: path}
}

// Open opens both recorded streams.
func (d *PlaybackDevice) Open(cfg config.Capture) error {
	colorPath := filepath.Join(d.path, playbackColorFile)
	depthPath := filepath.Join(d.path, playbackDepthFile)
	for _, p := range []string{colorPath, depthPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("recording stream missing: %w", err)
		}
	}

	color, err := gocv.VideoCaptureFile(colorPath)
	if err != nil {
		return fmt.Errorf("failed to open color recording: %w", err)
	}
	depth, err := gocv.VideoCaptureFile(depthPath)
	if err != nil {
		color.Close()
		return fmt.Errorf("failed to open depth recording: %w", err)
	}
	// Keep the depth stream out of the BGR conversion path so 16-bit samples
	// survive decoding.
	depth.Set(gocv.VideoCaptureConvertRGB, 0)

	d.color = color
	d.depth = depth
	logger.WithComponent("capture").Info().
		Str("recording", d.path).
		Msg("Playback recording opened")
	return nil
}

// Close releases both recorded streams.
func (d *PlaybackDevice) Close() error {
	if d.color != nil {
		d.color.Close()
		d.color = nil
	}
	if d.depth != nil {
		d.depth.Close()
		d.depth = nil
	}
	return nil
}

// NextFrameSet reads the next recorded color and depth frames. When either
// stream reaches its end, both are rewound and playback restarts from the
// first frame.
func (d *PlaybackDevice) NextFrameSet() (FrameSet, error) {
	if d.color == nil || d.depth == nil {
		return FrameSet{}, fmt.Errorf("playback device not open")
	}

	color := gocv.NewMat()
	depth := gocv.NewMat()

	if !d.color.Read(&color) || !d.depth.Read(&depth) {
		// End of recording: rewind and retry once.
		d.color.Set(gocv.VideoCapturePosFrames, 0)
		d.depth.Set(gocv.VideoCapturePosFrames, 0)
		if !d.color.Read(&color) || !d.depth.Read(&depth) {
			color.Close()
			depth.Close()
			return FrameSet{}, fmt.Errorf("recording %s yielded no frames", d.path)
		}
	}

	return FrameSet{Color: color, Depth: ensureDepth16(depth)}, nil
}

// Name returns the backend name.
func (d *PlaybackDevice) Name() string {
	return "playback"
}

// ensureDepth16 normalizes a decoded depth frame to 16-bit single-channel.
// Recordings written with an 8-bit fallback codec come back as BGR; those are
// collapsed to grayscale and rescaled onto the 16-bit range. The input Mat is
// consumed.
func ensureDepth16(m gocv.Mat) gocv.Mat {
	if m.Type() == gocv.MatTypeCV16UC1 {
		return m
	}
	gray := m
	if m.Channels() == 3 {
		gray = gocv.NewMat()
		gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
		m.Close()
	}
	out := gocv.NewMat()
	gray.ConvertToWithParams(&out, gocv.MatTypeCV16UC1, 256, 0)
	gray.Close()
	return out
}
