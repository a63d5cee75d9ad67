package capture

import (
	"fmt"

	"gocv.io/x/gocv"

	"depthmirror/internal/config"
	"depthmirror/internal/logger"
)

// CameraDevice captures from live depth-camera hardware exposing a color
// node and a depth node as separate capture devices. The color stream is
// negotiated as BGR8, the depth stream as raw 16-bit with the driver's BGR
// conversion disabled.
type CameraDevice struct {
	colorIndex int
	depthIndex int
	color      *gocv.VideoCapture
	depth      *gocv.VideoCapture
}

// NewCameraDevice creates a live device over the given capture node indices.
func NewCameraDevice(colorIndex, depthIndex int) *CameraDevice {
	return &CameraDevice{colorIndex: colorIndex, depthIndex: depthIndex}
}

// Open claims both capture nodes and negotiates the configured profiles.
func (d *CameraDevice) Open(cfg config.Capture) error {
	color, err := gocv.OpenVideoCapture(d.colorIndex)
	if err != nil {
		return fmt.Errorf("failed to open color node %d: %w", d.colorIndex, err)
	}
	applyProfile(color, cfg.ColorStream)

	depth, err := gocv.OpenVideoCapture(d.depthIndex)
	if err != nil {
		color.Close()
		return fmt.Errorf("failed to open depth node %d: %w", d.depthIndex, err)
	}
	applyProfile(depth, cfg.DepthStream)
	depth.Set(gocv.VideoCaptureConvertRGB, 0)

	d.color = color
	d.depth = depth
	logger.WithComponent("capture").Info().
		Int("color_node", d.colorIndex).
		Int("depth_node", d.depthIndex).
		Msg("Camera device opened")
	return nil
}

// Close releases both capture nodes.
func (d *CameraDevice) Close() error {
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

// NextFrameSet grabs one frame from each node. The reads block inside the
// driver up to its own timeout; a failed color or depth read is reported as
// an empty component, leaving the drop policy to the session.
func (d *CameraDevice) NextFrameSet() (FrameSet, error) {
	if d.color == nil || d.depth == nil {
		return FrameSet{}, fmt.Errorf("camera device not open")
	}

	// A failed read leaves the Mat valid but empty; the session decides
	// whether to drop the set.
	color := gocv.NewMat()
	d.color.Read(&color)
	depth := gocv.NewMat()
	d.depth.Read(&depth)

	if color.Empty() && depth.Empty() {
		color.Close()
		depth.Close()
		return FrameSet{}, fmt.Errorf("camera stopped delivering frames")
	}
	return FrameSet{Color: color, Depth: depth}, nil
}

// Name returns the backend name.
func (d *CameraDevice) Name() string {
	return "camera"
}

func applyProfile(vc *gocv.VideoCapture, p config.StreamProfile) {
	vc.Set(gocv.VideoCaptureFrameWidth, float64(p.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(p.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(p.FPS))
}
