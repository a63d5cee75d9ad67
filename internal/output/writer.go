package output

import (
	"fmt"

	"gocv.io/x/gocv"

	"depthmirror/internal/logger"
)

// VideoWriter records annotated frames to a standard video container. The
// underlying writer opens lazily on the first frame so the output dimensions
// always match what the pipeline actually produces.
type VideoWriter struct {
	path   string
	fps    float64
	writer *gocv.VideoWriter
	frames int
}

// NewVideoWriter creates a writer targeting path at the given framerate.
func NewVideoWriter(path string, fps float64) *VideoWriter {
	return &VideoWriter{path: path, fps: fps}
}

// Write appends one frame. The first call fixes the output dimensions.
func (w *VideoWriter) Write(frame gocv.Mat) error {
	if w.writer == nil {
		vw, err := gocv.VideoWriterFile(w.path, "mp4v", w.fps, frame.Cols(), frame.Rows(), true)
		if err != nil {
			return fmt.Errorf("failed to open output video %s: %w", w.path, err)
		}
		w.writer = vw
		logger.WithComponent("output").Info().
			Str("path", w.path).
			Int("width", frame.Cols()).
			Int("height", frame.Rows()).
			Float64("fps", w.fps).
			Msg("Output video opened")
	}
	if err := w.writer.Write(frame); err != nil {
		return fmt.Errorf("failed to write output frame: %w", err)
	}
	w.frames++
	return nil
}

// Close finalizes the container. Closing a writer that never received a
// frame is a no-op.
func (w *VideoWriter) Close() error {
	if w.writer == nil {
		return nil
	}
	err := w.writer.Close()
	w.writer = nil
	logger.WithComponent("output").Info().
		Str("path", w.path).
		Int("frames", w.frames).
		Msg("Output video closed")
	return err
}
