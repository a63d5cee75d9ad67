package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"depthmirror/internal/api"
	"depthmirror/internal/capture"
	"depthmirror/internal/config"
	"depthmirror/internal/output"
	"depthmirror/internal/overlay"
	"depthmirror/internal/pose"
)

const escKey = 27

// Driver wires the capture session, pose estimator and overlay renderer into
// the frame loop. It is thin glue: one pair is pulled, estimated, rendered
// and presented at a time on the calling goroutine; pacing comes entirely
// from the device's blocking frame wait.
type Driver struct {
	cfg       *config.Config
	dev       capture.Device
	estimator pose.Estimator
	renderer  *overlay.Renderer

	// Optional sinks; any of these may be nil.
	writer *output.VideoWriter
	stream *output.MJPEGStream
	server *api.Server

	headless bool
	log      *zerolog.Logger
}

// Options carries the optional sinks and display mode for a Driver.
type Options struct {
	Writer   *output.VideoWriter
	Stream   *output.MJPEGStream
	Server   *api.Server
	Headless bool
}

// NewDriver assembles a driver. The caller retains ownership of the device,
// estimator and sinks and is responsible for releasing them after Run
// returns.
func NewDriver(cfg *config.Config, dev capture.Device, estimator pose.Estimator, renderer *overlay.Renderer, opts Options, log *zerolog.Logger) *Driver {
	return &Driver{
		cfg:       cfg,
		dev:       dev,
		estimator: estimator,
		renderer:  renderer,
		writer:    opts.Writer,
		stream:    opts.Stream,
		server:    opts.Server,
		headless:  opts.Headless,
		log:       log,
	}
}

// Run executes the frame loop until ESC is pressed, the context is
// cancelled, or a fatal capture error occurs. The capture session is stopped
// exactly once on every exit path.
func (d *Driver) Run(ctx context.Context) error {
	return capture.WithSession(d.cfg.Capture, d.dev, func(session *capture.Session) error {
		frames, err := session.Frames()
		if err != nil {
			return err
		}

		var window *gocv.Window
		if !d.headless {
			window = gocv.NewWindow("depthmirror")
			defer window.Close()
		}

		for {
			select {
			case <-ctx.Done():
				d.log.Info().Msg("Pipeline cancelled")
				return nil
			default:
			}

			pair, err := frames.Next()
			if err != nil {
				return fmt.Errorf("capture failed: %w", err)
			}

			stop, err := d.process(pair, window)
			pair.Close()
			if err != nil {
				return err
			}
			if stop {
				d.log.Info().Msg("Exit requested")
				return nil
			}
		}
	})
}

// process handles a single frame pair: estimate, render, colorize, present.
// It reports stop=true when the user pressed ESC in the preview window.
func (d *Driver) process(pair capture.FramePair, window *gocv.Window) (bool, error) {
	res, err := d.estimator.Estimate(pair.Color)
	if err != nil {
		d.log.Warn().Err(err).Msg("Pose estimation failed for frame")
		res = nil
	}
	if d.server != nil {
		d.server.PublishPose(res)
	}

	annotated := d.renderer.Render(pair.Color, res)
	defer annotated.Close()

	if d.writer != nil {
		if err := d.writer.Write(annotated); err != nil {
			return false, err
		}
	}

	depthColor := overlay.ColorizeDepth(pair.Depth)
	defer depthColor.Close()
	combined := overlay.CombineViews(annotated, depthColor)
	defer combined.Close()

	if d.stream != nil && d.stream.IsRunning() {
		if err := d.stream.WriteFrame(combined); err != nil {
			d.log.Warn().Err(err).Msg("Failed to publish preview frame")
		}
	}

	if window != nil {
		window.IMShow(combined)
		if window.WaitKey(1) == escKey {
			return true, nil
		}
	}
	return false, nil
}
