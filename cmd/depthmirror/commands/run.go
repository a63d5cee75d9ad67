package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"depthmirror/internal/api"
	"depthmirror/internal/capture"
	"depthmirror/internal/config"
	"depthmirror/internal/logger"
	"depthmirror/internal/output"
	"depthmirror/internal/overlay"
	"depthmirror/internal/pipeline"
	"depthmirror/internal/pose"
)

var (
	playbackPath string
	recordOut    string
	modelPath    string
	serve        bool
	headless     bool
	colorNode    int
	depthNode    int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the capture and overlay pipeline",
	Long: `Run the live pipeline: pull synchronized color and depth frames, estimate
body pose on the color frame, and show the skeleton overlay next to a
false-color depth view. ESC in the preview window stops the pipeline.`,
	Example: `  # Live capture with the default camera nodes
  depthmirror run --model pose_landmark_full.onnx

  # Replay a recorded session in a loop
  depthmirror run --playback ./recordings/session-01

  # Record the annotated stream and expose the MJPEG preview
  depthmirror run --record-out annotated.mp4 --serve`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&playbackPath, "playback", "", "path to a recorded session to replay instead of live hardware")
	runCmd.Flags().StringVar(&recordOut, "record-out", "", "path to store the annotated output video")
	runCmd.Flags().StringVar(&modelPath, "model", "", "path to the ONNX pose landmark model (overrides config)")
	runCmd.Flags().BoolVar(&serve, "serve", false, "expose the MJPEG/websocket preview server")
	runCmd.Flags().BoolVar(&headless, "headless", false, "disable the desktop preview window")
	runCmd.Flags().IntVar(&colorNode, "color-node", 0, "capture node index for the color stream")
	runCmd.Flags().IntVar(&depthNode, "depth-node", 1, "capture node index for the depth stream")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	cfg := configMgr.Get()

	if viper.IsSet("server_port") && viper.GetInt("server_port") > 0 {
		cfg.ServerPort = viper.GetInt("server_port")
	}
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		cfg.LogLevel = viper.GetString("log_level")
	}
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("run")

	if playbackPath != "" {
		cfg.Capture.PlaybackPath = playbackPath
	}
	if modelPath != "" {
		cfg.ModelPath = modelPath
	}
	if cfg.ModelPath == "" {
		return fmt.Errorf("no pose model configured: set model_path in the config or pass --model")
	}

	var dev capture.Device
	if cfg.Capture.PlaybackPath != "" {
		dev = capture.NewPlaybackDevice(cfg.Capture.PlaybackPath)
	} else {
		dev = capture.NewCameraDevice(colorNode, depthNode)
	}

	estimator, err := pose.NewDNNEstimator(cfg.ModelPath, cfg.MinConfidence)
	if err != nil {
		return err
	}
	defer func() {
		if err := estimator.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to release pose model")
		}
	}()

	renderer := overlay.NewRenderer(cfg.Overlay)

	opts := pipeline.Options{Headless: headless}

	if recordOut != "" {
		if err := os.MkdirAll(filepath.Dir(recordOut), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		writer := output.NewVideoWriter(recordOut, float64(cfg.Capture.ColorStream.FPS))
		defer func() {
			if err := writer.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to finalize output video")
			}
		}()
		opts.Writer = writer
	}

	if serve {
		stream := output.NewMJPEGStream()
		if err := stream.Start(); err != nil {
			return err
		}
		defer stream.Stop()

		server := api.NewServer(cfg, stream)
		go func() {
			if err := server.Start(cfg.ServerPort); err != nil {
				log.Error().Err(err).Msg("Preview server failed")
			}
		}()
		opts.Stream = stream
		opts.Server = server
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Interrupt received, shutting down")
		cancel()
	}()

	driver := pipeline.NewDriver(cfg, dev, estimator, renderer, opts, log)
	return driver.Run(ctx)
}
