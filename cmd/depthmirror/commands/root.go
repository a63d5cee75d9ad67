package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "depthmirror",
		Short: "depthmirror - RGB-D capture with live body-pose overlay",
		Long: `depthmirror reads synchronized color and depth video from a depth camera
(live or from a recorded session), estimates body pose landmarks on the color
frame, and presents the skeleton overlay next to a false-color depth view.

Features:
  • Live depth-camera capture or looped playback of recordings
  • Body pose landmarks via an ONNX landmark model
  • Skeleton overlay composited with a colorized depth view
  • Optional recording of the annotated stream
  • Optional MJPEG/websocket preview server
  • Calibration archive tooling`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/depthmirror/config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "preview server port (default is 8080)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path.
func GetConfigFile() string {
	return cfgFile
}
