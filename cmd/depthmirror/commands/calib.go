package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"depthmirror/internal/calib"
)

var calibCmd = &cobra.Command{
	Use:   "calib",
	Short: "Inspect and copy camera calibration archives",
}

var calibShowCmd = &cobra.Command{
	Use:   "show <archive>",
	Short: "Print the matrices stored in a calibration archive",
	Example: `  depthmirror calib show camera.calib
  depthmirror calib show ~/.config/depthmirror/camera.calib`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := calib.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("camera_matrix:\n%v\n\n", mat.Formatted(data.CameraMatrix, mat.Prefix(""), mat.Squeeze()))
		fmt.Printf("distortion_coeffs:\n%v\n\n", mat.Formatted(data.DistortionCoeffs.T(), mat.Prefix(""), mat.Squeeze()))
		if data.Extrinsics != nil {
			fmt.Printf("extrinsics:\n%v\n", mat.Formatted(data.Extrinsics, mat.Prefix(""), mat.Squeeze()))
		} else {
			fmt.Println("extrinsics: (absent)")
		}
		return nil
	},
}

var calibCopyCmd = &cobra.Command{
	Use:   "copy <src> <dst>",
	Short: "Re-encode a calibration archive at a new path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := calib.Load(args[0])
		if err != nil {
			return err
		}
		if err := calib.Save(data, args[1]); err != nil {
			return err
		}
		fmt.Printf("copied %s -> %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	calibCmd.AddCommand(calibShowCmd)
	calibCmd.AddCommand(calibCopyCmd)
	rootCmd.AddCommand(calibCmd)
}
