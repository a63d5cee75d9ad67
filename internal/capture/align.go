package capture

import (
	"image"

	"gocv.io/x/gocv"

	"depthmirror/internal/config"
)

// alignDepthToColor reprojects a depth frame into the color stream's
// viewpoint and resolution. Nearest-neighbor interpolation keeps the 16-bit
// depth values intact instead of blending neighboring distances. The input
// Mat is left untouched; the caller releases it.
func alignDepthToColor(depth gocv.Mat, color config.StreamProfile) gocv.Mat {
	if depth.Cols() == color.Width && depth.Rows() == color.Height {
		return depth.Clone()
	}
	aligned := gocv.NewMat()
	gocv.Resize(depth, &aligned, image.Pt(color.Width, color.Height), 0, 0, gocv.InterpolationNearestNeighbor)
	return aligned
}
