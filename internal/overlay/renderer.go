package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"depthmirror/internal/config"
	"depthmirror/internal/pose"
)

// skeletonEdges is the fixed set of landmark-index pairs drawn as the body
// skeleton. Indices follow the pose package's landmark contract.
var skeletonEdges = [][2]int{
	{pose.LandmarkLeftShoulder, pose.LandmarkRightShoulder},
	{pose.LandmarkRightShoulder, pose.LandmarkRightElbow},
	{pose.LandmarkRightElbow, pose.LandmarkRightWrist},
	{pose.LandmarkLeftShoulder, pose.LandmarkLeftElbow},
	{pose.LandmarkLeftElbow, pose.LandmarkLeftWrist},
	{pose.LandmarkLeftShoulder, pose.LandmarkLeftHip},
	{pose.LandmarkRightShoulder, pose.LandmarkRightHip},
	{pose.LandmarkLeftHip, pose.LandmarkLeftKnee},
	{pose.LandmarkLeftKnee, pose.LandmarkLeftAnkle},
	{pose.LandmarkRightHip, pose.LandmarkRightKnee},
	{pose.LandmarkRightKnee, pose.LandmarkRightAnkle},
}

// Renderer draws pose skeletons onto color frames. It carries no mutable
// state between calls; one instance can render any number of frames.
type Renderer struct {
	skeleton  color.RGBA
	joints    color.RGBA
	thickness int
	radius    int
}

// NewRenderer creates a renderer with the given overlay style.
func NewRenderer(style config.Overlay) *Renderer {
	return &Renderer{
		skeleton:  color.RGBA{R: style.SkeletonColor.R, G: style.SkeletonColor.G, B: style.SkeletonColor.B, A: style.SkeletonColor.A},
		joints:    color.RGBA{R: style.JointColor.R, G: style.JointColor.G, B: style.JointColor.B, A: style.JointColor.A},
		thickness: style.LineThickness,
		radius:    style.JointRadius,
	}
}

// Render returns a copy of frame annotated with the skeleton for res. The
// input frame is never modified. Edges are drawn first so joints sit on top.
// A nil result yields a plain copy. Edges referencing a landmark index beyond
// the available landmarks are skipped.
func (r *Renderer) Render(frame gocv.Mat, res *pose.Result) gocv.Mat {
	annotated := frame.Clone()
	if res == nil {
		return annotated
	}

	points := project(res)
	for _, edge := range skeletonEdges {
		if edge[0] >= len(points) || edge[1] >= len(points) {
			continue
		}
		gocv.Line(&annotated, points[edge[0]], points[edge[1]], r.skeleton, r.thickness)
	}
	for _, pt := range points {
		gocv.Circle(&annotated, pt, r.radius, r.joints, -1)
	}
	return annotated
}

// RenderSequence annotates two synchronized streams pairwise and stops when
// either input closes. A nil pose passes the frame through as an unannotated
// copy. Input frames remain owned by the producer; every output Mat is a new
// allocation owned by the consumer.
func (r *Renderer) RenderSequence(frames <-chan gocv.Mat, poses <-chan *pose.Result) <-chan gocv.Mat {
	out := make(chan gocv.Mat)
	go func() {
		defer close(out)
		for frame := range frames {
			res, ok := <-poses
			if !ok {
				return
			}
			out <- r.Render(frame, res)
		}
	}()
	return out
}

// project converts normalized landmark coordinates to pixel positions against
// the dimensions recorded in the result, truncating to integers.
func project(res *pose.Result) []image.Point {
	points := make([]image.Point, len(res.Landmarks))
	for i, lm := range res.Landmarks {
		points[i] = image.Pt(
			int(lm.X*float64(res.ImageWidth)),
			int(lm.Y*float64(res.ImageHeight)),
		)
	}
	return points
}

// depthScale compresses 16-bit depth values into the 8-bit range before
// colormapping, matching a roughly 8.5m usable range.
const depthScale = 0.03

// ColorizeDepth renders a 16-bit depth frame as a false-color BGR image
// using the Jet colormap. The input is not modified.
func ColorizeDepth(depth gocv.Mat) gocv.Mat {
	scaled := gocv.NewMat()
	depth.ConvertToWithParams(&scaled, gocv.MatTypeCV8U, depthScale, 0)
	colored := gocv.NewMat()
	gocv.ApplyColorMap(scaled, &colored, gocv.ColormapJet)
	scaled.Close()
	return colored
}

// CombineViews concatenates the annotated color frame and the colorized
// depth frame side by side for preview and recording.
func CombineViews(annotated, depthColor gocv.Mat) gocv.Mat {
	combined := gocv.NewMat()
	gocv.Hconcat(annotated, depthColor, &combined)
	return combined
}
