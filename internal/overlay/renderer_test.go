package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"depthmirror/internal/config"
	"depthmirror/internal/pose"
)

func testStyle() config.Overlay {
	return config.Overlay{
		SkeletonColor: config.RGBA{G: 255, A: 255},
		JointColor:    config.RGBA{R: 255, G: 128, A: 255},
		LineThickness: 2,
		JointRadius:   4,
	}
}

func testFrame(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), h, w, gocv.MatTypeCV8UC3)
}

func fullResult(w, h int) *pose.Result {
	landmarks := make([]pose.Landmark, pose.NumLandmarks)
	for i := range landmarks {
		landmarks[i] = pose.Landmark{
			X:          0.2 + 0.01*float64(i),
			Y:          0.3 + 0.01*float64(i),
			Z:          -0.1,
			Visibility: 0.9,
		}
	}
	return &pose.Result{Landmarks: landmarks, ImageWidth: w, ImageHeight: h}
}

func TestRenderReturnsAnnotatedCopy(t *testing.T) {
	r := NewRenderer(testStyle())
	frame := testFrame(848, 480)
	defer frame.Close()
	before := frame.ToBytes()

	annotated := r.Render(frame, fullResult(848, 480))
	defer annotated.Close()

	assert.Equal(t, frame.Cols(), annotated.Cols())
	assert.Equal(t, frame.Rows(), annotated.Rows())
	assert.Equal(t, before, frame.ToBytes(), "input frame must not be mutated")
	assert.NotEqual(t, before, annotated.ToBytes(), "skeleton must be drawn on the copy")
}

func TestRenderNilPoseCopiesThrough(t *testing.T) {
	r := NewRenderer(testStyle())
	frame := testFrame(320, 240)
	defer frame.Close()

	annotated := r.Render(frame, nil)
	defer annotated.Close()

	assert.Equal(t, frame.ToBytes(), annotated.ToBytes())
}

func TestRenderSkipsOutOfRangeEdges(t *testing.T) {
	r := NewRenderer(testStyle())
	frame := testFrame(320, 240)
	defer frame.Close()

	// Only the first 13 landmarks: every edge referencing hips or legs must
	// be skipped without error.
	short := fullResult(320, 240)
	short.Landmarks = short.Landmarks[:13]

	require.NotPanics(t, func() {
		annotated := r.Render(frame, short)
		annotated.Close()
	})
}

func TestProjectTruncatesCoordinates(t *testing.T) {
	res := &pose.Result{
		Landmarks:   []pose.Landmark{{X: 0.999, Y: 0.999}},
		ImageWidth:  100,
		ImageHeight: 100,
	}
	points := project(res)
	require.Len(t, points, 1)
	assert.Equal(t, 99, points[0].X)
	assert.Equal(t, 99, points[0].Y)
}

func TestRenderSequenceTruncatesToShorter(t *testing.T) {
	r := NewRenderer(testStyle())

	frames := make(chan gocv.Mat, 5)
	mats := make([]gocv.Mat, 5)
	for i := range mats {
		mats[i] = testFrame(64, 48)
		frames <- mats[i]
	}
	close(frames)
	defer func() {
		for i := range mats {
			mats[i].Close()
		}
	}()

	poses := make(chan *pose.Result, 3)
	for i := 0; i < 3; i++ {
		poses <- nil
	}
	close(poses)

	var got []gocv.Mat
	for annotated := range r.RenderSequence(frames, poses) {
		got = append(got, annotated)
	}
	defer func() {
		for i := range got {
			got[i].Close()
		}
	}()

	assert.Len(t, got, 3)
}

func TestRenderSequencePassesNilPoseThrough(t *testing.T) {
	r := NewRenderer(testStyle())

	frame := testFrame(64, 48)
	defer frame.Close()

	frames := make(chan gocv.Mat, 2)
	frames <- frame
	frames <- frame
	close(frames)

	poses := make(chan *pose.Result, 2)
	poses <- nil
	poses <- fullResult(64, 48)
	close(poses)

	out := r.RenderSequence(frames, poses)

	first := <-out
	assert.Equal(t, frame.ToBytes(), first.ToBytes(), "nil pose must pass the frame through unannotated")
	first.Close()

	second := <-out
	assert.NotEqual(t, frame.ToBytes(), second.ToBytes())
	second.Close()

	_, open := <-out
	assert.False(t, open)
}

func TestColorizeDepth(t *testing.T) {
	depth := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1200, 0, 0, 0), 48, 64, gocv.MatTypeCV16UC1)
	defer depth.Close()

	colored := ColorizeDepth(depth)
	defer colored.Close()

	assert.Equal(t, depth.Cols(), colored.Cols())
	assert.Equal(t, depth.Rows(), colored.Rows())
	assert.Equal(t, gocv.MatTypeCV8UC3, colored.Type())
}

func TestCombineViews(t *testing.T) {
	left := testFrame(64, 48)
	defer left.Close()
	right := testFrame(64, 48)
	defer right.Close()

	combined := CombineViews(left, right)
	defer combined.Close()

	assert.Equal(t, 128, combined.Cols())
	assert.Equal(t, 48, combined.Rows())
}
