package pose

import (
	"fmt"
	"image"
	"math"
	"os"

	"gocv.io/x/gocv"

	"depthmirror/internal/logger"
)

// Estimator turns one BGR color frame into zero or one pose result. A nil
// result with a nil error means no body was detected. Implementations must
// not mutate the input frame.
type Estimator interface {
	Estimate(frame gocv.Mat) (*Result, error)
	Close() error
}

// modelInputSize is the square input resolution of the landmark model.
const modelInputSize = 256

// landmarkValues is the number of floats the model emits per landmark:
// x, y, z in input-pixel units plus visibility and presence logits.
const landmarkValues = 5

// DNNEstimator runs an ONNX body-landmark model through the gocv DNN module.
type DNNEstimator struct {
	net           gocv.Net
	minConfidence float64
	closed        bool
}

// NewDNNEstimator loads the landmark model from modelPath. A missing or
// unloadable model is an error; the pipeline cannot proceed without it.
func NewDNNEstimator(modelPath string, minConfidence float64) (*DNNEstimator, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("pose model unavailable: %w", err)
	}
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("pose model unavailable: failed to load network from %s", modelPath)
	}
	logger.WithComponent("pose").Info().
		Str("model", modelPath).
		Float64("min_confidence", minConfidence).
		Msg("Pose landmark model loaded")
	return &DNNEstimator{net: net, minConfidence: minConfidence}, nil
}

// Estimate runs the landmark model on one BGR frame. The frame is converted
// to the RGB ordering the model expects; the input Mat is never modified.
func (e *DNNEstimator) Estimate(frame gocv.Mat) (*Result, error) {
	if e.closed {
		panic("pose: estimator used after Close")
	}
	if frame.Empty() {
		return nil, fmt.Errorf("cannot estimate pose on empty frame")
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(frame, &rgb, gocv.ColorBGRToRGB)
	defer rgb.Close()

	blob := gocv.BlobFromImage(rgb, 1.0/255.0,
		image.Pt(modelInputSize, modelInputSize), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read model output: %w", err)
	}

	landmarks := decodeLandmarks(data)
	if len(landmarks) == 0 || !bodyPresent(landmarks, e.minConfidence) {
		return nil, nil
	}
	return &Result{
		Landmarks:   landmarks,
		ImageWidth:  frame.Cols(),
		ImageHeight: frame.Rows(),
	}, nil
}

// Close releases the model. Estimate must not be called afterwards.
func (e *DNNEstimator) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.net.Close()
}

// decodeLandmarks converts the model's raw output tensor into normalized
// landmarks. The tensor carries landmarkValues floats per point with x, y, z
// in input-pixel units and the visibility score as a raw logit.
func decodeLandmarks(data []float32) []Landmark {
	count := len(data) / landmarkValues
	if count > NumLandmarks {
		count = NumLandmarks
	}
	landmarks := make([]Landmark, 0, count)
	for i := 0; i < count; i++ {
		base := i * landmarkValues
		landmarks = append(landmarks, Landmark{
			X:          float64(data[base]) / modelInputSize,
			Y:          float64(data[base+1]) / modelInputSize,
			Z:          float64(data[base+2]) / modelInputSize,
			Visibility: sigmoid(float64(data[base+3])),
		})
	}
	return landmarks
}

// bodyPresent decides whether the decoded landmarks describe an actual body:
// the mean visibility of the torso landmarks must clear the threshold.
func bodyPresent(landmarks []Landmark, minConfidence float64) bool {
	var sum float64
	for _, idx := range coreLandmarks {
		if idx >= len(landmarks) {
			return false
		}
		sum += landmarks[idx].Visibility
	}
	return sum/float64(len(coreLandmarks)) >= minConfidence
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// EstimateAll streams one result per input frame, in input order. The
// returned channel is unbuffered, so estimation never runs ahead of the
// consumer; it closes when the input channel does. Frames are not mutated
// and remain owned by the producer.
func EstimateAll(e Estimator, frames <-chan gocv.Mat) <-chan *Result {
	results := make(chan *Result)
	go func() {
		defer close(results)
		log := logger.WithComponent("pose")
		for frame := range frames {
			res, err := e.Estimate(frame)
			if err != nil {
				log.Warn().Err(err).Msg("Pose estimation failed, passing empty result")
				res = nil
			}
			results <- res
		}
	}()
	return results
}
