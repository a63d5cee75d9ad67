package pose

// Landmark is a single body keypoint. X and Y are normalized [0,1] relative
// to the image the result was computed against; Z is normalized relative to
// the model's depth reference; Visibility is the model's confidence that the
// point is visible in frame.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Result bundles the landmarks detected on one frame together with the
// dimensions of the image they were computed against. A nil *Result means no
// body was detected.
type Result struct {
	Landmarks   []Landmark `json:"landmarks"`
	ImageWidth  int        `json:"image_width"`
	ImageHeight int        `json:"image_height"`
}
