package pose

// Landmark indices are a fixed contract owned by the landmark model. The
// overlay renderer depends on this exact indexing; change it here, not at the
// call sites, if the model ever changes its layout.
const (
	LandmarkNose          = 0
	LandmarkLeftEyeInner  = 1
	LandmarkLeftEye       = 2
	LandmarkLeftEyeOuter  = 3
	LandmarkRightEyeInner = 4
	LandmarkRightEye      = 5
	LandmarkRightEyeOuter = 6
	LandmarkLeftEar       = 7
	LandmarkRightEar      = 8
	LandmarkMouthLeft     = 9
	LandmarkMouthRight    = 10
	LandmarkLeftShoulder  = 11
	LandmarkRightShoulder = 12
	LandmarkLeftElbow     = 13
	LandmarkRightElbow    = 14
	LandmarkLeftWrist     = 15
	LandmarkRightWrist    = 16
	LandmarkLeftPinky     = 17
	LandmarkRightPinky    = 18
	LandmarkLeftIndex     = 19
	LandmarkRightIndex    = 20
	LandmarkLeftThumb     = 21
	LandmarkRightThumb    = 22
	LandmarkLeftHip       = 23
	LandmarkRightHip      = 24
	LandmarkLeftKnee      = 25
	LandmarkRightKnee     = 26
	LandmarkLeftAnkle     = 27
	LandmarkRightAnkle    = 28
	LandmarkLeftHeel      = 29
	LandmarkRightHeel     = 30
	LandmarkLeftFoot      = 31
	LandmarkRightFoot     = 32

	// NumLandmarks is the fixed cardinality of a full detection.
	NumLandmarks = 33
)

// coreLandmarks are the torso points whose mean visibility decides whether a
// body is considered present at all.
var coreLandmarks = []int{
	LandmarkLeftShoulder,
	LandmarkRightShoulder,
	LandmarkLeftHip,
	LandmarkRightHip,
}
