package engine

// Head pose
const (
	// YawScale converts the eye-midpoint to nose horizontal offset into degrees.
	YawScale = 200.0
	// PitchScale converts the nose-to-chin span deviation into degrees.
	PitchScale = 150.0
	// PitchNeutralSpan is the nose-to-chin vertical span of a level head.
	PitchNeutralSpan = 0.18

	MaxPitch = 15.0
	MaxYaw   = 20.0

	// PositionScale converts the nose offset from frame centre into pixels.
	PositionScale = 100.0
)

// Mouth
const (
	// MinMouthWidth guards the openness division.
	MinMouthWidth = 1e-6

	SmileScale = 10.0
	// SmileNeutralGap is how far the cheek sits above the mouth corner at rest.
	SmileNeutralGap = 0.08

	MouthOpenShapeThreshold = 0.3
	SmileShapeThreshold     = 0.4
)

// Eyes
const (
	// EyeOpenScale is the eyelid gap that counts as a fully open eye.
	EyeOpenScale = 0.03
	// BlinkThreshold applies to raw, unclamped openness.
	BlinkThreshold   = 0.2
	EyePositionScale = 2.5
)

// Expression classification
const (
	SurprisedOpenness  = 0.6
	HappySmile         = 0.5
	NeutralSmileCeil   = 0.2
	NeutralOpennessMax = 0.1
)

// Mouth cutout, in percent of the overlay box
const (
	MouthClipMinOpenness  = 0.1
	MouthClipBaseRadiusX  = 12.0
	MouthClipSmileWiden   = 0.3
	MouthClipRadiusYScale = 20.0
	MouthClipCenterY      = 72.0
)
