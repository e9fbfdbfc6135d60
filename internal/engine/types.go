// Package engine turns a frame of facial landmarks into a bounded
// pose/expression descriptor and a 2D render transform for overlay compositing.
package engine

// MouthShape is the categorical mouth state.
type MouthShape string

const (
	MouthOpen    MouthShape = "open"
	MouthSmile   MouthShape = "smile"
	MouthNeutral MouthShape = "neutral"
)

// Expression is the categorical expression class.
type Expression string

const (
	ExpressionSurprised Expression = "surprised"
	ExpressionHappy     Expression = "happy"
	ExpressionNeutral   Expression = "neutral"
	ExpressionTalking   Expression = "talking"
)

// Head is the head pose. Rotations are in degrees, position in pixels.
type Head struct {
	RotationX float64 `json:"rotationX" msgpack:"rotationX"` // pitch
	RotationY float64 `json:"rotationY" msgpack:"rotationY"` // yaw
	RotationZ float64 `json:"rotationZ" msgpack:"rotationZ"` // roll, always 0
	PositionX float64 `json:"positionX" msgpack:"positionX"`
	PositionY float64 `json:"positionY" msgpack:"positionY"`
}

// Mouth describes mouth activity. Openness and Smile are in [0,1].
type Mouth struct {
	Openness float64    `json:"openness" msgpack:"openness"`
	Smile    float64    `json:"smile" msgpack:"smile"`
	Shape    MouthShape `json:"shape" msgpack:"shape"`
}

// Eye describes one eye. Openness is in [0,1], positions in [-1,1].
type Eye struct {
	Openness  float64 `json:"openness" msgpack:"openness"`
	PositionX float64 `json:"positionX" msgpack:"positionX"`
	PositionY float64 `json:"positionY" msgpack:"positionY"`
}

// Eyes holds both eyes and the blink flag.
type Eyes struct {
	Left  Eye  `json:"left" msgpack:"left"`
	Right Eye  `json:"right" msgpack:"right"`
	Blink bool `json:"blink" msgpack:"blink"`
}

// Descriptor is the normalized pose/expression summary of one frame.
// It is built once per frame and never mutated afterwards.
type Descriptor struct {
	Head       Head       `json:"head" msgpack:"head"`
	Mouth      Mouth      `json:"mouth" msgpack:"mouth"`
	Eyes       Eyes       `json:"eyes" msgpack:"eyes"`
	Expression Expression `json:"expression" msgpack:"expression"`
	Timestamp  int64      `json:"timestamp" msgpack:"timestamp"`
	FrameID    uint64     `json:"frameId" msgpack:"frameId"`
}

// Vec2 is a 2D offset in pixels.
type Vec2 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// Vec3 is a rotation triple in degrees.
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Filter is a brightness/contrast pair; (1,1) is identity.
type Filter struct {
	Brightness float64 `json:"brightness" yaml:"brightness" msgpack:"brightness"`
	Contrast   float64 `json:"contrast" yaml:"contrast" msgpack:"contrast"`
}

// MouthClip is an elliptical mouth cutout in percent of the overlay box.
// A disabled clip passes the whole image through.
type MouthClip struct {
	Enabled bool    `json:"enabled" msgpack:"enabled"`
	RadiusX float64 `json:"radiusX" msgpack:"radiusX"`
	RadiusY float64 `json:"radiusY" msgpack:"radiusY"`
	CenterY float64 `json:"centerY" msgpack:"centerY"`
}

// RenderTransform is what the client applies to the still image.
type RenderTransform struct {
	Translate Vec2      `json:"translate" msgpack:"translate"`
	Rotate    Vec3      `json:"rotate" msgpack:"rotate"`
	Filter    Filter    `json:"filter" msgpack:"filter"`
	MouthClip MouthClip `json:"mouthClip" msgpack:"mouthClip"`
	FilterCSS string    `json:"filterCss" msgpack:"filterCss"`
	ClipPath  string    `json:"clipPath" msgpack:"clipPath"`
}

// Result bundles everything a one-shot caller needs from a single frame.
type Result struct {
	Transform  RenderTransform `json:"transform"`
	Expression Expression      `json:"expression"`
	Descriptor Descriptor      `json:"detailedData"`
	Timestamp  int64           `json:"timestamp"`
}
