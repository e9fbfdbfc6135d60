package engine

import (
	"maps"
	"math"
	"sync/atomic"
	"time"

	"github.com/kozaktomas/face-animator/internal/landmarks"
)

// Engine converts landmark frames into descriptors and render transforms.
// The only mutable state is the frame counter, so one Engine can be shared by
// every connection of a server.
type Engine struct {
	frameID atomic.Uint64
	now     func() time.Time
	filters FilterTable
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for descriptor timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithFilters replaces the expression filter table. Neutral always stays identity.
func WithFilters(t FilterTable) Option {
	return func(e *Engine) {
		if len(t) == 0 {
			return
		}
		filters := maps.Clone(t)
		filters[ExpressionNeutral] = IdentityFilter
		e.filters = filters
	}
}

// New creates an Engine with the built-in filter table and the wall clock.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:     time.Now,
		filters: DefaultFilters(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reset zeroes the frame counter.
func (e *Engine) Reset() {
	e.frameID.Store(0)
}

// LastFrameID returns the most recently issued frame id (0 if none).
func (e *Engine) LastFrameID() uint64 {
	return e.frameID.Load()
}

// NeutralDescriptor returns the fallback descriptor used for absent or
// unusable frames, stamped with the given id and timestamp.
func NeutralDescriptor(frameID uint64, timestamp int64) Descriptor {
	return Descriptor{
		Mouth: Mouth{Shape: MouthNeutral},
		Eyes: Eyes{
			Left:  Eye{Openness: 1},
			Right: Eye{Openness: 1},
		},
		Expression: ExpressionNeutral,
		Timestamp:  timestamp,
		FrameID:    frameID,
	}
}

// ComputeDescriptor never fails. A nil or empty frame, or any panic while
// measuring, yields the neutral descriptor. Every call consumes exactly one
// frame id.
func (e *Engine) ComputeDescriptor(f *landmarks.Frame) (d Descriptor) {
	id := e.frameID.Add(1)
	ts := e.now().UnixMilli()

	defer func() {
		if r := recover(); r != nil {
			d = NeutralDescriptor(id, ts)
		}
	}()

	if f.Empty() {
		return NeutralDescriptor(id, ts)
	}

	d = Descriptor{
		Head:      measureHead(f),
		Mouth:     measureMouth(f),
		Eyes:      measureEyes(f),
		Timestamp: ts,
		FrameID:   id,
	}
	d.Expression = Classify(d.Mouth.Openness, d.Mouth.Smile, d.Eyes.Blink)
	return d
}

// ComputeRenderTransform is a pure function of the descriptor and the
// engine's fixed filter table.
func (e *Engine) ComputeRenderTransform(d Descriptor) RenderTransform {
	filter := e.filters.Lookup(d.Expression)
	clip := mouthClip(d.Mouth)
	return RenderTransform{
		Translate: Vec2{X: d.Head.PositionX, Y: d.Head.PositionY},
		Rotate:    Vec3{X: d.Head.RotationX, Y: d.Head.RotationY, Z: d.Head.RotationZ},
		Filter:    filter,
		MouthClip: clip,
		FilterCSS: filter.CSS(),
		ClipPath:  clip.CSS(),
	}
}

// Animate runs both stages for callers that do not stream.
func (e *Engine) Animate(f *landmarks.Frame) Result {
	d := e.ComputeDescriptor(f)
	return Result{
		Transform:  e.ComputeRenderTransform(d),
		Expression: d.Expression,
		Descriptor: d,
		Timestamp:  d.Timestamp,
	}
}

// Classify applies the ordered expression rules. Earlier rules win.
func Classify(openness, smile float64, blink bool) Expression {
	switch {
	case openness > SurprisedOpenness:
		return ExpressionSurprised
	case smile > HappySmile:
		return ExpressionHappy
	case smile < NeutralSmileCeil && blink:
		return ExpressionNeutral
	case openness < NeutralOpennessMax:
		return ExpressionNeutral
	default:
		return ExpressionTalking
	}
}

func measureHead(f *landmarks.Frame) Head {
	var h Head

	nose, ok := point(f, landmarks.NoseTip)
	if !ok {
		return h
	}

	h.PositionX = finite((nose.X - 0.5) * PositionScale)
	h.PositionY = finite((nose.Y - 0.5) * PositionScale)

	left, okL := midpoint(f, landmarks.LeftEyeOuter, landmarks.LeftEyeInner)
	right, okR := midpoint(f, landmarks.RightEyeOuter, landmarks.RightEyeInner)
	if okL && okR {
		eyeMidX := (left.X + right.X) / 2
		h.RotationY = clamp((eyeMidX-nose.X)*YawScale, -MaxYaw, MaxYaw)
	}

	if chin, ok := point(f, landmarks.Chin); ok {
		h.RotationX = clamp(((chin.Y-nose.Y)-PitchNeutralSpan)*PitchScale, -MaxPitch, MaxPitch)
	}

	return h
}

func measureMouth(f *landmarks.Frame) Mouth {
	m := Mouth{Shape: MouthNeutral}

	height, okH := distance(f, landmarks.MouthTop, landmarks.MouthBottom)
	width, okW := distance(f, landmarks.MouthLeft, landmarks.MouthRight)
	if okH && okW && width > MinMouthWidth {
		m.Openness = clamp(height/width, 0, 1)
	}

	var lift float64
	for _, side := range [][2]int{
		{landmarks.LeftCheek, landmarks.MouthLeft},
		{landmarks.RightCheek, landmarks.MouthRight},
	} {
		cheek, ok := point(f, side[0])
		if !ok {
			continue
		}
		corner, ok := point(f, side[1])
		if !ok {
			continue
		}
		lift += ((cheek.Y - corner.Y) + SmileNeutralGap) * SmileScale
	}
	m.Smile = clamp(lift/2, 0, 1)

	switch {
	case m.Openness > MouthOpenShapeThreshold:
		m.Shape = MouthOpen
	case m.Smile > SmileShapeThreshold:
		m.Shape = MouthSmile
	}
	return m
}

// eyeState measures one eye and returns its raw openness alongside.
// measured is false when the eyelids are missing; such an eye reads as open.
func eyeState(f *landmarks.Frame, upper, lower, outer, inner int) (eye Eye, raw float64, measured bool) {
	eye.Openness = 1

	up, okU := point(f, upper)
	low, okL := point(f, lower)
	if okU && okL {
		raw = math.Abs(up.Y-low.Y) / EyeOpenScale
		eye.Openness = clamp(raw, 0, 1)
		measured = !math.IsNaN(raw)
	}

	nose, okN := point(f, landmarks.NoseTip)
	center, okC := midpoint(f, outer, inner)
	if okN && okC {
		eye.PositionX = clamp((center.X-nose.X)*EyePositionScale, -1, 1)
		eye.PositionY = clamp((center.Y-nose.Y)*EyePositionScale, -1, 1)
	}
	return eye, raw, measured
}

func measureEyes(f *landmarks.Frame) Eyes {
	left, rawL, okL := eyeState(f, landmarks.LeftEyeUpper, landmarks.LeftEyeLower,
		landmarks.LeftEyeOuter, landmarks.LeftEyeInner)
	right, rawR, okR := eyeState(f, landmarks.RightEyeUpper, landmarks.RightEyeLower,
		landmarks.RightEyeOuter, landmarks.RightEyeInner)

	return Eyes{
		Left:  left,
		Right: right,
		// Raw values on purpose: clamped openness loses the sub-threshold detail.
		Blink: okL && okR && rawL < BlinkThreshold && rawR < BlinkThreshold,
	}
}

func mouthClip(m Mouth) MouthClip {
	if !(m.Openness >= MouthClipMinOpenness) {
		return MouthClip{}
	}
	return MouthClip{
		Enabled: true,
		RadiusX: MouthClipBaseRadiusX * (1 + clamp(m.Smile, 0, 1)*MouthClipSmileWiden),
		RadiusY: clamp(m.Openness, 0, 1) * MouthClipRadiusYScale,
		CenterY: MouthClipCenterY,
	}
}
