// Package landmarks holds the per-frame facial landmark data produced by the
// browser-side detector and the index table the engine reads from it.
package landmarks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Landmark indices in the MediaPipe FaceMesh numbering.
const (
	NoseTip       = 1
	Chin          = 152
	LeftEyeOuter  = 33
	LeftEyeInner  = 133
	RightEyeOuter = 263
	RightEyeInner = 362
	LeftEyeUpper  = 159
	LeftEyeLower  = 145
	RightEyeUpper = 386
	RightEyeLower = 374
	MouthTop      = 13
	MouthBottom   = 14
	MouthLeft     = 61
	MouthRight    = 291
	LeftCheek     = 50
	RightCheek    = 280
)

// MaxIndex bounds the object form of a frame. FaceMesh with iris refinement
// produces 478 points; anything far beyond that is a client bug.
const MaxIndex = 1024

// Point is a single landmark in normalized image coordinates.
type Point struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// IsFinite reports whether all coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) &&
		!math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

// Frame is one frame's worth of landmarks. A nil entry is a missing detection.
type Frame struct {
	Points []*Point
}

// NewFrame builds a frame from a sparse index → point map.
func NewFrame(points map[int]Point) *Frame {
	size := 0
	for i := range points {
		if i >= size {
			size = i + 1
		}
	}
	f := &Frame{Points: make([]*Point, size)}
	for i, p := range points {
		if i < 0 {
			continue
		}
		f.Points[i] = &p
	}
	return f
}

// At returns the landmark at index i. Missing, out-of-range and non-finite
// points all report false.
func (f *Frame) At(i int) (Point, bool) {
	if f == nil || i < 0 || i >= len(f.Points) {
		return Point{}, false
	}
	p := f.Points[i]
	if p == nil || !p.IsFinite() {
		return Point{}, false
	}
	return *p, true
}

// Len returns the number of slots in the frame, present or not.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}

// Empty reports whether the frame carries no usable landmark at all.
func (f *Frame) Empty() bool {
	if f == nil {
		return true
	}
	for i := range f.Points {
		if _, ok := f.At(i); ok {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts either an array of points (null for missing) or an
// object keyed by decimal landmark index.
func (f *Frame) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		f.Points = nil
		return nil
	}

	switch data[0] {
	case '[':
		var points []*Point
		if err := json.Unmarshal(data, &points); err != nil {
			return fmt.Errorf("decoding landmark array: %w", err)
		}
		f.Points = points
		return nil
	case '{':
		var keyed map[string]Point
		if err := json.Unmarshal(data, &keyed); err != nil {
			return fmt.Errorf("decoding landmark object: %w", err)
		}
		points := make(map[int]Point, len(keyed))
		for k, p := range keyed {
			i, err := strconv.Atoi(k)
			if err != nil || i < 0 || i >= MaxIndex {
				return fmt.Errorf("invalid landmark index %q", k)
			}
			points[i] = p
		}
		f.Points = NewFrame(points).Points
		return nil
	default:
		return errors.New("landmarks must be an array or an object")
	}
}

// MarshalJSON encodes the frame in array form.
func (f Frame) MarshalJSON() ([]byte, error) {
	if f.Points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.Points)
}
