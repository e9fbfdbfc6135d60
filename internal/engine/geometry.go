package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kozaktomas/face-animator/internal/landmarks"
)

// clamp bounds v to [lo, hi]. NaN collapses to 0 first; infinities saturate.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		v = 0
	}
	return math.Max(lo, math.Min(hi, v))
}

// finite replaces NaN and ±Inf with 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func vec(p landmarks.Point) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// point looks up a landmark as a vector.
func point(f *landmarks.Frame, i int) (r3.Vec, bool) {
	p, ok := f.At(i)
	if !ok {
		return r3.Vec{}, false
	}
	return vec(p), true
}

// midpoint returns the midpoint of two landmarks; both must be present.
func midpoint(f *landmarks.Frame, a, b int) (r3.Vec, bool) {
	pa, ok := point(f, a)
	if !ok {
		return r3.Vec{}, false
	}
	pb, ok := point(f, b)
	if !ok {
		return r3.Vec{}, false
	}
	return r3.Scale(0.5, r3.Add(pa, pb)), true
}

// distance returns the Euclidean distance between two landmarks.
func distance(f *landmarks.Frame, a, b int) (float64, bool) {
	pa, ok := point(f, a)
	if !ok {
		return 0, false
	}
	pb, ok := point(f, b)
	if !ok {
		return 0, false
	}
	return r3.Norm(r3.Sub(pa, pb)), true
}
