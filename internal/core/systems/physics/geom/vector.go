// Package geom holds the 2D math the simulator is built on: vectors, rigid
// transforms and axis-aligned bounding boxes.
//
// Vectors are mgl64.Vec2 values, so the usual Add, Sub, Mul (scale), Dot and Len
// methods come from mathgl. The helpers below cover what mathgl leaves out for the
// 2D case.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec2 is an immutable 2D vector. Arithmetic returns new values.
type Vec2 = mgl64.Vec2

// Zero is the zero vector.
var Zero = Vec2{}

// Epsilon is the tolerance used by ApproxEqual.
const Epsilon = 1e-9

// V builds a vector from its components.
func V(x, y float64) Vec2 { return Vec2{x, y} }

// Neg returns -v.
func Neg(v Vec2) Vec2 { return Vec2{-v[0], -v[1]} }

// Div returns v / s.
func Div(v Vec2, s float64) Vec2 { return Vec2{v[0] / s, v[1] / s} }

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b Vec2) float64 { return a[0]*b[1] - a[1]*b[0] }

// Perp rotates v by 90 degrees counter-clockwise.
func Perp(v Vec2) Vec2 { return Vec2{-v[1], v[0]} }

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vec2) float64 { return math.Hypot(b[0]-a[0], b[1]-a[1]) }

// DistanceSquared avoids the sqrt when only comparing distances.
func DistanceSquared(a, b Vec2) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	return dx*dx + dy*dy
}

// NormalizeOK returns v scaled to unit length. It reports false and returns Zero
// for a zero-length vector.
func NormalizeOK(v Vec2) (Vec2, bool) {
	l := v.Len()
	if l == 0 {
		return Zero, false
	}
	return Vec2{v[0] / l, v[1] / l}, true
}

// Normalize returns v scaled to unit length, or Zero for a zero-length vector.
func Normalize(v Vec2) Vec2 {
	n, _ := NormalizeOK(v)
	return n
}

// ApproxEqual compares two vectors component-wise within an absolute Epsilon.
func ApproxEqual(a, b Vec2) bool {
	return math.Abs(a[0]-b[0]) <= Epsilon && math.Abs(a[1]-b[1]) <= Epsilon
}

// Centroid returns the arithmetic mean of the vertices. For non-uniform polygons
// this is not the area centroid, but it is stable enough to orient contact normals.
func Centroid(vertices []Vec2) Vec2 {
	if len(vertices) == 0 {
		return Zero
	}
	var sum Vec2
	for _, v := range vertices {
		sum = sum.Add(v)
	}
	return Div(sum, float64(len(vertices)))
}

// Clamp limits value to [min, max]; NaN maps to min. It panics when min > max.
func Clamp(value, min, max float64) float64 {
	if min == max {
		return min
	}
	if min > max {
		panic("geom: clamp min is greater than max")
	}
	if value < min || math.IsNaN(value) {
		return min
	}
	if value > max {
		return max
	}
	return value
}
