package geom

import "github.com/go-gl/mathgl/mgl64"

// Transform is a rotation followed by a translation. The rotation matrix is
// computed once, so applying it to many vertices costs no trigonometry.
type Transform struct {
	Rotation mgl64.Mat2
	Offset   Vec2
}

// Identity leaves vectors unchanged.
var Identity = NewTransform(Zero, 0)

// NewTransform builds the transform for a body at position rotated by angle radians.
func NewTransform(position Vec2, angle float64) Transform {
	return Transform{
		Rotation: mgl64.Rotate2D(angle),
		Offset:   position,
	}
}

// Cos returns the cached cosine of the rotation angle.
func (t Transform) Cos() float64 { return t.Rotation[0] }

// Sin returns the cached sine of the rotation angle.
func (t Transform) Sin() float64 { return t.Rotation[1] }

// Apply maps v from local space: (cos*x - sin*y + px, sin*x + cos*y + py).
func (t Transform) Apply(v Vec2) Vec2 {
	return t.Rotation.Mul2x1(v).Add(t.Offset)
}

// ApplyAll transforms src into dst, which must be at least as long as src.
func (t Transform) ApplyAll(dst, src []Vec2) {
	for i, v := range src {
		dst[i] = t.Apply(v)
	}
}
