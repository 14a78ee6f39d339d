package physics

import "github.com/zeusync/flatsim/internal/core/systems/physics/geom"

// ShapeKind tags the variants of Shape.
type ShapeKind uint8

const (
	ShapeCircle ShapeKind = iota
	ShapePolygon
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapePolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Shape is the closed set of collision shapes: Circle and Polygon.
type Shape interface {
	Kind() ShapeKind
	sealed()
}

// Circle is centered on the body position.
type Circle struct {
	Radius float64
}

func (Circle) Kind() ShapeKind { return ShapeCircle }
func (Circle) sealed()         {}

// Polygon is a convex polygon in body-local space with consistent winding.
// Triangles index Vertices as a triangle list for renderers; collision ignores it.
type Polygon struct {
	Vertices  []geom.Vec2
	Triangles []int
}

func (Polygon) Kind() ShapeKind { return ShapePolygon }
func (Polygon) sealed()         {}

func boxVertices(width, height float64) []geom.Vec2 {
	left := -width / 2
	right := left + width
	bottom := -height / 2
	top := bottom + height

	return []geom.Vec2{
		geom.V(left, top),
		geom.V(right, top),
		geom.V(right, bottom),
		geom.V(left, bottom),
	}
}

// fanTriangles triangulates a convex polygon of n vertices around vertex 0.
func fanTriangles(n int) []int {
	if n < 3 {
		return nil
	}
	out := make([]int, 0, (n-2)*3)
	for i := 1; i < n-1; i++ {
		out = append(out, 0, i, i+1)
	}
	return out
}
