package physics

import (
	"fmt"
	"math"

	"github.com/zeusync/flatsim/internal/core/systems/physics/geom"
)

// Default factory bounds. Areas are in square meters, densities in g/cm^3.
const (
	MinBodySize = 0.01 * 0.01
	MaxBodySize = 64.0 * 64.0

	MinDensity = 0.5
	MaxDensity = 21.4
)

// Limits bounds what the body factories accept.
type Limits struct {
	MinBodySize float64 `yaml:"min_body_size" json:"min_body_size"`
	MaxBodySize float64 `yaml:"max_body_size" json:"max_body_size"`
	MinDensity  float64 `yaml:"min_density" json:"min_density"`
	MaxDensity  float64 `yaml:"max_density" json:"max_density"`
}

func DefaultLimits() Limits {
	return Limits{
		MinBodySize: MinBodySize,
		MaxBodySize: MaxBodySize,
		MinDensity:  MinDensity,
		MaxDensity:  MaxDensity,
	}
}

// Validate checks that every bound is positive and each range is non-empty.
func (l Limits) Validate() error {
	if !(l.MinBodySize > 0) || !(l.MinDensity > 0) {
		return fmt.Errorf("%w: lower bounds must be positive", ErrInvalidLimits)
	}
	if l.MinBodySize > l.MaxBodySize {
		return fmt.Errorf("%w: body size range [%g, %g]", ErrInvalidLimits, l.MinBodySize, l.MaxBodySize)
	}
	if l.MinDensity > l.MaxDensity {
		return fmt.Errorf("%w: density range [%g, %g]", ErrInvalidLimits, l.MinDensity, l.MaxDensity)
	}
	return nil
}

// NewCircleBody builds a circle validated against the default limits.
func NewCircleBody(radius float64, position geom.Vec2, density float64, isStatic bool, restitution float64) (*Body, error) {
	return DefaultLimits().NewCircleBody(radius, position, density, isStatic, restitution)
}

// NewBoxBody builds an axis-aligned box validated against the default limits.
func NewBoxBody(width, height float64, position geom.Vec2, density float64, isStatic bool, restitution float64) (*Body, error) {
	return DefaultLimits().NewBoxBody(width, height, position, density, isStatic, restitution)
}

// NewPolygonBody builds a convex polygon validated against the default limits.
func NewPolygonBody(vertices []geom.Vec2, position geom.Vec2, density float64, isStatic bool, restitution float64) (*Body, error) {
	return DefaultLimits().NewPolygonBody(vertices, position, density, isStatic, restitution)
}

func (l Limits) NewCircleBody(radius float64, position geom.Vec2, density float64, isStatic bool, restitution float64) (*Body, error) {
	if !validDimension(radius) {
		return nil, &ValidationError{Shape: ShapeCircle, Field: "radius", Value: radius, Err: ErrInvalidDimension}
	}

	area := radius * radius * math.Pi
	if err := l.check(ShapeCircle, area, density, restitution); err != nil {
		return nil, err
	}

	return newBody(position, density, area, restitution, isStatic, Circle{Radius: radius}), nil
}

func (l Limits) NewBoxBody(width, height float64, position geom.Vec2, density float64, isStatic bool, restitution float64) (*Body, error) {
	if !validDimension(width) {
		return nil, &ValidationError{Shape: ShapePolygon, Field: "width", Value: width, Err: ErrInvalidDimension}
	}
	if !validDimension(height) {
		return nil, &ValidationError{Shape: ShapePolygon, Field: "height", Value: height, Err: ErrInvalidDimension}
	}

	area := width * height
	if err := l.check(ShapePolygon, area, density, restitution); err != nil {
		return nil, err
	}

	shape := Polygon{
		Vertices:  boxVertices(width, height),
		Triangles: []int{0, 1, 2, 0, 2, 3},
	}
	return newBody(position, density, area, restitution, isStatic, shape), nil
}

// NewPolygonBody accepts a convex polygon in either winding. The vertices are
// shifted so that their mean sits on the body origin.
func (l Limits) NewPolygonBody(vertices []geom.Vec2, position geom.Vec2, density float64, isStatic bool, restitution float64) (*Body, error) {
	if len(vertices) < 3 {
		return nil, &ValidationError{Shape: ShapePolygon, Field: "vertices", Value: float64(len(vertices)), Limit: 3, Err: ErrTooFewVertices}
	}
	for _, v := range vertices {
		if !finite(v[0]) || !finite(v[1]) {
			return nil, &ValidationError{Shape: ShapePolygon, Field: "vertex", Value: math.NaN(), Err: ErrInvalidDimension}
		}
	}
	if !convex(vertices) {
		return nil, &ValidationError{Shape: ShapePolygon, Field: "vertices", Value: float64(len(vertices)), Err: ErrNotConvex}
	}

	area := polygonArea(vertices)
	if err := l.check(ShapePolygon, area, density, restitution); err != nil {
		return nil, err
	}

	center := geom.Centroid(vertices)
	local := make([]geom.Vec2, len(vertices))
	for i, v := range vertices {
		local[i] = v.Sub(center)
	}

	shape := Polygon{Vertices: local, Triangles: fanTriangles(len(local))}
	return newBody(position, density, area, restitution, isStatic, shape), nil
}

func (l Limits) check(kind ShapeKind, area, density, restitution float64) error {
	switch {
	case area < l.MinBodySize:
		return &ValidationError{Shape: kind, Field: "area", Value: area, Limit: l.MinBodySize, Err: ErrAreaTooSmall}
	case area > l.MaxBodySize:
		return &ValidationError{Shape: kind, Field: "area", Value: area, Limit: l.MaxBodySize, Err: ErrAreaTooLarge}
	case !(density >= l.MinDensity):
		return &ValidationError{Shape: kind, Field: "density", Value: density, Limit: l.MinDensity, Err: ErrDensityTooSmall}
	case density > l.MaxDensity:
		return &ValidationError{Shape: kind, Field: "density", Value: density, Limit: l.MaxDensity, Err: ErrDensityTooLarge}
	case !finite(restitution):
		return &ValidationError{Shape: kind, Field: "restitution", Value: restitution, Err: ErrInvalidRestitution}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func validDimension(f float64) bool {
	return f > 0 && finite(f)
}

// polygonArea is the shoelace formula, independent of winding.
func polygonArea(vertices []geom.Vec2) float64 {
	sum := 0.0
	for i, v := range vertices {
		sum += geom.Cross(v, vertices[(i+1)%len(vertices)])
	}
	return math.Abs(sum) / 2
}

// convex reports whether every turn has the same sign. Collinear runs are
// tolerated as long as at least one real turn exists.
func convex(vertices []geom.Vec2) bool {
	n := len(vertices)
	sign := 0.0
	for i := range vertices {
		a, b, c := vertices[i], vertices[(i+1)%n], vertices[(i+2)%n]
		turn := geom.Cross(b.Sub(a), c.Sub(b))
		if turn == 0 {
			continue
		}
		if sign == 0 {
			sign = turn
			continue
		}
		if (turn > 0) != (sign > 0) {
			return false
		}
	}
	return sign != 0
}
