// Package collision implements the narrow phase: exact overlap tests between
// circles and convex polygons.
//
// Every test reports a Contact whose Normal is a unit vector pointing from the
// first shape toward the second and whose Depth is the distance the shapes must be
// pushed apart along Normal to stop overlapping.
package collision

import (
	"math"

	"github.com/zeusync/flatsim/internal/core/systems/physics/geom"
)

// Contact describes how two overlapping shapes penetrate each other.
type Contact struct {
	Normal geom.Vec2
	Depth  float64
}

// Flip returns the contact as seen from the other shape.
func (c Contact) Flip() Contact {
	return Contact{Normal: geom.Neg(c.Normal), Depth: c.Depth}
}

// fallbackNormal separates two circles sharing a center.
var fallbackNormal = geom.V(1, 0)

// IntersectCircles tests two circles. Circles that merely touch do not collide.
func IntersectCircles(centerA geom.Vec2, radiusA float64, centerB geom.Vec2, radiusB float64) (Contact, bool) {
	distance := geom.Distance(centerA, centerB)
	radii := radiusA + radiusB

	if distance >= radii {
		return Contact{}, false
	}

	normal, ok := geom.NormalizeOK(centerB.Sub(centerA))
	if !ok {
		normal = fallbackNormal
	}

	return Contact{Normal: normal, Depth: radii - distance}, true
}

// IntersectPolygons runs the separating axis test on two convex polygons given
// in world space.
func IntersectPolygons(verticesA, verticesB []geom.Vec2) (Contact, bool) {
	if len(verticesA) == 0 || len(verticesB) == 0 {
		return Contact{}, false
	}

	best := newAxisSearch()
	for _, poly := range [2][]geom.Vec2{verticesA, verticesB} {
		for i := range poly {
			axis, ok := edgeNormal(poly, i)
			if !ok {
				continue
			}
			minA, maxA := Project(verticesA, axis)
			minB, maxB := Project(verticesB, axis)
			if !best.test(axis, minA, maxA, minB, maxB) {
				return Contact{}, false
			}
		}
	}

	if !best.found() {
		return Contact{}, false
	}

	return best.contact(geom.Centroid(verticesA), geom.Centroid(verticesB)), true
}

// IntersectCirclePolygon tests a circle against a convex polygon given in world
// space. The normal points from the circle toward the polygon.
func IntersectCirclePolygon(center geom.Vec2, radius float64, vertices []geom.Vec2) (Contact, bool) {
	if len(vertices) == 0 {
		return Contact{}, false
	}

	best := newAxisSearch()
	for i := range vertices {
		axis, ok := edgeNormal(vertices, i)
		if !ok {
			continue
		}
		minA, maxA := Project(vertices, axis)
		minB, maxB := ProjectCircle(center, radius, axis)
		if !best.test(axis, minA, maxA, minB, maxB) {
			return Contact{}, false
		}
	}

	// Catches the circle sitting off a corner, where no edge normal separates.
	nearest := vertices[NearestVertex(center, vertices)]
	if axis, ok := geom.NormalizeOK(nearest.Sub(center)); ok {
		minA, maxA := Project(vertices, axis)
		minB, maxB := ProjectCircle(center, radius, axis)
		if !best.test(axis, minA, maxA, minB, maxB) {
			return Contact{}, false
		}
	}

	if !best.found() {
		return Contact{}, false
	}

	return best.contact(center, geom.Centroid(vertices)), true
}

// Project returns the interval covered by vertices on axis.
func Project(vertices []geom.Vec2, axis geom.Vec2) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range vertices {
		proj := v.Dot(axis)
		if proj < min {
			min = proj
		}
		if proj > max {
			max = proj
		}
	}
	return min, max
}

// ProjectCircle returns the interval covered by a circle on a unit axis.
func ProjectCircle(center geom.Vec2, radius float64, axis geom.Vec2) (min, max float64) {
	proj := center.Dot(axis)
	return proj - radius, proj + radius
}

// NearestVertex returns the index of the vertex closest to point. Ties go to the
// lowest index. It returns -1 for an empty slice.
func NearestVertex(point geom.Vec2, vertices []geom.Vec2) int {
	result := -1
	minDistance := math.MaxFloat64
	for i, v := range vertices {
		d := geom.DistanceSquared(v, point)
		if d < minDistance {
			minDistance = d
			result = i
		}
	}
	return result
}

// edgeNormal returns the unit normal of the edge starting at vertex i.
// Zero-length edges have no normal.
func edgeNormal(vertices []geom.Vec2, i int) (geom.Vec2, bool) {
	va := vertices[i]
	vb := vertices[(i+1)%len(vertices)]
	return geom.NormalizeOK(geom.Perp(vb.Sub(va)))
}

// axisSearch keeps the axis with the smallest overlap seen so far, along with
// the width of each shape on it.
type axisSearch struct {
	axis           geom.Vec2
	depth          float64
	widthA, widthB float64
}

func newAxisSearch() axisSearch {
	return axisSearch{depth: math.Inf(1)}
}

// test reports false when the intervals are disjoint, i.e. axis separates.
func (s *axisSearch) test(axis geom.Vec2, minA, maxA, minB, maxB float64) bool {
	if minA >= maxB || minB >= maxA {
		return false
	}

	overlap := math.Min(maxA, maxB) - math.Max(minA, minB)
	if overlap < s.depth {
		s.depth = overlap
		s.axis = axis
		s.widthA = maxA - minA
		s.widthB = maxB - minB
	}
	return true
}

func (s *axisSearch) found() bool {
	return !math.IsInf(s.depth, 1)
}

// contact orients the best axis so it points from centerA toward centerB.
// Concentric shapes give no direction: the normal is then the canonical axis
// when A is at least as wide as B on it and its negation otherwise, so swapping
// the operands still negates the normal. Shapes of equal width on the axis keep
// the canonical axis in both orders.
func (s *axisSearch) contact(centerA, centerB geom.Vec2) Contact {
	normal := s.axis
	along := centerB.Sub(centerA).Dot(normal)
	switch {
	case math.Abs(along) < geom.Epsilon:
		normal = canonical(normal)
		if s.widthA < s.widthB {
			normal = geom.Neg(normal)
		}
	case along < 0:
		normal = geom.Neg(normal)
	}
	return Contact{Normal: normal, Depth: s.depth}
}

// canonical picks the direction of axis with positive x, or positive y when x is 0.
func canonical(axis geom.Vec2) geom.Vec2 {
	if axis[0] < 0 || (axis[0] == 0 && axis[1] < 0) {
		return geom.Neg(axis)
	}
	return axis
}
