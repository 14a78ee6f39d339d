package geom

import "math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

// NewAABB builds a box from its corner coordinates.
func NewAABB(minX, minY, maxX, maxY float64) AABB {
	return AABB{Min: Vec2{minX, minY}, Max: Vec2{maxX, maxY}}
}

// BoundingBox returns the smallest box containing every point.
func BoundingBox(points []Vec2) AABB {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX = math.Min(minX, p[0])
		minY = math.Min(minY, p[1])
		maxX = math.Max(maxX, p[0])
		maxY = math.Max(maxY, p[1])
	}
	return NewAABB(minX, minY, maxX, maxY)
}

func (b AABB) Overlaps(other AABB) bool {
	return b.Min[0] <= other.Max[0] && b.Max[0] >= other.Min[0] &&
		b.Min[1] <= other.Max[1] && b.Max[1] >= other.Min[1]
}

func (b AABB) Contains(p Vec2) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1]
}

func (b AABB) Width() float64  { return b.Max[0] - b.Min[0] }
func (b AABB) Height() float64 { return b.Max[1] - b.Min[1] }

func (b AABB) Center() Vec2 {
	return Vec2{(b.Min[0] + b.Max[0]) * 0.5, (b.Min[1] + b.Max[1]) * 0.5}
}

// Expand grows the box by margin on every side.
func (b AABB) Expand(margin float64) AABB {
	return NewAABB(b.Min[0]-margin, b.Min[1]-margin, b.Max[0]+margin, b.Max[1]+margin)
}
