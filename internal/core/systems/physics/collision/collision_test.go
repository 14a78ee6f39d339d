package collision

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/flatsim/internal/core/systems/physics/geom"
)

// box returns the world vertices of a w*h rectangle centered at (cx, cy).
func box(cx, cy, w, h, angle float64) []geom.Vec2 {
	l, b := -w/2, -h/2
	local := []geom.Vec2{geom.V(l, b+h), geom.V(l+w, b+h), geom.V(l+w, b), geom.V(l, b)}
	out := make([]geom.Vec2, len(local))
	geom.NewTransform(geom.V(cx, cy), angle).ApplyAll(out, local)
	return out
}

func translate(vertices []geom.Vec2, delta geom.Vec2) []geom.Vec2 {
	out := make([]geom.Vec2, len(vertices))
	for i, v := range vertices {
		out[i] = v.Add(delta)
	}
	return out
}

func assertUnit(t *testing.T, v geom.Vec2) {
	t.Helper()
	assert.InDelta(t, 1.0, v.Len(), 1e-9, "normal %v is not unit length", v)
}

func TestIntersectCircles(t *testing.T) {
	tests := []struct {
		name    string
		centerB geom.Vec2
		radiusB float64
		hit     bool
		normal  geom.Vec2
		depth   float64
	}{
		{name: "overlapping", centerB: geom.V(1.5, 0), radiusB: 1, hit: true, normal: geom.V(1, 0), depth: 0.5},
		{name: "vertical", centerB: geom.V(0, -1), radiusB: 0.5, hit: true, normal: geom.V(0, -1), depth: 0.5},
		{name: "touching", centerB: geom.V(2, 0), radiusB: 1},
		{name: "apart", centerB: geom.V(5, 5), radiusB: 1},
		{name: "coincident", centerB: geom.V(0, 0), radiusB: 1, hit: true, normal: geom.V(1, 0), depth: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, hit := IntersectCircles(geom.V(0, 0), 1, tt.centerB, tt.radiusB)
			require.Equal(t, tt.hit, hit)
			if !hit {
				assert.Equal(t, Contact{}, c)
				return
			}
			assert.True(t, geom.ApproxEqual(tt.normal, c.Normal), "normal %v", c.Normal)
			assert.InDelta(t, tt.depth, c.Depth, 1e-12)
		})
	}
}

func TestIntersectCirclesProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 500; i++ {
		a := geom.V(rng.Float64()*10-5, rng.Float64()*10-5)
		b := geom.V(rng.Float64()*10-5, rng.Float64()*10-5)
		ra, rb := 0.1+rng.Float64()*3, 0.1+rng.Float64()*3
		d := geom.Distance(a, b)

		c, hit := IntersectCircles(a, ra, b, rb)
		if d >= ra+rb {
			assert.False(t, hit)
			continue
		}
		require.True(t, hit)
		assert.InDelta(t, ra+rb-d, c.Depth, 1e-9)
		assertUnit(t, c.Normal)
		assert.Greater(t, c.Normal.Dot(b.Sub(a)), 0.0)
	}
}

func TestIntersectPolygons(t *testing.T) {
	t.Run("unit boxes half overlapping", func(t *testing.T) {
		c, hit := IntersectPolygons(box(0, 0, 1, 1, 0), box(0.5, 0, 1, 1, 0))
		require.True(t, hit)
		assert.InDelta(t, 0.5, c.Depth, 1e-12)
		assert.True(t, geom.ApproxEqual(geom.V(1, 0), c.Normal), "normal %v", c.Normal)
	})

	t.Run("normal follows centroids", func(t *testing.T) {
		c, hit := IntersectPolygons(box(0.5, 0, 1, 1, 0), box(0, 0, 1, 1, 0))
		require.True(t, hit)
		assert.True(t, geom.ApproxEqual(geom.V(-1, 0), c.Normal), "normal %v", c.Normal)
	})

	t.Run("minimum axis", func(t *testing.T) {
		c, hit := IntersectPolygons(box(0, 0, 2, 2, 0), box(0.5, 1.8, 2, 2, 0))
		require.True(t, hit)
		assert.InDelta(t, 0.2, c.Depth, 1e-9)
		assert.True(t, geom.ApproxEqual(geom.V(0, 1), c.Normal), "normal %v", c.Normal)
	})

	t.Run("separated", func(t *testing.T) {
		_, hit := IntersectPolygons(box(0, 0, 1, 1, 0), box(3, 0, 1, 1, 0))
		assert.False(t, hit)
	})

	t.Run("touching edges do not collide", func(t *testing.T) {
		_, hit := IntersectPolygons(box(0, 0, 1, 1, 0), box(1, 0, 1, 1, 0))
		assert.False(t, hit)
	})

	t.Run("separated only along rotated axis", func(t *testing.T) {
		// The AABBs overlap but the diamond's edge normal separates them.
		_, hit := IntersectPolygons(box(0, 0, 1, 1, 0), box(1.2, 1.2, 1, 1, math.Pi/4))
		assert.False(t, hit)
	})

	t.Run("empty", func(t *testing.T) {
		_, hit := IntersectPolygons(nil, box(0, 0, 1, 1, 0))
		assert.False(t, hit)
	})
}

func TestIntersectPolygonsSymmetric(t *testing.T) {
	a := box(0, 0, 1, 1, 0)
	b := box(0.5, 0.2, 1, 1, 0)

	ab, hit := IntersectPolygons(a, b)
	require.True(t, hit)
	ba, hit := IntersectPolygons(b, a)
	require.True(t, hit)

	assert.InDelta(t, ab.Depth, ba.Depth, 1e-12)
	assert.True(t, geom.ApproxEqual(ab.Normal, geom.Neg(ba.Normal)))
}

func TestIntersectPolygonsConcentric(t *testing.T) {
	square := box(0, 0, 1, 1, 0)
	plank := box(0, 0, 2, 0.5, 0)

	ab, hit := IntersectPolygons(square, plank)
	require.True(t, hit)
	ba, hit := IntersectPolygons(plank, square)
	require.True(t, hit)

	assert.InDelta(t, 0.5, ab.Depth, 1e-12)
	assert.InDelta(t, ab.Depth, ba.Depth, 1e-12)
	assertUnit(t, ab.Normal)
	assert.True(t, geom.ApproxEqual(geom.V(0, 1), ab.Normal), "normal %v", ab.Normal)
	assert.True(t, geom.ApproxEqual(ab.Normal, geom.Neg(ba.Normal)), "%v vs %v", ab.Normal, ba.Normal)
}

func TestIntersectPolygonsSeparationRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	a := box(0, 0, 1, 1, 0)
	hits := 0
	for i := 0; i < 300; i++ {
		dir := rng.Float64() * 2 * math.Pi
		dist := 0.8 + rng.Float64()*0.5
		b := box(dist*math.Cos(dir), dist*math.Sin(dir), 1, 1, rng.Float64()*math.Pi)

		c, hit := IntersectPolygons(a, b)
		if !hit {
			continue
		}
		hits++
		assertUnit(t, c.Normal)
		assert.GreaterOrEqual(t, c.Depth, 0.0)

		moved := translate(b, c.Normal.Mul(c.Depth))
		after, hit := IntersectPolygons(a, moved)
		if hit {
			assert.InDelta(t, 0.0, after.Depth, 1e-9)
		}
	}
	assert.Positive(t, hits)
}

func TestIntersectCirclePolygon(t *testing.T) {
	square := box(0, 0, 1, 1, 0)

	t.Run("far from box", func(t *testing.T) {
		_, hit := IntersectCirclePolygon(geom.V(2, 0), 0.5, square)
		assert.False(t, hit)
	})

	t.Run("against an edge", func(t *testing.T) {
		c, hit := IntersectCirclePolygon(geom.V(0.9, 0), 0.5, square)
		require.True(t, hit)
		assert.InDelta(t, 0.1, c.Depth, 1e-9)
		assert.True(t, geom.ApproxEqual(geom.V(-1, 0), c.Normal), "normal %v", c.Normal)
	})

	t.Run("against a corner", func(t *testing.T) {
		c, hit := IntersectCirclePolygon(geom.V(0.8, 0.8), 0.5, square)
		require.True(t, hit)
		assert.InDelta(t, 0.5-math.Sqrt(0.18), c.Depth, 1e-9)
		diag := geom.Normalize(geom.V(-1, -1))
		assert.True(t, geom.ApproxEqual(diag, c.Normal), "normal %v", c.Normal)
	})

	t.Run("off a corner", func(t *testing.T) {
		// Both edge axes overlap; only the vertex axis separates.
		_, hit := IntersectCirclePolygon(geom.V(0.9, 0.9), 0.5, square)
		assert.False(t, hit)
	})

	t.Run("separation round trip", func(t *testing.T) {
		center := geom.V(0.3, 0.7)
		c, hit := IntersectCirclePolygon(center, 0.5, square)
		require.True(t, hit)
		moved := center.Sub(c.Normal.Mul(c.Depth))
		after, hit := IntersectCirclePolygon(moved, 0.5, square)
		if hit {
			assert.InDelta(t, 0.0, after.Depth, 1e-9)
		}
	})
}

func TestNearestVertex(t *testing.T) {
	square := box(0, 0, 2, 2, 0)
	assert.Equal(t, 1, NearestVertex(geom.V(3, 3), square))
	assert.Equal(t, 3, NearestVertex(geom.V(-3, -3), square))
	assert.Equal(t, -1, NearestVertex(geom.V(0, 0), nil))
}

func TestProject(t *testing.T) {
	lo, hi := Project(box(0, 0, 2, 4, 0), geom.V(0, 1))
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 2.0, hi)

	lo, hi = ProjectCircle(geom.V(3, 1), 0.5, geom.V(1, 0))
	assert.Equal(t, 2.5, lo)
	assert.Equal(t, 3.5, hi)
}
