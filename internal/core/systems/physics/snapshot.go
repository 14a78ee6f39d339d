package physics

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/flatsim/internal/core/systems/physics/geom"
	"github.com/zeusync/flatsim/pkg/generic"
)

var digests = generic.NewPool(xxhash.New, (*xxhash.Digest).Reset)

// BodyState is the render-facing view of a body.
type BodyState struct {
	ID       BodyID      `json:"id"`
	Shape    string      `json:"shape"`
	Static   bool        `json:"static"`
	Position geom.Vec2   `json:"position"`
	Rotation float64     `json:"rotation"`
	Velocity geom.Vec2   `json:"velocity"`
	Radius   float64     `json:"radius,omitempty"`
	Vertices []geom.Vec2 `json:"vertices,omitempty"`
	AABB     geom.AABB   `json:"aabb"`
}

// Snapshot is a consistent copy of the world between steps.
type Snapshot struct {
	Step     uint64      `json:"step"`
	Checksum uint64      `json:"checksum"`
	Bodies   []BodyState `json:"bodies"`
}

func (w *World) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		Step:     w.stats.Steps,
		Checksum: checksum(w.bodies),
		Bodies:   make([]BodyState, 0, len(w.bodies)),
	}
	for _, b := range w.bodies {
		state := BodyState{
			ID:       b.id,
			Shape:    b.shape.Kind().String(),
			Static:   b.isStatic,
			Position: b.position,
			Rotation: b.rotation,
			Velocity: b.linearVelocity,
			AABB:     b.AABB(),
		}
		switch s := b.shape.(type) {
		case Circle:
			state.Radius = s.Radius
		case Polygon:
			state.Vertices = slices.Clone(b.TransformedVertices())
		}
		snap.Bodies = append(snap.Bodies, state)
	}
	return snap
}

// Checksum hashes every body's pose and velocity in index order. Ids are left
// out because they are random, so two worlds built and stepped identically
// produce the same value.
func (w *World) Checksum() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return checksum(w.bodies)
}

func checksum(bodies []*Body) uint64 {
	h := digests.Get()
	defer digests.Put(h)

	buf := make([]byte, 0, 6*8)
	for _, b := range bodies {
		buf = buf[:0]
		for _, f := range [...]float64{
			b.position[0], b.position[1], b.rotation,
			b.linearVelocity[0], b.linearVelocity[1], b.rotationalVelocity,
		} {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}
