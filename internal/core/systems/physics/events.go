package physics

import "github.com/zeusync/flatsim/internal/core/systems/physics/geom"

// TopicPhysics is the bus topic every world event is published on.
const TopicPhysics = "physics"

const (
	EventBodyAdded   = "physics.body.added"
	EventBodyRemoved = "physics.body.removed"
	EventContact     = "physics.contact"
	EventStep        = "physics.step"
)

const eventSource = "physics.world"

// BodyEvent is the payload of EventBodyAdded and EventBodyRemoved.
type BodyEvent struct {
	ID    BodyID
	Shape ShapeKind
}

// ContactEvent is the payload of EventContact, one per resolved pair.
// Normal points from A to B; Impulse is zero when the pair was already separating.
type ContactEvent struct {
	A, B    BodyID
	Normal  geom.Vec2
	Depth   float64
	Impulse float64
}

// StepEvent is the payload of EventStep, published after all contacts of a step.
type StepEvent struct {
	Step     uint64
	Contacts int
}
