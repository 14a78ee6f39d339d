package physics

import (
	"slices"

	"github.com/google/uuid"

	"github.com/zeusync/flatsim/internal/core/systems/physics/geom"
)

// BodyID identifies a body for its whole lifetime.
type BodyID uuid.UUID

func (id BodyID) String() string { return uuid.UUID(id).String() }

func (id BodyID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *BodyID) UnmarshalText(text []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(text)
}

// Body is a rigid body. Shape, density, mass, restitution, area and the static
// flag are fixed at construction; pose and velocity change through the mutators
// and the integrator.
//
// World-space vertices and the bounding box are cached and recomputed lazily
// after any pose change.
type Body struct {
	id BodyID

	position           geom.Vec2
	linearVelocity     geom.Vec2
	rotation           float64
	rotationalVelocity float64
	force              geom.Vec2

	density     float64
	mass        float64
	invMass     float64
	restitution float64
	area        float64
	isStatic    bool

	shape Shape

	transformedVertices     []geom.Vec2
	aabb                    geom.AABB
	transformUpdateRequired bool
	aabbUpdateRequired      bool
}

func newBody(position geom.Vec2, density, area, restitution float64, isStatic bool, shape Shape) *Body {
	mass := area * density

	b := &Body{
		id:                      BodyID(uuid.New()),
		position:                position,
		density:                 density,
		mass:                    mass,
		restitution:             geom.Clamp(restitution, 0, 1),
		area:                    area,
		isStatic:                isStatic,
		shape:                   shape,
		transformUpdateRequired: true,
		aabbUpdateRequired:      true,
	}
	if !isStatic {
		b.invMass = 1 / mass
	}
	if poly, ok := shape.(Polygon); ok {
		b.transformedVertices = make([]geom.Vec2, len(poly.Vertices))
	}
	return b
}

func (b *Body) ID() BodyID                  { return b.id }
func (b *Body) Position() geom.Vec2         { return b.position }
func (b *Body) LinearVelocity() geom.Vec2   { return b.linearVelocity }
func (b *Body) Rotation() float64           { return b.rotation }
func (b *Body) RotationalVelocity() float64 { return b.rotationalVelocity }
func (b *Body) Force() geom.Vec2            { return b.force }
func (b *Body) Density() float64            { return b.density }
func (b *Body) Mass() float64               { return b.mass }
func (b *Body) InvMass() float64            { return b.invMass }
func (b *Body) Restitution() float64        { return b.restitution }
func (b *Body) Area() float64               { return b.area }
func (b *Body) IsStatic() bool              { return b.isStatic }

// Shape returns the body's shape. Polygon slices are copies, so the shape
// cannot change after construction.
func (b *Body) Shape() Shape {
	if p, ok := b.shape.(Polygon); ok {
		return Polygon{Vertices: slices.Clone(p.Vertices), Triangles: slices.Clone(p.Triangles)}
	}
	return b.shape
}

func (b *Body) SetLinearVelocity(v geom.Vec2) { b.linearVelocity = v }

func (b *Body) SetRotationalVelocity(w float64) { b.rotationalVelocity = w }

// Move translates the body by amount.
func (b *Body) Move(amount geom.Vec2) {
	b.position = b.position.Add(amount)
	b.invalidate()
}

// MoveTo places the body at position.
func (b *Body) MoveTo(position geom.Vec2) {
	b.position = position
	b.invalidate()
}

// Rotate turns the body by amount radians.
func (b *Body) Rotate(amount float64) {
	b.rotation += amount
	b.invalidate()
}

// AddForce accumulates a force until the next Step. The integrator does not
// consume it yet.
func (b *Body) AddForce(amount geom.Vec2) {
	b.force = b.force.Add(amount)
}

// Step integrates one sub-step of dt/iterations with semi-implicit Euler.
// Static bodies never move.
func (b *Body) Step(dt float64, gravity geom.Vec2, iterations int) {
	if b.isStatic {
		return
	}
	if iterations < 1 {
		iterations = 1
	}

	dt /= float64(iterations)

	b.linearVelocity = b.linearVelocity.Add(gravity.Mul(dt))
	b.position = b.position.Add(b.linearVelocity.Mul(dt))
	b.rotation += b.rotationalVelocity * dt

	b.force = geom.Zero
	b.invalidate()
}

// TransformedVertices returns the polygon vertices in world space, or nil for
// circles. The slice is owned by the body and must not be modified.
func (b *Body) TransformedVertices() []geom.Vec2 {
	if b.transformUpdateRequired {
		switch s := b.shape.(type) {
		case Polygon:
			geom.NewTransform(b.position, b.rotation).ApplyAll(b.transformedVertices, s.Vertices)
		case Circle:
		default:
			invariant("transform vertices of %T: %w", b.shape, ErrUnknownShape)
		}
		b.transformUpdateRequired = false
	}
	return b.transformedVertices
}

// AABB returns the world-space bounding box.
func (b *Body) AABB() geom.AABB {
	if b.aabbUpdateRequired {
		switch s := b.shape.(type) {
		case Polygon:
			b.aabb = geom.BoundingBox(b.TransformedVertices())
		case Circle:
			b.aabb = geom.NewAABB(
				b.position[0]-s.Radius, b.position[1]-s.Radius,
				b.position[0]+s.Radius, b.position[1]+s.Radius,
			)
		default:
			invariant("compute AABB of %T: %w", b.shape, ErrUnknownShape)
		}
		b.aabbUpdateRequired = false
	}
	return b.aabb
}

func (b *Body) invalidate() {
	b.transformUpdateRequired = true
	b.aabbUpdateRequired = true
}
