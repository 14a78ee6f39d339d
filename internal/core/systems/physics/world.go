package physics

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/zeusync/flatsim/internal/core/events/bus"
	"github.com/zeusync/flatsim/internal/core/observability/log"
	"github.com/zeusync/flatsim/internal/core/systems/physics/collision"
	"github.com/zeusync/flatsim/internal/core/systems/physics/geom"
)

// DefaultGravity points down the y axis (y-up world).
var DefaultGravity = geom.V(0, -9.81)

const DefaultIterations = 1

// WorldOption configures a World.
type WorldOption func(*WorldConfig)

// WorldConfig holds the construction-time settings of a World.
type WorldConfig struct {
	Gravity    geom.Vec2
	Iterations int
	Limits     Limits
	Logger     log.Log
	Events     bus.EventBus
}

// WithGravity sets the constant acceleration applied to dynamic bodies.
func WithGravity(g geom.Vec2) WorldOption {
	return func(c *WorldConfig) { c.Gravity = g }
}

// WithIterations splits every Step into n sub-steps. Values below 1 mean 1.
func WithIterations(n int) WorldOption {
	return func(c *WorldConfig) { c.Iterations = n }
}

// WithLimits sets the bounds used by World.Limits for body factories.
func WithLimits(l Limits) WorldOption {
	return func(c *WorldConfig) { c.Limits = l }
}

func WithLogger(l log.Log) WorldOption {
	return func(c *WorldConfig) { c.Logger = l }
}

// WithEventBus publishes body and contact events on topic TopicPhysics.
func WithEventBus(b bus.EventBus) WorldOption {
	return func(c *WorldConfig) { c.Events = b }
}

// StepStats describes the most recent Step.
type StepStats struct {
	Steps       uint64
	Bodies      int
	PairsTested int
	Contacts    int
	Duration    time.Duration
}

// World owns the bodies and advances them with Step. One mutex serializes Step,
// AddBody and RemoveBody; bodies must not be mutated by other goroutines while a
// Step runs.
type World struct {
	mu sync.Mutex

	gravity    geom.Vec2
	iterations int
	limits     Limits
	bodies     []*Body

	logger log.Log
	events bus.EventBus
	stats  StepStats
}

func NewWorld(opts ...WorldOption) *World {
	cfg := WorldConfig{
		Gravity:    DefaultGravity,
		Iterations: DefaultIterations,
		Limits:     DefaultLimits(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Provide()
	}

	return &World{
		gravity:    cfg.Gravity,
		iterations: cfg.Iterations,
		limits:     cfg.Limits,
		logger:     cfg.Logger.With(log.String("component", "physics")),
		events:     cfg.Events,
	}
}

func (w *World) Gravity() geom.Vec2 { return w.gravity }
func (w *World) Iterations() int    { return w.iterations }

// Limits returns the factory bounds this world was configured with.
func (w *World) Limits() Limits { return w.limits }

func (w *World) AddBody(b *Body) error {
	if b == nil {
		return ErrNilBody
	}

	w.mu.Lock()
	if slices.Contains(w.bodies, b) {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBodyExists, b.id)
	}
	w.bodies = append(w.bodies, b)
	count := len(w.bodies)
	w.mu.Unlock()

	w.logger.Debug("Body added",
		log.Stringer("body", b.id),
		log.Stringer("shape", b.shape.Kind()),
		log.Bool("static", b.isStatic),
		log.Int("bodies", count))
	w.publish(bus.NewEvent(EventBodyAdded, eventSource, BodyEvent{ID: b.id, Shape: b.shape.Kind()}))
	return nil
}

// RemoveBody reports whether b was part of the world.
func (w *World) RemoveBody(b *Body) bool {
	w.mu.Lock()
	i := slices.Index(w.bodies, b)
	if i < 0 {
		w.mu.Unlock()
		return false
	}
	w.bodies = slices.Delete(w.bodies, i, i+1)
	w.mu.Unlock()

	w.logger.Debug("Body removed", log.Stringer("body", b.id))
	w.publish(bus.NewEvent(EventBodyRemoved, eventSource, BodyEvent{ID: b.id, Shape: b.shape.Kind()}))
	return true
}

func (w *World) GetBody(index int) (*Body, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if index < 0 || index >= len(w.bodies) {
		return nil, fmt.Errorf("%w: index %d, %d bodies", ErrBodyNotFound, index, len(w.bodies))
	}
	return w.bodies[index], nil
}

func (w *World) FindBody(id BodyID) (*Body, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, b := range w.bodies {
		if b.id == id {
			return b, true
		}
	}
	return nil, false
}

func (w *World) BodyCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bodies)
}

// Bodies returns the bodies in index order. The slice is a copy.
func (w *World) Bodies() []*Body {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.bodies)
}

func (w *World) Stats() StepStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Step advances the simulation by dt seconds. Each of the configured sub-steps
// integrates every body, then tests every pair once in ascending index order,
// pushes overlapping bodies apart and applies the collision impulse.
// Non-positive dt is ignored.
func (w *World) Step(dt float64) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return
	}

	start := time.Now()
	var pending []bus.Event

	w.mu.Lock()
	pairs, contacts := 0, 0
	for it := 0; it < w.iterations; it++ {
		for _, b := range w.bodies {
			b.Step(dt, w.gravity, w.iterations)
		}

		for i := 0; i < len(w.bodies)-1; i++ {
			bodyA := w.bodies[i]
			for j := i + 1; j < len(w.bodies); j++ {
				bodyB := w.bodies[j]
				if bodyA.isStatic && bodyB.isStatic {
					continue
				}

				pairs++
				contact, ok := Collide(bodyA, bodyB)
				if !ok {
					continue
				}

				contacts++
				separate(bodyA, bodyB, contact)
				impulse := ResolveCollision(bodyA, bodyB, contact)

				if w.events != nil {
					pending = append(pending, bus.NewEvent(EventContact, eventSource, ContactEvent{
						A:       bodyA.id,
						B:       bodyB.id,
						Normal:  contact.Normal,
						Depth:   contact.Depth,
						Impulse: impulse,
					}))
				}
			}
		}
	}

	w.stats.Steps++
	w.stats.Bodies = len(w.bodies)
	w.stats.PairsTested = pairs
	w.stats.Contacts = contacts
	w.stats.Duration = time.Since(start)
	stats := w.stats
	w.mu.Unlock()

	if w.events != nil {
		pending = append(pending, bus.NewEvent(EventStep, eventSource, StepEvent{
			Step:     stats.Steps,
			Contacts: stats.Contacts,
		}))
		w.publish(pending...)
	}

	w.logger.Debug("Step completed",
		log.Uint64("step", stats.Steps),
		log.Int("bodies", stats.Bodies),
		log.Int("pairs", stats.PairsTested),
		log.Int("contacts", stats.Contacts),
		log.Duration("duration", stats.Duration))
}

// Collide runs the narrow-phase test matching the shapes of a and b. The
// returned normal points from a toward b whichever test ran.
func Collide(a, b *Body) (collision.Contact, bool) {
	switch shapeA := a.shape.(type) {
	case Polygon:
		switch shapeB := b.shape.(type) {
		case Polygon:
			return collision.IntersectPolygons(a.TransformedVertices(), b.TransformedVertices())
		case Circle:
			contact, ok := collision.IntersectCirclePolygon(b.position, shapeB.Radius, a.TransformedVertices())
			return contact.Flip(), ok
		}
	case Circle:
		switch shapeB := b.shape.(type) {
		case Polygon:
			return collision.IntersectCirclePolygon(a.position, shapeA.Radius, b.TransformedVertices())
		case Circle:
			return collision.IntersectCircles(a.position, shapeA.Radius, b.position, shapeB.Radius)
		}
	}
	return collision.Contact{}, false
}

// ResolveCollision applies the restitution impulse along the contact normal and
// returns its magnitude. Bodies already moving apart are left alone.
func ResolveCollision(a, b *Body, contact collision.Contact) float64 {
	relativeVelocity := b.linearVelocity.Sub(a.linearVelocity)
	velocityAlongNormal := relativeVelocity.Dot(contact.Normal)

	if velocityAlongNormal > 0 {
		return 0
	}

	invMassSum := a.invMass + b.invMass
	if invMassSum == 0 {
		return 0
	}

	e := math.Min(a.restitution, b.restitution)
	j := -(1 + e) * velocityAlongNormal / invMassSum

	impulse := contact.Normal.Mul(j)
	a.linearVelocity = a.linearVelocity.Sub(impulse.Mul(a.invMass))
	b.linearVelocity = b.linearVelocity.Add(impulse.Mul(b.invMass))

	return j
}

// separate pushes the bodies apart by the penetration depth. Static bodies stay
// put; two dynamic bodies split the correction evenly.
func separate(a, b *Body, contact collision.Contact) {
	mtv := contact.Normal.Mul(contact.Depth)

	switch {
	case a.isStatic:
		b.Move(mtv)
	case b.isStatic:
		a.Move(geom.Neg(mtv))
	default:
		half := mtv.Mul(0.5)
		a.Move(geom.Neg(half))
		b.Move(half)
	}
}

func (w *World) publish(events ...bus.Event) {
	if w.events == nil {
		return
	}
	for _, e := range events {
		if err := w.events.PublishToTopic(TopicPhysics, e); err != nil {
			w.logger.Warn("Event handler failed", log.String("event", e.Type()), log.Error(err))
		}
	}
}
