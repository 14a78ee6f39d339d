package physics

import (
	"context"

	"github.com/zeusync/flatsim/internal/core/observability/log"
	"github.com/zeusync/flatsim/internal/core/systems"
)

var _ systems.System = (*System)(nil)

// System runs a World inside a systems.Manager.
type System struct {
	world *World
}

func NewSystem(world *World) *System {
	return &System{world: world}
}

func (s *System) Name() string               { return "physics" }
func (s *System) Priority() systems.Priority { return systems.PriorityHigh }
func (s *System) World() *World              { return s.world }

func (s *System) Initialize(_ context.Context) error {
	s.world.logger.Info("Physics system initialized",
		log.Int("bodies", s.world.BodyCount()),
		log.Int("iterations", s.world.iterations))
	return nil
}

func (s *System) Update(deltaTime float64) error {
	s.world.Step(deltaTime)
	return nil
}

func (s *System) Shutdown(_ context.Context) error {
	stats := s.world.Stats()
	s.world.logger.Info("Physics system stopped", log.Uint64("steps", stats.Steps))
	return nil
}
