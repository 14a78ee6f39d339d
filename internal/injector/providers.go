package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/flatsim/internal/core/events/bus"
	"github.com/zeusync/flatsim/internal/core/observability/log"
	"github.com/zeusync/flatsim/internal/core/systems/physics"
	"github.com/zeusync/flatsim/internal/core/systems/physics/scene"
	"github.com/zeusync/flatsim/internal/server"
)

// App is everything cmd/flatsim needs to run.
type App struct {
	Logger *log.Logger
	Events bus.EventBus
	World  *physics.World
	Server *server.Server
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideEventBus,
	ProvideWorld,
	ProvideServer,
	wire.Struct(new(App), "*"),
)

func ProvideLogger(level log.Level) *log.Logger {
	return log.New(level)
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

// ProvideWorld builds the scene with the shared logger and event bus attached.
func ProvideWorld(cfg *scene.Config, logger log.Log, events bus.EventBus) (*physics.World, error) {
	return cfg.Build(physics.WithLogger(logger), physics.WithEventBus(events))
}

func ProvideServer(cfg server.Config, world *physics.World, logger log.Log) (*server.Server, error) {
	return server.NewServer(cfg, world, logger)
}
