//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/flatsim/internal/core/observability/log"
	"github.com/zeusync/flatsim/internal/core/systems/physics/scene"
	"github.com/zeusync/flatsim/internal/server"
)

func InitializeApp(level log.Level, sceneConfig *scene.Config, serverConfig server.Config) (*App, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
