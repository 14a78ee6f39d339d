package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/flatsim/internal/core/events/bus"
	"github.com/zeusync/flatsim/internal/core/observability/log"
	"github.com/zeusync/flatsim/internal/core/systems/physics"
	"github.com/zeusync/flatsim/internal/core/systems/physics/scene"
	"github.com/zeusync/flatsim/internal/injector"
	"github.com/zeusync/flatsim/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "flatsim:", err)
		os.Exit(1)
	}
}

func run() error {
	defaults := server.DefaultConfig()

	scenePath := flag.String("scene", "", "scene file (.yaml, .yml or .json); built-in demo when empty")
	addr := flag.String("addr", defaults.ListenAddr, "listen address for /ws and /healthz")
	levelName := flag.String("log-level", "info", "debug, info, warn or error")
	logContacts := flag.Bool("log-contacts", false, "log every contact at debug level")
	flag.Parse()

	level, err := log.ParseLevel(*levelName)
	if err != nil {
		return err
	}

	sceneConfig := scene.Default()
	if *scenePath != "" {
		if sceneConfig, err = scene.LoadFile(*scenePath); err != nil {
			return err
		}
	}

	serverConfig := defaults
	serverConfig.ListenAddr = *addr
	serverConfig.TickInterval = sceneConfig.StepInterval()

	app, err := injector.InitializeApp(level, sceneConfig, serverConfig)
	if err != nil {
		return err
	}
	defer func() { _ = app.Logger.Sync() }()

	if *logContacts {
		_, err = app.Events.SubscribeTopic(physics.TopicPhysics, physics.EventContact, func(e bus.Event) error {
			c := e.Data().(physics.ContactEvent)
			app.Logger.Debug("Contact",
				log.Stringer("a", c.A),
				log.Stringer("b", c.B),
				log.Float64("depth", c.Depth),
				log.Float64("impulse", c.Impulse))
			return nil
		})
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = app.Server.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Server.Wait() }()

	select {
	case <-ctx.Done():
		app.Logger.Info("Shutdown signal received")
	case err = <-errCh:
		app.Logger.Error("Server failed", log.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()
	if stopErr := app.Server.Stop(shutdownCtx); stopErr != nil && err == nil {
		err = stopErr
	}

	app.Logger.Info("Simulation finished",
		log.Uint64("steps", app.World.Stats().Steps),
		log.Uint64("checksum", app.World.Checksum()),
		log.Duration("simulated", time.Duration(app.World.Stats().Steps)*serverConfig.TickInterval))
	return err
}
