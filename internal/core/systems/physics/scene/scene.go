// Package scene describes a world and its bodies in YAML or JSON and builds
// a physics.World from it.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/flatsim/internal/core/systems/physics"
	"github.com/zeusync/flatsim/internal/core/systems/physics/geom"
)

const (
	ShapeCircle  = "circle"
	ShapeBox     = "box"
	ShapePolygon = "polygon"
)

const (
	DefaultStepRate = 60.0
	DefaultDensity  = 1.0
)

var (
	ErrUnknownShape      = errors.New("unknown body shape")
	ErrUnsupportedFormat = errors.New("unsupported scene format")
	ErrInvalidStepRate   = errors.New("step rate must be positive")
)

// Config is a scene document. Zero values fall back to the world defaults.
type Config struct {
	World  WorldConfig  `json:"world" yaml:"world"`
	Bodies []BodyConfig `json:"bodies" yaml:"bodies"`
}

type WorldConfig struct {
	Gravity    *geom.Vec2      `json:"gravity,omitempty" yaml:"gravity,omitempty"`
	Iterations int             `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Limits     *physics.Limits `json:"limits,omitempty" yaml:"limits,omitempty"`
	// StepRate is the number of steps per simulated second.
	StepRate float64 `json:"step_rate,omitempty" yaml:"step_rate,omitempty"`
}

type BodyConfig struct {
	Name     string      `json:"name,omitempty" yaml:"name,omitempty"`
	Shape    string      `json:"shape" yaml:"shape"`
	Radius   float64     `json:"radius,omitempty" yaml:"radius,omitempty"`
	Width    float64     `json:"width,omitempty" yaml:"width,omitempty"`
	Height   float64     `json:"height,omitempty" yaml:"height,omitempty"`
	Vertices []geom.Vec2 `json:"vertices,omitempty" yaml:"vertices,omitempty"`

	Position        geom.Vec2 `json:"position" yaml:"position"`
	Rotation        float64   `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Velocity        geom.Vec2 `json:"velocity,omitempty" yaml:"velocity,omitempty"`
	AngularVelocity float64   `json:"angular_velocity,omitempty" yaml:"angular_velocity,omitempty"`

	Density     float64 `json:"density,omitempty" yaml:"density,omitempty"`
	Static      bool    `json:"static,omitempty" yaml:"static,omitempty"`
	Restitution float64 `json:"restitution,omitempty" yaml:"restitution,omitempty"`
}

// LoadJSON loads a scene from a JSON reader.
func LoadJSON(r io.Reader) (*Config, error) {
	var c Config
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode json scene: %w", err)
	}
	return &c, nil
}

// LoadYAML loads a scene from a YAML reader.
func LoadYAML(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml scene: %w", err)
	}
	return &c, nil
}

// LoadFile picks the decoder from the file extension: .yaml, .yml or .json.
func LoadFile(path string) (*Config, error) {
	var load func(io.Reader) (*Config, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		load = LoadYAML
	case ".json":
		load = LoadJSON
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	c, err := load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// StepInterval is the simulated time covered by one step.
func (c *Config) StepInterval() time.Duration {
	rate := c.World.StepRate
	if rate <= 0 {
		rate = DefaultStepRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// Options converts the world section to world options.
func (c *Config) Options() ([]physics.WorldOption, error) {
	if c.World.StepRate < 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidStepRate, c.World.StepRate)
	}

	var opts []physics.WorldOption
	if c.World.Gravity != nil {
		opts = append(opts, physics.WithGravity(*c.World.Gravity))
	}
	if c.World.Iterations != 0 {
		opts = append(opts, physics.WithIterations(c.World.Iterations))
	}
	if c.World.Limits != nil {
		if err := c.World.Limits.Validate(); err != nil {
			return nil, err
		}
		opts = append(opts, physics.WithLimits(*c.World.Limits))
	}
	return opts, nil
}

// Build creates a world from the scene. opts are applied after the scene's own
// settings, so callers can override them or attach a logger and event bus.
func (c *Config) Build(opts ...physics.WorldOption) (*physics.World, error) {
	sceneOpts, err := c.Options()
	if err != nil {
		return nil, err
	}

	world := physics.NewWorld(append(sceneOpts, opts...)...)
	limits := world.Limits()
	for i, bc := range c.Bodies {
		body, err := bc.build(limits)
		if err != nil {
			if bc.Name != "" {
				return nil, fmt.Errorf("body %d (%s): %w", i, bc.Name, err)
			}
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
		if err = world.AddBody(body); err != nil {
			return nil, fmt.Errorf("body %d: %w", i, err)
		}
	}
	return world, nil
}

func (bc BodyConfig) build(limits physics.Limits) (*physics.Body, error) {
	density := bc.Density
	if density == 0 {
		density = DefaultDensity
	}

	var (
		body *physics.Body
		err  error
	)
	switch strings.ToLower(bc.Shape) {
	case ShapeCircle:
		body, err = limits.NewCircleBody(bc.Radius, bc.Position, density, bc.Static, bc.Restitution)
	case ShapeBox:
		body, err = limits.NewBoxBody(bc.Width, bc.Height, bc.Position, density, bc.Static, bc.Restitution)
	case ShapePolygon:
		body, err = limits.NewPolygonBody(bc.Vertices, bc.Position, density, bc.Static, bc.Restitution)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, bc.Shape)
	}
	if err != nil {
		return nil, err
	}

	if bc.Rotation != 0 {
		body.Rotate(bc.Rotation)
	}
	if !bc.Static {
		body.SetLinearVelocity(bc.Velocity)
		body.SetRotationalVelocity(bc.AngularVelocity)
	}
	return body, nil
}

// Default is a small demo: a static floor and two ramps with a few bodies
// dropped above them.
func Default() *Config {
	return &Config{
		World: WorldConfig{StepRate: DefaultStepRate},
		Bodies: []BodyConfig{
			{Name: "ground", Shape: ShapeBox, Width: 40, Height: 2, Position: geom.V(0, -10), Static: true, Restitution: 0.5},
			{Name: "ramp-left", Shape: ShapeBox, Width: 12, Height: 1, Position: geom.V(-8, 0), Rotation: -0.3, Static: true, Restitution: 0.5},
			{Name: "ramp-right", Shape: ShapeBox, Width: 12, Height: 1, Position: geom.V(8, 3), Rotation: 0.3, Static: true, Restitution: 0.5},
			{Name: "ball", Shape: ShapeCircle, Radius: 0.75, Position: geom.V(-10, 6), Density: 2, Restitution: 0.6},
			{Name: "crate", Shape: ShapeBox, Width: 1.5, Height: 1.5, Position: geom.V(9, 8), Density: 1.5, Restitution: 0.3},
			{
				Name:        "wedge",
				Shape:       ShapePolygon,
				Vertices:    []geom.Vec2{geom.V(-1, -1), geom.V(1, -1), geom.V(0, 1)},
				Position:    geom.V(0, 12),
				Restitution: 0.4,
			},
		},
	}
}
