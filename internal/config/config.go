package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ackersim/internal/control"
	"github.com/san-kum/ackersim/internal/models"
	"github.com/san-kum/ackersim/internal/sim"
)

const (
	DefaultDt = 0.1
	DefaultKp = 1.0
	DefaultKi = 0.1
	DefaultKd = 0.01
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Vehicle  models.Geometry `yaml:"vehicle"`
	Velocity control.Gains   `yaml:"velocity"`
	Heading  control.Gains   `yaml:"heading"`
	Dt       float64         `yaml:"dt"`
	Session  SessionConfig   `yaml:"session"`
	Mode     string          `yaml:"mode"`
	Initial  InitStateConfig `yaml:"init_state"`
}

type SessionConfig struct {
	TargetHeading  float64 `yaml:"target_heading"`
	TargetVelocity float64 `yaml:"target_velocity"`
	MaxIterations  int     `yaml:"max_iterations"`
	Threshold      float64 `yaml:"threshold"`
}

type InitStateConfig struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Theta    float64 `yaml:"theta"`
	Velocity float64 `yaml:"velocity"`
}

func DefaultConfig() *Config {
	gains := control.Gains{Kp: DefaultKp, Ki: DefaultKi, Kd: DefaultKd}
	return &Config{
		Vehicle:  models.DefaultGeometry(),
		Velocity: gains,
		Heading:  gains,
		Dt:       DefaultDt,
		Session: SessionConfig{
			TargetHeading:  0.2,
			TargetVelocity: 2.0,
			MaxIterations:  sim.DefaultMaxIterations,
			Threshold:      sim.DefaultThreshold,
		},
		Mode: string(sim.ModeTurn),
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays the file on cfg. Keys absent from the file keep cfg's
// values.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks what the simulator would reject, before anything is built.
// Negative targets are allowed; the session guard ends them as rejected.
func (c *Config) Validate() error {
	if err := c.Vehicle.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidConfig, c.Dt)
	}
	if c.Session.MaxIterations <= 0 {
		return fmt.Errorf("%w: max_iterations must be positive, got %d", ErrInvalidConfig, c.Session.MaxIterations)
	}
	if !(c.Session.Threshold > 0) {
		return fmt.Errorf("%w: threshold must be positive, got %v", ErrInvalidConfig, c.Session.Threshold)
	}
	if _, err := sim.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// SimSession is the session the config describes.
func (c *Config) SimSession() sim.Session {
	mode, _ := sim.ParseMode(c.Mode)
	return sim.Session{
		TargetHeading:  c.Session.TargetHeading,
		TargetVelocity: c.Session.TargetVelocity,
		MaxIterations:  c.Session.MaxIterations,
		Threshold:      c.Session.Threshold,
		Mode:           mode,
	}
}

// NewSimulator builds a fresh simulator placed at the configured start pose.
func (c *Config) NewSimulator() (*sim.Simulator, error) {
	s, err := sim.New(c.Vehicle, c.Velocity, c.Dt, c.Heading)
	if err != nil {
		return nil, err
	}
	in := c.Initial
	if err := s.SetInitialState(in.X, in.Y, in.Theta, in.Velocity); err != nil {
		return nil, err
	}
	return s, nil
}

// Factory adapts NewSimulator for batch runs.
func (c *Config) Factory() sim.Factory {
	return c.NewSimulator
}

func (c *Config) GetControllerParams() map[string]float64 {
	return map[string]float64{
		"vel_kp":  c.Velocity.Kp,
		"vel_ki":  c.Velocity.Ki,
		"vel_kd":  c.Velocity.Kd,
		"head_kp": c.Heading.Kp,
		"head_ki": c.Heading.Ki,
		"head_kd": c.Heading.Kd,
		"dt":      c.Dt,
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
