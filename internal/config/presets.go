package config

import (
	"sort"

	"github.com/san-kum/ackersim/internal/sim"
)

func preset(modify func(c *Config)) *Config {
	c := DefaultConfig()
	modify(c)
	return c
}

var Presets = map[string]*Config{
	"reference": DefaultConfig(),
	"coarse": preset(func(c *Config) {
		c.Session.Threshold = 3
		c.Session.MaxIterations = 30
	}),
	"fine": preset(func(c *Config) {
		c.Session.Threshold = 0.01
		c.Session.MaxIterations = 1000
	}),
	"pose": preset(func(c *Config) {
		c.Mode = string(sim.ModePose)
		c.Session.MaxIterations = 200
		c.Velocity.Kp = 0.5
	}),
	"gentle": preset(func(c *Config) {
		c.Session.TargetHeading = 0.05
		c.Session.TargetVelocity = 0.5
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
