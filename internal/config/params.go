package config

import (
	"fmt"
	"sort"
)

var params = map[string]func(c *Config) *float64{
	"vel_kp":       func(c *Config) *float64 { return &c.Velocity.Kp },
	"vel_ki":       func(c *Config) *float64 { return &c.Velocity.Ki },
	"vel_kd":       func(c *Config) *float64 { return &c.Velocity.Kd },
	"head_kp":      func(c *Config) *float64 { return &c.Heading.Kp },
	"head_ki":      func(c *Config) *float64 { return &c.Heading.Ki },
	"head_kd":      func(c *Config) *float64 { return &c.Heading.Kd },
	"dt":           func(c *Config) *float64 { return &c.Dt },
	"heading":      func(c *Config) *float64 { return &c.Session.TargetHeading },
	"velocity":     func(c *Config) *float64 { return &c.Session.TargetVelocity },
	"threshold":    func(c *Config) *float64 { return &c.Session.Threshold },
	"wheelbase":    func(c *Config) *float64 { return &c.Vehicle.Wheelbase },
	"track_width":  func(c *Config) *float64 { return &c.Vehicle.TrackWidth },
	"wheel_radius": func(c *Config) *float64 { return &c.Vehicle.WheelRadius },
	"max_steer":    func(c *Config) *float64 { return &c.Vehicle.MaxSteeringAngle },
}

// SetParam assigns a named scalar, as used by sweeps and tuning.
func (c *Config) SetParam(name string, v float64) error {
	field, ok := params[name]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidConfig, name)
	}
	*field(c) = v
	return nil
}

func (c *Config) Param(name string) (float64, bool) {
	field, ok := params[name]
	if !ok {
		return 0, false
	}
	return *field(c), true
}

func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
