package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/vescflow/internal/adapters/sim"
	"github.com/ghalamif/vescflow/internal/adapters/socketcan"
	"github.com/ghalamif/vescflow/internal/domain"
)

// Mode selects which frame source the runtime opens.
const (
	ModeCAN     = "can"
	ModeVirtual = "virtual"
)

type Config struct {
	Mode    string           `yaml:"mode"`
	CAN     socketcan.Config `yaml:"can"`
	Sim     sim.Config       `yaml:"sim"`
	Manager ManagerConfig    `yaml:"manager"`
	Vehicle VehicleConfig    `yaml:"vehicle"`
	Metrics MetricsConfig    `yaml:"metrics"`
}

// ManagerConfig tunes the receive loop and its fault recovery.
type ManagerConfig struct {
	ReceiveTimeout    time.Duration `yaml:"receive_timeout"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	ReconnectBackoff  time.Duration `yaml:"reconnect_backoff"`
}

// VehicleConfig holds the geometry used for derived road speed.
type VehicleConfig struct {
	WheelDiameterM float64 `yaml:"wheel_diameter_m"`
	GearRatio      float64 `yaml:"gear_ratio"`
}

func (v VehicleConfig) Vehicle() domain.Vehicle {
	return domain.Vehicle{WheelDiameterM: v.WheelDiameterM, GearRatio: v.GearRatio}
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeCAN
	}
	if c.Manager.ReceiveTimeout == 0 {
		c.Manager.ReceiveTimeout = 100 * time.Millisecond
	}
	if c.Manager.ReconnectAttempts == 0 {
		c.Manager.ReconnectAttempts = 5
	}
	if c.Manager.ReconnectBackoff == 0 {
		c.Manager.ReconnectBackoff = 500 * time.Millisecond
	}
	if c.Vehicle.WheelDiameterM == 0 {
		c.Vehicle.WheelDiameterM = 0.330 // 13" wheel
	}
	if c.Vehicle.GearRatio == 0 {
		c.Vehicle.GearRatio = 1.0 // direct drive
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}

	c.CAN.ApplyDefaults()
	c.Sim.ApplyDefaults()
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeCAN:
		if err := c.CAN.Validate(); err != nil {
			return fmt.Errorf("can config: %w", err)
		}
	case ModeVirtual:
		if err := c.Sim.Validate(); err != nil {
			return fmt.Errorf("sim config: %w", err)
		}
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeCAN, ModeVirtual, c.Mode)
	}

	if c.Manager.ReceiveTimeout <= 0 {
		return fmt.Errorf("manager.receive_timeout must be > 0")
	}
	if c.Manager.ReconnectAttempts < 0 {
		return fmt.Errorf("manager.reconnect_attempts must be >= 0")
	}
	if c.Vehicle.WheelDiameterM <= 0 {
		return fmt.Errorf("vehicle.wheel_diameter_m must be > 0")
	}
	if c.Vehicle.GearRatio <= 0 {
		return fmt.Errorf("vehicle.gear_ratio must be > 0")
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}
