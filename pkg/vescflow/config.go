package vescflow

import (
	"github.com/ghalamif/vescflow/internal/adapters/sim"
	"github.com/ghalamif/vescflow/internal/adapters/socketcan"
	"github.com/ghalamif/vescflow/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// CANConfig selects the SocketCAN interface for hardware mode.
	CANConfig = socketcan.Config
	// SimConfig tunes the virtual frame source.
	SimConfig = sim.Config
	// ManagerConfig tunes the receive loop and fault recovery.
	ManagerConfig = config.ManagerConfig
	// VehicleConfig holds the geometry for derived road speed.
	VehicleConfig = config.VehicleConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
)

// Source modes accepted by Config.Mode.
const (
	ModeCAN     = config.ModeCAN
	ModeVirtual = config.ModeVirtual
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
