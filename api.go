package vescflow

import (
	base "github.com/ghalamif/vescflow/pkg/vescflow"
)

// Re-exported errors for convenience.
var (
	ErrReceiveTimeout = base.ErrReceiveTimeout
	ErrSourceClosed   = base.ErrSourceClosed
	ErrNotStopped     = base.ErrNotStopped
	ErrAlreadyRunning = base.ErrAlreadyRunning
)

// Type aliases so consumers can import github.com/ghalamif/vescflow directly.
type (
	Config         = base.Config
	CANConfig      = base.CANConfig
	SimConfig      = base.SimConfig
	ManagerConfig  = base.ManagerConfig
	VehicleConfig  = base.VehicleConfig
	MetricsConfig  = base.MetricsConfig
	Runtime        = base.Runtime
	RuntimeOption  = base.RuntimeOption
	State          = base.State
	Stats          = base.Stats
	Snapshot       = base.Snapshot
	ChangeSet      = base.ChangeSet
	TelemetryField = base.TelemetryField
	Frame          = base.Frame
	FrameKind      = base.FrameKind
	FrameSource    = base.FrameSource
	Subscriber     = base.Subscriber
	SubscriberFunc = base.SubscriberFunc
	Observability  = base.Observability
	Field          = base.Field
	Vehicle        = base.Vehicle
	Report         = base.Report
	Update         = base.Update
	SimSource      = base.SimSource
)

// Lifecycle states.
const (
	StateStopped  = base.StateStopped
	StateStarting = base.StateStarting
	StateRunning  = base.StateRunning
	StateStopping = base.StateStopping
	StateFaulted  = base.StateFaulted
)

// Source modes.
const (
	ModeCAN     = base.ModeCAN
	ModeVirtual = base.ModeVirtual
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSource(src FrameSource) RuntimeOption {
	return base.WithSource(src)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithSubscriber(s Subscriber) RuntimeOption {
	return base.WithSubscriber(s)
}

// Subscriber adapters.
func NewChannelSubscriber(buffer int) (Subscriber, <-chan Update, func()) {
	return base.NewChannelSubscriber(buffer)
}

// ReportFrom flattens a snapshot with derived values for external consumers.
func ReportFrom(snap Snapshot, veh Vehicle) Report {
	return base.ReportFrom(snap, veh)
}
