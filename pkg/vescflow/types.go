package vescflow

import (
	"github.com/ghalamif/vescflow/internal/domain"
	"github.com/ghalamif/vescflow/internal/ports"
)

// Re-exported errors for convenience.
var (
	ErrReceiveTimeout = ports.ErrReceiveTimeout
	ErrSourceClosed   = ports.ErrSourceClosed
)

// Snapshot is the merged telemetry state published by the pipeline.
// It mirrors the internal domain type so custom subscribers can reference it.
type Snapshot = domain.Snapshot

// ChangeSet names the snapshot fields that changed in one publish.
type ChangeSet = domain.ChangeSet

// TelemetryField identifies one quantity inside a Snapshot.
type TelemetryField = domain.Field

// Frame is one raw CAN frame as produced by a frame source.
type Frame = domain.Frame

// FrameKind identifies one of the five recognized status frame types.
type FrameKind = domain.Kind

// Vehicle holds the geometry used to derive road speed from RPM.
type Vehicle = domain.Vehicle

// FrameSource produces raw frames; implement it to feed the pipeline from
// custom transports (candump replay, test rigs, other buses).
type FrameSource = ports.FrameSource

// Subscriber receives snapshot updates together with their change sets.
type Subscriber = ports.Subscriber

// SubscriberFunc adapts a plain function to the Subscriber interface.
type SubscriberFunc = ports.SubscriberFunc

// Observability emits metrics and logs about the pipeline.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// Report is the externalized view of a snapshot: every decoded quantity
// plus the derived values, ready for JSON serialization.
type Report struct {
	TempFET        float64 `json:"temp_fet"`
	MotorCurrent   float64 `json:"motor_current"`
	BatteryCurrent float64 `json:"battery_current"`
	Duty           float64 `json:"duty_cycle"`
	RPM            int32   `json:"rpm"`
	Voltage        float64 `json:"voltage"`
	AhConsumed     float64 `json:"amp_hours_consumed"`
	AhCharged      float64 `json:"amp_hours_charged"`
	WhConsumed     float64 `json:"watt_hours_consumed"`
	WhCharged      float64 `json:"watt_hours_charged"`
	Tachometer     int32   `json:"tachometer"`
	TachometerAbs  int32   `json:"tachometer_abs"`
	FaultCode      uint8   `json:"fault_code"`

	SpeedKPH   float64 `json:"speed_kph"`
	Power      float64 `json:"power"`
	Efficiency float64 `json:"efficiency"`
}

// ReportFrom flattens a snapshot and its derived values for external
// consumers. Derived values are recomputed here, never cached.
func ReportFrom(snap Snapshot, veh Vehicle) Report {
	return Report{
		TempFET:        snap.TempFET,
		MotorCurrent:   snap.MotorCurrent,
		BatteryCurrent: snap.BatteryCurrent,
		Duty:           snap.Duty,
		RPM:            snap.RPM,
		Voltage:        snap.Voltage,
		AhConsumed:     snap.AhConsumed,
		AhCharged:      snap.AhCharged,
		WhConsumed:     snap.WhConsumed,
		WhCharged:      snap.WhCharged,
		Tachometer:     snap.Tachometer,
		TachometerAbs:  snap.TachometerAbs,
		FaultCode:      snap.FaultCode,
		SpeedKPH:       veh.SpeedKPH(&snap),
		Power:          snap.Power(),
		Efficiency:     snap.Efficiency(),
	}
}
