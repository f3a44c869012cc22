package domain

import (
	"math"
	"strings"
	"time"
)

// Field identifies one telemetry quantity in a Snapshot.
type Field uint8

const (
	FieldTempFET Field = iota
	FieldMotorCurrent
	FieldDuty
	FieldRPM
	FieldVoltage
	FieldAhConsumed
	FieldAhCharged
	FieldWhConsumed
	FieldWhCharged
	FieldTachometer
	FieldTachometerAbs
	FieldBatteryCurrent
	FieldFaultCode

	NumFields
)

func (f Field) String() string {
	switch f {
	case FieldTempFET:
		return "temp_fet"
	case FieldMotorCurrent:
		return "motor_current"
	case FieldDuty:
		return "duty"
	case FieldRPM:
		return "rpm"
	case FieldVoltage:
		return "voltage"
	case FieldAhConsumed:
		return "amp_hours_consumed"
	case FieldAhCharged:
		return "amp_hours_charged"
	case FieldWhConsumed:
		return "watt_hours_consumed"
	case FieldWhCharged:
		return "watt_hours_charged"
	case FieldTachometer:
		return "tachometer"
	case FieldTachometerAbs:
		return "tachometer_abs"
	case FieldBatteryCurrent:
		return "battery_current"
	case FieldFaultCode:
		return "fault_code"
	}
	return "unknown"
}

// FieldsOf returns the snapshot fields owned by a frame kind. A kind's
// update may touch these fields and no others.
func FieldsOf(k Kind) []Field {
	switch k {
	case KindThermalCurrentDuty:
		return []Field{FieldTempFET, FieldMotorCurrent, FieldDuty}
	case KindRpmVoltage:
		return []Field{FieldRPM, FieldVoltage}
	case KindAmpHours:
		return []Field{FieldAhConsumed, FieldAhCharged}
	case KindWattHours:
		return []Field{FieldWhConsumed, FieldWhCharged}
	case KindTachometer:
		return []Field{FieldTachometer, FieldTachometerAbs}
	}
	return nil
}

// ChangeSet is the set of fields whose values differ between two
// consecutive snapshots.
type ChangeSet uint16

// Add marks a field as changed.
func (c *ChangeSet) Add(f Field) { *c |= 1 << f }

// Has reports whether a field is in the set.
func (c ChangeSet) Has(f Field) bool { return c&(1<<f) != 0 }

// Empty reports whether no field changed.
func (c ChangeSet) Empty() bool { return c == 0 }

// Fields expands the set into the individual field identifiers.
func (c ChangeSet) Fields() []Field {
	if c == 0 {
		return nil
	}
	out := make([]Field, 0, NumFields)
	for f := Field(0); f < NumFields; f++ {
		if c.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (c ChangeSet) String() string {
	fs := c.Fields()
	if len(fs) == 0 {
		return "(none)"
	}
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}

// Snapshot is the merged telemetry state of the motor controller. Battery
// current and fault code have no owning frame in the five-frame status set;
// they hold their defaults until a controller broadcasting the extended
// status set fills them in.
type Snapshot struct {
	TempFET        float64 // °C
	MotorCurrent   float64 // A
	BatteryCurrent float64 // A
	Duty           float64 // 0.0–1.0
	RPM            int32
	Voltage        float64 // V
	AhConsumed     float64 // Ah
	AhCharged      float64 // Ah
	WhConsumed     float64 // Wh
	WhCharged      float64 // Wh
	Tachometer     int32
	TachometerAbs  int32
	FaultCode      uint8

	// Updated holds the arrival time of the newest frame per kind; the
	// zero time means the kind has never been seen.
	Updated [NumKinds]time.Time
}

// Seen reports whether at least one frame of the kind has been merged.
func (s *Snapshot) Seen(k Kind) bool { return !s.Updated[k].IsZero() }

// Stale reports whether a field still holds its default because its owning
// frame kind has never arrived. Fields without an owning kind in this
// status set are always stale.
func (s *Snapshot) Stale(f Field) bool {
	for k := Kind(0); k < NumKinds; k++ {
		for _, owned := range FieldsOf(k) {
			if owned == f {
				return !s.Seen(k)
			}
		}
	}
	return true
}

// FieldUpdatedAt returns when a field's owning frame kind last arrived;
// the zero time if never.
func (s *Snapshot) FieldUpdatedAt(f Field) time.Time {
	for k := Kind(0); k < NumKinds; k++ {
		for _, owned := range FieldsOf(k) {
			if owned == f {
				return s.Updated[k]
			}
		}
	}
	return time.Time{}
}

// Power is the instantaneous electrical power in W, derived on demand from
// voltage and motor current. This status set does not broadcast battery
// current, so the motor side is the measured one.
func (s *Snapshot) Power() float64 { return s.Voltage * s.MotorCurrent }

// Efficiency is the controller's efficiency estimate in percent:
// motor current × voltage / power × 100, guarded to 0 near zero power.
func (s *Snapshot) Efficiency() float64 {
	p := s.Power()
	if math.Abs(p) < 1e-9 {
		return 0
	}
	return s.MotorCurrent * s.Voltage / p * 100.0
}

// Vehicle holds the geometry needed to turn rotor RPM into road speed.
type Vehicle struct {
	WheelDiameterM float64
	GearRatio      float64
}

// SpeedKPH derives road speed from the snapshot's RPM.
func (v Vehicle) SpeedKPH(s *Snapshot) float64 {
	if v.GearRatio == 0 {
		return 0
	}
	circumference := math.Pi * v.WheelDiameterM
	ms := float64(s.RPM) / v.GearRatio * circumference / 60.0
	return ms * 3.6
}
