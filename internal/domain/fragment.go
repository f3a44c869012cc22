package domain

import "time"

// Fragment is the decoded content of a single status frame. Each variant
// carries only the fields its frame kind owns, scaled to physical units.
type Fragment interface {
	Kind() Kind
	At() time.Time
}

// ThermalCurrentDutyFragment carries MOSFET temperature, motor current and
// duty cycle (frame 0x000002).
type ThermalCurrentDutyFragment struct {
	TempFET      float64 // °C
	MotorCurrent float64 // A
	Duty         float64 // 0.0–1.0
	Received     time.Time
}

func (f ThermalCurrentDutyFragment) Kind() Kind    { return KindThermalCurrentDuty }
func (f ThermalCurrentDutyFragment) At() time.Time { return f.Received }

// RpmVoltageFragment carries rotor RPM and battery voltage (frame 0x000003).
type RpmVoltageFragment struct {
	RPM      int32
	Voltage  float64 // V
	Received time.Time
}

func (f RpmVoltageFragment) Kind() Kind    { return KindRpmVoltage }
func (f RpmVoltageFragment) At() time.Time { return f.Received }

// AmpHoursFragment carries charge counters (frame 0x000004).
type AmpHoursFragment struct {
	Consumed float64 // Ah
	Charged  float64 // Ah
	Received time.Time
}

func (f AmpHoursFragment) Kind() Kind    { return KindAmpHours }
func (f AmpHoursFragment) At() time.Time { return f.Received }

// WattHoursFragment carries energy counters (frame 0x000005).
type WattHoursFragment struct {
	Consumed float64 // Wh
	Charged  float64 // Wh
	Received time.Time
}

func (f WattHoursFragment) Kind() Kind    { return KindWattHours }
func (f WattHoursFragment) At() time.Time { return f.Received }

// TachometerFragment carries raw tachometer counts (frame 0x000006).
type TachometerFragment struct {
	Relative int32
	Absolute int32
	Received time.Time
}

func (f TachometerFragment) Kind() Kind    { return KindTachometer }
func (f TachometerFragment) At() time.Time { return f.Received }
