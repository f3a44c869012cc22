package domain

import "time"

// FrameDataLen is the payload size of a classical CAN data frame as used by
// the VESC status broadcast.
const FrameDataLen = 8

// Frame is one raw CAN frame as delivered by a frame source. It is immutable
// once constructed; the decoder reads it and discards it.
type Frame struct {
	ID       uint32
	Len      uint8
	Data     [FrameDataLen]byte
	Received time.Time
}

// Payload returns the valid portion of the frame data.
func (f Frame) Payload() []byte {
	if f.Len > FrameDataLen {
		return f.Data[:]
	}
	return f.Data[:f.Len]
}

// Kind identifies one of the recognized VESC status frame types.
type Kind uint8

const (
	KindThermalCurrentDuty Kind = iota // CAN ID 0x000002
	KindRpmVoltage                     // CAN ID 0x000003
	KindAmpHours                       // CAN ID 0x000004
	KindWattHours                      // CAN ID 0x000005
	KindTachometer                     // CAN ID 0x000006

	NumKinds
)

// CAN identifiers of the five status frames broadcast by the controller.
const (
	IDThermalCurrentDuty uint32 = 0x000002
	IDRpmVoltage         uint32 = 0x000003
	IDAmpHours           uint32 = 0x000004
	IDWattHours          uint32 = 0x000005
	IDTachometer         uint32 = 0x000006
)

// KindForID maps a CAN identifier to its status frame kind. The second
// return value is false for identifiers outside the status set.
func KindForID(id uint32) (Kind, bool) {
	switch id {
	case IDThermalCurrentDuty:
		return KindThermalCurrentDuty, true
	case IDRpmVoltage:
		return KindRpmVoltage, true
	case IDAmpHours:
		return KindAmpHours, true
	case IDWattHours:
		return KindWattHours, true
	case IDTachometer:
		return KindTachometer, true
	}
	return 0, false
}

// ID returns the CAN identifier a kind is broadcast under.
func (k Kind) ID() uint32 {
	switch k {
	case KindThermalCurrentDuty:
		return IDThermalCurrentDuty
	case KindRpmVoltage:
		return IDRpmVoltage
	case KindAmpHours:
		return IDAmpHours
	case KindWattHours:
		return IDWattHours
	case KindTachometer:
		return IDTachometer
	}
	return 0
}

func (k Kind) String() string {
	switch k {
	case KindThermalCurrentDuty:
		return "thermal_current_duty"
	case KindRpmVoltage:
		return "rpm_voltage"
	case KindAmpHours:
		return "amp_hours"
	case KindWattHours:
		return "watt_hours"
	case KindTachometer:
		return "tachometer"
	}
	return "unknown"
}
