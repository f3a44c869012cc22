// Package vesc decodes the VESC controller's five-frame status broadcast.
//
// All multi-byte integers on the wire are little-endian. Raw integers are
// scaled by fixed decimal factors to physical units; the decoder never
// clamps — out-of-range values are a presentation concern.
package vesc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ghalamif/vescflow/internal/domain"
)

var (
	// ErrUnrecognizedFrame marks a CAN identifier outside the status set.
	ErrUnrecognizedFrame = errors.New("vesc: unrecognized frame id")
	// ErrTruncated marks a payload shorter than its frame kind requires.
	ErrTruncated = errors.New("vesc: truncated payload")
)

// Scale factors per the VESC status protocol.
const (
	scaleTemp    = 0.1    // °C per count
	scaleCurrent = 0.1    // A per count
	scaleDuty    = 0.001  // duty per count (0–1000 on the wire)
	scaleVoltage = 0.1    // V per count
	scaleAmpHr   = 0.0001 // Ah per count
	scaleWattHr  = 0.0001 // Wh per count
)

// Minimum payload bytes required per frame kind.
func requiredLen(k domain.Kind) int {
	switch k {
	case domain.KindThermalCurrentDuty:
		return 5
	case domain.KindRpmVoltage:
		return 6
	default:
		return 8
	}
}

// Decode parses one raw frame into its typed status fragment. It is pure:
// on error nothing is produced and no state is touched anywhere.
func Decode(f domain.Frame) (domain.Fragment, error) {
	kind, ok := domain.KindForID(f.ID)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%06X", ErrUnrecognizedFrame, f.ID)
	}

	data := f.Payload()
	if len(data) < requiredLen(kind) {
		return nil, fmt.Errorf("%w: kind %s needs %d bytes, got %d",
			ErrTruncated, kind, requiredLen(kind), len(data))
	}

	switch kind {
	case domain.KindThermalCurrentDuty:
		return domain.ThermalCurrentDutyFragment{
			TempFET:      float64(int16(binary.LittleEndian.Uint16(data[0:2]))) * scaleTemp,
			MotorCurrent: float64(int16(binary.LittleEndian.Uint16(data[2:4]))) * scaleCurrent,
			Duty:         float64(data[4]) * scaleDuty,
			Received:     f.Received,
		}, nil

	case domain.KindRpmVoltage:
		return domain.RpmVoltageFragment{
			RPM:      int32(binary.LittleEndian.Uint32(data[0:4])),
			Voltage:  float64(binary.LittleEndian.Uint16(data[4:6])) * scaleVoltage,
			Received: f.Received,
		}, nil

	case domain.KindAmpHours:
		return domain.AmpHoursFragment{
			Consumed: float64(int32(binary.LittleEndian.Uint32(data[0:4]))) * scaleAmpHr,
			Charged:  float64(int32(binary.LittleEndian.Uint32(data[4:8]))) * scaleAmpHr,
			Received: f.Received,
		}, nil

	case domain.KindWattHours:
		return domain.WattHoursFragment{
			Consumed: float64(int32(binary.LittleEndian.Uint32(data[0:4]))) * scaleWattHr,
			Charged:  float64(int32(binary.LittleEndian.Uint32(data[4:8]))) * scaleWattHr,
			Received: f.Received,
		}, nil

	case domain.KindTachometer:
		return domain.TachometerFragment{
			Relative: int32(binary.LittleEndian.Uint32(data[0:4])),
			Absolute: int32(binary.LittleEndian.Uint32(data[4:8])),
			Received: f.Received,
		}, nil
	}

	return nil, fmt.Errorf("%w: 0x%06X", ErrUnrecognizedFrame, f.ID)
}
