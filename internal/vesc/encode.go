package vesc

import (
	"encoding/binary"

	"github.com/ghalamif/vescflow/internal/domain"
)

// Encoders for the status frames. The simulator uses them to put frames on
// the wire exactly as the firmware would; tests use them for round-trips.
// Raw integer arguments are in wire units (tenths, thousandths, ...).

// EncodeThermalCurrentDuty packs frame 0x000002.
func EncodeThermalCurrentDuty(tempRaw, currentRaw int16, dutyRaw uint8) [domain.FrameDataLen]byte {
	var d [domain.FrameDataLen]byte
	binary.LittleEndian.PutUint16(d[0:2], uint16(tempRaw))
	binary.LittleEndian.PutUint16(d[2:4], uint16(currentRaw))
	d[4] = dutyRaw
	return d
}

// EncodeRpmVoltage packs frame 0x000003.
func EncodeRpmVoltage(rpm int32, voltageRaw uint16) [domain.FrameDataLen]byte {
	var d [domain.FrameDataLen]byte
	binary.LittleEndian.PutUint32(d[0:4], uint32(rpm))
	binary.LittleEndian.PutUint16(d[4:6], voltageRaw)
	return d
}

// EncodeAmpHours packs frame 0x000004.
func EncodeAmpHours(consumedRaw, chargedRaw int32) [domain.FrameDataLen]byte {
	var d [domain.FrameDataLen]byte
	binary.LittleEndian.PutUint32(d[0:4], uint32(consumedRaw))
	binary.LittleEndian.PutUint32(d[4:8], uint32(chargedRaw))
	return d
}

// EncodeWattHours packs frame 0x000005.
func EncodeWattHours(consumedRaw, chargedRaw int32) [domain.FrameDataLen]byte {
	var d [domain.FrameDataLen]byte
	binary.LittleEndian.PutUint32(d[0:4], uint32(consumedRaw))
	binary.LittleEndian.PutUint32(d[4:8], uint32(chargedRaw))
	return d
}

// EncodeTachometer packs frame 0x000006.
func EncodeTachometer(relative, absolute int32) [domain.FrameDataLen]byte {
	var d [domain.FrameDataLen]byte
	binary.LittleEndian.PutUint32(d[0:4], uint32(relative))
	binary.LittleEndian.PutUint32(d[4:8], uint32(absolute))
	return d
}
