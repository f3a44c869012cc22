package vesc

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/ghalamif/vescflow/internal/domain"
)

func frame(id uint32, data []byte) domain.Frame {
	f := domain.Frame{ID: id, Len: uint8(len(data)), Received: time.Now()}
	copy(f.Data[:], data)
	return f
}

func TestDecodeThermalCurrentDutyVector(t *testing.T) {
	// Observed on the bus: temp 10.0 °C, motor current 50.0 A, duty 0.044.
	f := frame(domain.IDThermalCurrentDuty,
		[]byte{0x64, 0x00, 0xF4, 0x01, 0x2C, 0x00, 0x1E, 0x00})

	frag, err := Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tc, ok := frag.(domain.ThermalCurrentDutyFragment)
	if !ok {
		t.Fatalf("expected ThermalCurrentDutyFragment, got %T", frag)
	}
	if tc.TempFET != 10.0 {
		t.Fatalf("temp: expected 10.0, got %v", tc.TempFET)
	}
	if tc.MotorCurrent != 50.0 {
		t.Fatalf("current: expected 50.0, got %v", tc.MotorCurrent)
	}
	if tc.Duty != 0.044 {
		t.Fatalf("duty: expected 0.044, got %v", tc.Duty)
	}
}

func TestDecodeRpmVoltageVector(t *testing.T) {
	// Observed on the bus: rpm 6000, voltage 48.8 V. Compare against the
	// scaled raw value, not a decimal literal: 488*0.1 and the double
	// nearest 48.8 differ in the last bits, and the decoder never rounds.
	f := frame(domain.IDRpmVoltage,
		[]byte{0x70, 0x17, 0x00, 0x00, 0xE8, 0x01, 0x00, 0x00})

	frag, err := Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rv, ok := frag.(domain.RpmVoltageFragment)
	if !ok {
		t.Fatalf("expected RpmVoltageFragment, got %T", frag)
	}
	if rv.RPM != 6000 {
		t.Fatalf("rpm: expected 6000, got %d", rv.RPM)
	}
	if want := float64(488) * 0.1; rv.Voltage != want {
		t.Fatalf("voltage: expected %v, got %v", want, rv.Voltage)
	}
}

func TestDecodeNegativeValues(t *testing.T) {
	// Regen braking: negative current and temperature below zero survive
	// the int16 conversion; the decoder never clamps.
	data := EncodeThermalCurrentDuty(-105, -230, 0)
	frag, err := Decode(frame(domain.IDThermalCurrentDuty, data[:]))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	tc := frag.(domain.ThermalCurrentDutyFragment)
	if tc.TempFET != -10.5 {
		t.Fatalf("temp: expected -10.5, got %v", tc.TempFET)
	}
	if tc.MotorCurrent != -23.0 {
		t.Fatalf("current: expected -23.0, got %v", tc.MotorCurrent)
	}

	tacho := EncodeTachometer(-1234, 1234)
	frag, err = Decode(frame(domain.IDTachometer, tacho[:]))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	th := frag.(domain.TachometerFragment)
	if th.Relative != -1234 || th.Absolute != 1234 {
		t.Fatalf("tachometer: got %d/%d", th.Relative, th.Absolute)
	}
}

func TestDecodeUnrecognizedID(t *testing.T) {
	_, err := Decode(frame(0x000009, make([]byte, 8)))
	if !errors.Is(err, ErrUnrecognizedFrame) {
		t.Fatalf("expected ErrUnrecognizedFrame, got %v", err)
	}
}

func TestDecodeTruncated(t *testing.T) {
	for _, k := range []domain.Kind{
		domain.KindThermalCurrentDuty,
		domain.KindRpmVoltage,
		domain.KindAmpHours,
		domain.KindWattHours,
		domain.KindTachometer,
	} {
		short := make([]byte, requiredLen(k)-1)
		_, err := Decode(frame(k.ID(), short))
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("kind %s: expected ErrTruncated, got %v", k, err)
		}
	}
}

func TestRoundTripRandomized(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		tempRaw := int16(rng.Intn(1<<16) - 1<<15)
		curRaw := int16(rng.Intn(1<<16) - 1<<15)
		dutyRaw := uint8(rng.Intn(256))
		data := EncodeThermalCurrentDuty(tempRaw, curRaw, dutyRaw)
		frag, err := Decode(frame(domain.IDThermalCurrentDuty, data[:]))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		tc := frag.(domain.ThermalCurrentDutyFragment)
		if float64(tempRaw)*0.1 != tc.TempFET {
			t.Fatalf("temp scaling mismatch: raw %d got %v", tempRaw, tc.TempFET)
		}
		if float64(curRaw)*0.1 != tc.MotorCurrent {
			t.Fatalf("current scaling mismatch: raw %d got %v", curRaw, tc.MotorCurrent)
		}
		if float64(dutyRaw)*0.001 != tc.Duty {
			t.Fatalf("duty scaling mismatch: raw %d got %v", dutyRaw, tc.Duty)
		}

		rpm, voltRaw := rng.Int31()-1<<30, uint16(rng.Intn(1<<16))
		rvData := EncodeRpmVoltage(rpm, voltRaw)
		frag, err = Decode(frame(domain.IDRpmVoltage, rvData[:]))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		rv := frag.(domain.RpmVoltageFragment)
		if rv.RPM != rpm || rv.Voltage != float64(voltRaw)*0.1 {
			t.Fatalf("rpm/voltage did not round-trip: %d/%d got %d/%v",
				rpm, voltRaw, rv.RPM, rv.Voltage)
		}

		c, g := rng.Int31()-1<<30, rng.Int31()-1<<30
		ahData := EncodeAmpHours(c, g)
		frag, err = Decode(frame(domain.IDAmpHours, ahData[:]))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		ah := frag.(domain.AmpHoursFragment)
		if ah.Consumed != float64(c)*0.0001 || ah.Charged != float64(g)*0.0001 {
			t.Fatalf("amp hours did not round-trip: %d/%d", c, g)
		}

		whData := EncodeWattHours(c, g)
		frag, err = Decode(frame(domain.IDWattHours, whData[:]))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		wh := frag.(domain.WattHoursFragment)
		if wh.Consumed != float64(c)*0.0001 || wh.Charged != float64(g)*0.0001 {
			t.Fatalf("watt hours did not round-trip: %d/%d", c, g)
		}

		rel, abs := rng.Int31()-1<<30, rng.Int31()-1<<30
		thData := EncodeTachometer(rel, abs)
		frag, err = Decode(frame(domain.IDTachometer, thData[:]))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		th := frag.(domain.TachometerFragment)
		if th.Relative != rel || th.Absolute != abs {
			t.Fatalf("tachometer did not round-trip: %d/%d", rel, abs)
		}
	}
}

func TestFragmentKindsAndTimestamps(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		id   uint32
		kind domain.Kind
	}{
		{domain.IDThermalCurrentDuty, domain.KindThermalCurrentDuty},
		{domain.IDRpmVoltage, domain.KindRpmVoltage},
		{domain.IDAmpHours, domain.KindAmpHours},
		{domain.IDWattHours, domain.KindWattHours},
		{domain.IDTachometer, domain.KindTachometer},
	}
	for _, c := range cases {
		f := frame(c.id, make([]byte, 8))
		f.Received = at
		frag, err := Decode(f)
		if err != nil {
			t.Fatalf("decode kind %s: %v", c.kind, err)
		}
		if frag.Kind() != c.kind {
			t.Fatalf("expected kind %s, got %s", c.kind, frag.Kind())
		}
		if !frag.At().Equal(at) {
			t.Fatalf("fragment must carry the frame timestamp")
		}
	}
}
