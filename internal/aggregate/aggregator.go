// Package aggregate merges decoded status fragments into the live telemetry
// snapshot. The five frame kinds arrive independently and out of order; a
// merge touches only the fields its kind owns, so no arrival order can
// corrupt fields owned by another kind.
package aggregate

import (
	"github.com/ghalamif/vescflow/internal/domain"
)

// Aggregator owns the single live snapshot. It is written by exactly one
// goroutine (the manager loop); Merge returns a value copy safe to hand to
// the publisher.
type Aggregator struct {
	snap domain.Snapshot
}

func New() *Aggregator {
	return &Aggregator{}
}

// Merge overwrites the fields owned by the fragment's kind with its decoded
// values, stamps the kind's freshness, and reports which fields strictly
// changed. Merging an identical fragment twice yields an empty change set
// the second time.
func (a *Aggregator) Merge(frag domain.Fragment) (domain.Snapshot, domain.ChangeSet) {
	var changed domain.ChangeSet

	switch v := frag.(type) {
	case domain.ThermalCurrentDutyFragment:
		if a.snap.TempFET != v.TempFET {
			a.snap.TempFET = v.TempFET
			changed.Add(domain.FieldTempFET)
		}
		if a.snap.MotorCurrent != v.MotorCurrent {
			a.snap.MotorCurrent = v.MotorCurrent
			changed.Add(domain.FieldMotorCurrent)
		}
		if a.snap.Duty != v.Duty {
			a.snap.Duty = v.Duty
			changed.Add(domain.FieldDuty)
		}

	case domain.RpmVoltageFragment:
		if a.snap.RPM != v.RPM {
			a.snap.RPM = v.RPM
			changed.Add(domain.FieldRPM)
		}
		if a.snap.Voltage != v.Voltage {
			a.snap.Voltage = v.Voltage
			changed.Add(domain.FieldVoltage)
		}

	case domain.AmpHoursFragment:
		if a.snap.AhConsumed != v.Consumed {
			a.snap.AhConsumed = v.Consumed
			changed.Add(domain.FieldAhConsumed)
		}
		if a.snap.AhCharged != v.Charged {
			a.snap.AhCharged = v.Charged
			changed.Add(domain.FieldAhCharged)
		}

	case domain.WattHoursFragment:
		if a.snap.WhConsumed != v.Consumed {
			a.snap.WhConsumed = v.Consumed
			changed.Add(domain.FieldWhConsumed)
		}
		if a.snap.WhCharged != v.Charged {
			a.snap.WhCharged = v.Charged
			changed.Add(domain.FieldWhCharged)
		}

	case domain.TachometerFragment:
		if a.snap.Tachometer != v.Relative {
			a.snap.Tachometer = v.Relative
			changed.Add(domain.FieldTachometer)
		}
		if a.snap.TachometerAbs != v.Absolute {
			a.snap.TachometerAbs = v.Absolute
			changed.Add(domain.FieldTachometerAbs)
		}

	default:
		return a.snap, 0
	}

	a.snap.Updated[frag.Kind()] = frag.At()
	return a.snap, changed
}

// Snapshot returns a copy of the current live state.
func (a *Aggregator) Snapshot() domain.Snapshot {
	return a.snap
}
