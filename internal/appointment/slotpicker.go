package appointment

import (
	"time"

	"github.com/google/uuid"
)

// SlotPicker re-derives bookable slots for display from a locally cached
// snapshot of doctors and appointment history, fetched once and reused
// across date changes. All three role surfaces (patient booking, doctor
// dashboard, clinic appointment manager) share this one implementation.
//
// The snapshot is advisory: another booking may race ahead of it, in which
// case the authoritative server-side check at submission time rejects the
// stale pick with a conflict.
type SlotPicker struct {
	doctors []Doctor
	byID    map[uuid.UUID]*Doctor
	byNum   map[int64]*Doctor
	history []Appointment
}

// NewSlotPicker builds a picker over a snapshot. Refresh by building a new
// picker from fresh fetches.
func NewSlotPicker(doctors []Doctor, history []Appointment) *SlotPicker {
	p := &SlotPicker{
		doctors: doctors,
		byID:    make(map[uuid.UUID]*Doctor, len(doctors)),
		byNum:   make(map[int64]*Doctor, len(doctors)),
		history: history,
	}
	for i := range p.doctors {
		d := &p.doctors[i]
		p.byID[d.ID] = d
		p.byNum[d.DoctorNumber] = d
	}
	return p
}

// Doctors lists the snapshot's doctors in fetch order.
func (p *SlotPicker) Doctors() []Doctor {
	return p.doctors
}

// DoctorByNumber resolves a doctor by the human-facing number shown in the
// picker UI.
func (p *SlotPicker) DoctorByNumber(num int64) (*Doctor, bool) {
	d, ok := p.byNum[num]
	return d, ok
}

// SlotsFor recomputes the selectable slots for a doctor and date, to be
// re-run on every date change.
func (p *SlotPicker) SlotsFor(doctorID uuid.UUID, date time.Time) []string {
	doc, ok := p.byID[doctorID]
	if !ok {
		return nil
	}
	return AvailableSlots(doc, date, p.history)
}
