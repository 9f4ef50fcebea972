package appointment

import "time"

// AvailableSlots computes the bookable slot labels for a doctor on a given
// date. It is a pure function and is the single source of slot-filtering
// truth: both the server-side booking validation and the client-facing slot
// picker run exactly this.
//
// A blackout date yields no slots regardless of existing appointments.
// Otherwise the doctor's configured slots are returned in configured order,
// minus any slot held on that date by an appointment that is not Cancelled.
func AvailableSlots(doc *Doctor, date time.Time, existing []Appointment) []string {
	if doc == nil || len(doc.Availability.TimeSlots) == 0 {
		return nil
	}
	if doc.Availability.Unavailable(date) {
		return nil
	}

	taken := make(map[string]bool)
	for _, appt := range existing {
		if appt.DoctorID != doc.ID {
			continue
		}
		if !SameDate(appt.AppointmentDate, date) {
			continue
		}
		if !appt.Status.Blocks() {
			continue
		}
		taken[appt.TimeSlot] = true
	}

	var free []string
	for _, slot := range doc.Availability.TimeSlots {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free
}
