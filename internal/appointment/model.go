package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending     Status = "Pending"
	StatusConfirm     Status = "Confirm"
	StatusRescheduled Status = "Rescheduled"
	StatusCompleted   Status = "Completed"
	StatusCancelled   Status = "Cancelled"
	StatusMissed      Status = "Missed"
)

// blockingStatuses is the set checked by the booking conflict query. The
// availability filter is wider: anything other than Cancelled holds its
// slot, so a Completed or Missed appointment keeps the slot occupied for
// that date.
var blockingStatuses = []Status{StatusPending, StatusConfirm, StatusRescheduled}

// Blocks reports whether an appointment in this status occupies its slot.
func (s Status) Blocks() bool {
	return s != StatusCancelled
}

type Patient struct {
	ID            uuid.UUID
	PatientNumber int64
	Name          string
	Email         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Availability is a doctor's recurring offering: a fixed ordered set of slot
// labels, plus specific dates on which nothing is offered at all.
type Availability struct {
	TimeSlots        []string
	DatesUnavailable []time.Time
}

// Unavailable reports whether date is a blackout date. Dates compare by
// calendar day only.
func (a Availability) Unavailable(date time.Time) bool {
	for _, d := range a.DatesUnavailable {
		if SameDate(d, date) {
			return true
		}
	}
	return false
}

type Doctor struct {
	ID           uuid.UUID
	DoctorNumber int64
	Name         string
	Email        string
	Specialty    string
	Availability Availability
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Appointment struct {
	ID                uuid.UUID
	AppointmentNumber int64
	PatientID         uuid.UUID
	DoctorID          uuid.UUID
	AppointmentDate   time.Time // calendar date, zone-naive
	TimeSlot          string
	ServiceType       string
	ReasonForVisit    string
	IsEmergency       bool
	Status            Status
	PrescriptionID    *uuid.UUID
	BillID            *uuid.UUID
	TestID            *uuid.UUID
	CreatedBy         uuid.UUID
	UpdatedBy         *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled     = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled   = "APPOINTMENT_RESCHEDULED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentMissed        = "APPOINTMENT_MISSED"
)

// EventLog is an append-only audit row written on every booking and
// lifecycle transition. Inserts are best-effort: a failed write never fails
// the transition itself.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Actor         *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Detail is an appointment hydrated with its patient and doctor summaries,
// used by the read endpoints.
type Detail struct {
	Appointment
	Patient *Patient
	Doctor  *Doctor
}

// DateOnly truncates t to its calendar day in UTC. Appointment dates are
// stored and compared in this form.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
