package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is the conflict error: the (doctor, date, slot) triple is
	// already held by an active appointment. Raised by the service's
	// pre-check and by the store's partial unique index on insert.
	ErrSlotTaken = errors.New("the doctor is not available at the selected time slot")

	// ErrSlotContended means the per-slot lock could not be acquired; the
	// caller may retry shortly.
	ErrSlotContended = errors.New("slot is currently being booked, please retry")

	// ErrAlreadyCancelled guards the terminal state: no mutation is
	// permitted once an appointment is Cancelled.
	ErrAlreadyCancelled = errors.New("the appointment is already cancelled")

	// ErrInvalidStatus is surfaced by the store when a status value outside
	// the enumerated set is written. The lifecycle layer deliberately does
	// not validate the value itself.
	ErrInvalidStatus = errors.New("invalid appointment status")
)

// ValidationError marks a missing required field on a request.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// CreateParams carries everything needed to persist a new appointment.
// Status and the appointment number are assigned by the store.
type CreateParams struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	Date           time.Time
	TimeSlot       string
	ServiceType    string
	ReasonForVisit string
	IsEmergency    bool
	CreatedBy      uuid.UUID
}

// Repository contains all store interactions needed by the booking and
// lifecycle services.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context) ([]Detail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListAppointmentsForDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error)

	// FindBlockingAppointment returns the appointment holding the triple
	// with a status in {Pending, Confirm, Rescheduled}, if any. exclude
	// (when non-nil) is skipped so a reschedule does not conflict with
	// itself. Returns ErrAppointmentNotFound when the slot is free.
	FindBlockingAppointment(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string, exclude uuid.UUID) (*Appointment, error)

	// CreateAppointment inserts a new Pending appointment with the next
	// appointment number. A unique-index violation on the slot triple comes
	// back as ErrSlotTaken.
	CreateAppointment(ctx context.Context, p CreateParams) (*Appointment, error)

	// UpdateStatus sets the status of a non-Cancelled appointment. The
	// update is guarded in the store (WHERE status <> 'Cancelled'); when the
	// guard loses, ErrAlreadyCancelled is returned.
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status, updatedBy uuid.UUID) (*Appointment, error)

	// Reschedule moves a non-Cancelled appointment to a new date and slot
	// and marks it Rescheduled, under the same guard as UpdateStatus.
	Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newSlot string, updatedBy uuid.UUID) (*Appointment, error)

	// FindPastActive lists Pending/Confirm appointments dated strictly
	// before the given day, for the missed sweep.
	FindPastActive(ctx context.Context, before time.Time) ([]Appointment, error)

	// InsertEvent appends an audit row for a booking or lifecycle
	// transition.
	InsertEvent(ctx context.Context, ev EventLog) error
}
