package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

// BookingRequest carries a validated-at-the-edge booking attempt. CreatedBy
// is the acting identity, passed explicitly; when zero it defaults to the
// patient (self-service booking).
type BookingRequest struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	Date           time.Time
	TimeSlot       string
	ServiceType    string
	ReasonForVisit string
	IsEmergency    bool
	CreatedBy      uuid.UUID
}

func (r *BookingRequest) validate() error {
	switch {
	case r.PatientID == uuid.Nil:
		return &ValidationError{Field: "patientId"}
	case r.DoctorID == uuid.Nil:
		return &ValidationError{Field: "doctorId"}
	case r.Date.IsZero():
		return &ValidationError{Field: "appointmentDate"}
	case r.TimeSlot == "":
		return &ValidationError{Field: "timeSlot"}
	}
	return nil
}

// BookAppointment reserves a slot for a patient. The conflict check and the
// insert run inside a distributed lock on the (doctor, date, slot) triple so
// concurrent requests for the same slot cannot both pass the check; the
// store's partial unique index catches anything that slips past the lock.
// New appointments always start Pending.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		s.metrics.ObserveBooking("rejected")
		return nil, err
	}

	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			s.metrics.ObserveBooking("rejected")
			return nil, err
		}
		s.metrics.ObserveBooking("error")
		return nil, fmt.Errorf("load patient: %w", err)
	}

	if _, err := s.repo.GetDoctorByID(ctx, req.DoctorID); err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			s.metrics.ObserveBooking("rejected")
			return nil, err
		}
		s.metrics.ObserveBooking("error")
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	createdBy := req.CreatedBy
	if createdBy == uuid.Nil {
		createdBy = req.PatientID
	}

	var created *Appointment

	err := s.locker.WithSlotLock(ctx, req.DoctorID, req.Date, req.TimeSlot, func(lockCtx context.Context) error {
		existing, err := s.repo.FindBlockingAppointment(lockCtx, req.DoctorID, req.Date, req.TimeSlot, uuid.Nil)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check blocking appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateAppointment(lockCtx, CreateParams{
			PatientID:      req.PatientID,
			DoctorID:       req.DoctorID,
			Date:           DateOnly(req.Date),
			TimeSlot:       req.TimeSlot,
			ServiceType:    req.ServiceType,
			ReasonForVisit: req.ReasonForVisit,
			IsEmergency:    req.IsEmergency,
			CreatedBy:      createdBy,
		})
		if err != nil {
			return err
		}

		created = appt
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.metrics.ObserveBooking("conflict")
			return nil, ErrSlotContended
		case errors.Is(err, ErrSlotTaken):
			s.metrics.ObserveBooking("conflict")
			return nil, err
		default:
			s.metrics.ObserveBooking("error")
			return nil, err
		}
	}

	s.logEvent(ctx, created.ID, EventAppointmentBooked, createdBy, map[string]any{
		"patient_id": req.PatientID.String(),
		"doctor_id":  req.DoctorID.String(),
		"date":       created.AppointmentDate.Format("2006-01-02"),
		"time_slot":  req.TimeSlot,
	})

	s.metrics.ObserveBooking("booked")
	s.log.Info().
		Str("appointment_id", created.ID.String()).
		Int64("appointment_number", created.AppointmentNumber).
		Str("doctor_id", req.DoctorID.String()).
		Str("time_slot", req.TimeSlot).
		Time("date", created.AppointmentDate).
		Msg("appointment booked")

	return created, nil
}
