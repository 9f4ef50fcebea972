package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/metrics"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

// Service implements the booking and lifecycle operations over the
// appointment store. All mutation goes through it; the read operations are
// plain projections used by the fetch endpoints.
type Service struct {
	repo    Repository
	locker  redisclient.Locker
	log     zerolog.Logger
	metrics *metrics.SchedulingMetrics
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger, m *metrics.SchedulingMetrics) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		log:     log,
		metrics: m,
	}
}

// logEvent appends an audit row for a transition. Best-effort: a failed
// insert is logged and swallowed, the transition itself already committed.
func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, actor uuid.UUID, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}
	if actor != uuid.Nil {
		a := actor
		ev.Actor = &a
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert appointment event")
	}
}

// ListDoctors returns all doctors with their availability configuration.
func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// ListAppointments returns every appointment hydrated with patient and
// doctor summaries.
func (s *Service) ListAppointments(ctx context.Context) ([]Detail, error) {
	appts, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// ListPatientAppointments returns a patient's appointment history.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	if patientID == uuid.Nil {
		return nil, &ValidationError{Field: "patientId"}
	}
	appts, err := s.repo.ListAppointmentsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return appts, nil
}

// AvailableSlotsFor computes the bookable slots for a doctor on a date,
// server-side. It runs the same pure calculator the client slot picker
// uses, against the doctor's current appointments for that date.
func (s *Service) AvailableSlotsFor(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	if doctorID == uuid.Nil {
		return nil, &ValidationError{Field: "doctorId"}
	}
	doc, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListAppointmentsForDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments for date: %w", err)
	}
	return AvailableSlots(doc, date, existing), nil
}
