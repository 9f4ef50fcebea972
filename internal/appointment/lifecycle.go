package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

// Lifecycle transitions. Cancelled is terminal: every mutation first
// re-reads the current status and refuses once the appointment is
// Cancelled, and the store update itself carries the same guard, so
// repeated calls against a Cancelled record always fail identically and
// leave it unchanged.

// Cancel moves any non-Cancelled appointment to Cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, updatedBy uuid.UUID) (*Appointment, error) {
	if id == uuid.Nil {
		return nil, &ValidationError{Field: "appointmentId"}
	}

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		s.observeTransition("cancel", err)
		return nil, err
	}
	if current.Status == StatusCancelled {
		s.observeTransition("cancel", ErrAlreadyCancelled)
		return nil, ErrAlreadyCancelled
	}

	updated, err := s.repo.UpdateStatus(ctx, id, StatusCancelled, updatedBy)
	if err != nil {
		s.observeTransition("cancel", err)
		return nil, err
	}

	s.logEvent(ctx, id, EventAppointmentCancelled, updatedBy, map[string]any{
		"from": string(current.Status),
	})

	s.observeTransition("cancel", nil)
	s.log.Info().
		Str("appointment_id", id.String()).
		Str("from", string(current.Status)).
		Msg("appointment cancelled")
	return updated, nil
}

// Reschedule moves a non-Cancelled appointment to a new date and slot and
// marks it Rescheduled. Unlike the system this replaces, the destination
// slot is re-validated under the same lock discipline as booking, so a
// reschedule cannot silently double-book.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newSlot string, updatedBy uuid.UUID) (*Appointment, error) {
	switch {
	case id == uuid.Nil:
		return nil, &ValidationError{Field: "appointmentId"}
	case newDate.IsZero():
		return nil, &ValidationError{Field: "newDate"}
	case newSlot == "":
		return nil, &ValidationError{Field: "newTimeSlot"}
	}

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		s.observeTransition("reschedule", err)
		return nil, err
	}
	if current.Status == StatusCancelled {
		s.observeTransition("reschedule", ErrAlreadyCancelled)
		return nil, ErrAlreadyCancelled
	}

	var updated *Appointment

	err = s.locker.WithSlotLock(ctx, current.DoctorID, newDate, newSlot, func(lockCtx context.Context) error {
		existing, err := s.repo.FindBlockingAppointment(lockCtx, current.DoctorID, newDate, newSlot, id)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check blocking appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.Reschedule(lockCtx, id, newDate, newSlot, updatedBy)
		if err != nil {
			return err
		}

		updated = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			err = ErrSlotContended
		}
		s.observeTransition("reschedule", err)
		return nil, err
	}

	s.logEvent(ctx, id, EventAppointmentRescheduled, updatedBy, map[string]any{
		"from_date": current.AppointmentDate.Format("2006-01-02"),
		"from_slot": current.TimeSlot,
		"to_date":   updated.AppointmentDate.Format("2006-01-02"),
		"to_slot":   newSlot,
	})

	s.observeTransition("reschedule", nil)
	s.log.Info().
		Str("appointment_id", id.String()).
		Time("new_date", updated.AppointmentDate).
		Str("new_slot", newSlot).
		Msg("appointment rescheduled")
	return updated, nil
}

// ChangeStatus sets an arbitrary status on a non-Cancelled appointment. The
// value is not validated here; the store's CHECK constraint rejects
// anything outside the enumerated set.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status Status, updatedBy uuid.UUID) (*Appointment, error) {
	switch {
	case id == uuid.Nil:
		return nil, &ValidationError{Field: "appointmentId"}
	case status == "":
		return nil, &ValidationError{Field: "status"}
	}

	current, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		s.observeTransition("change_status", err)
		return nil, err
	}
	if current.Status == StatusCancelled {
		s.observeTransition("change_status", ErrAlreadyCancelled)
		return nil, ErrAlreadyCancelled
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, updatedBy)
	if err != nil {
		s.observeTransition("change_status", err)
		return nil, err
	}

	s.logEvent(ctx, id, EventAppointmentStatusChanged, updatedBy, map[string]any{
		"from": string(current.Status),
		"to":   string(status),
	})

	s.observeTransition("change_status", nil)
	s.log.Info().
		Str("appointment_id", id.String()).
		Str("from", string(current.Status)).
		Str("to", string(status)).
		Msg("appointment status changed")
	return updated, nil
}

// MarkMissedAppointments moves Pending/Confirm appointments dated before
// today to Missed. Run periodically by the sweep worker. Returns how many
// were swept.
func (s *Service) MarkMissedAppointments(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.repo.FindPastActive(ctx, DateOnly(now))
	if err != nil {
		return 0, fmt.Errorf("find past active appointments: %w", err)
	}

	swept := 0
	for _, appt := range candidates {
		if _, err := s.repo.UpdateStatus(ctx, appt.ID, StatusMissed, uuid.Nil); err != nil {
			if errors.Is(err, ErrAppointmentNotFound) || errors.Is(err, ErrAlreadyCancelled) {
				continue
			}
			s.log.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("failed to mark appointment missed")
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentMissed, uuid.Nil, map[string]any{
			"from": string(appt.Status),
		})
		swept++
	}

	s.metrics.AddMissedSwept(swept)
	if swept > 0 {
		s.log.Info().Int("count", swept).Msg("missed sweep complete")
	}
	return swept, nil
}

func (s *Service) observeTransition(action string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyCancelled):
		outcome = "invalid_state"
	case errors.Is(err, ErrSlotTaken), errors.Is(err, ErrSlotContended):
		outcome = "conflict"
	case errors.Is(err, ErrAppointmentNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	s.metrics.ObserveTransition(action, outcome)
}
