package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies
// it in tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const apptColumns = `id, appointment_number, patient_id, doctor_id, appointment_date, time_slot,
		service_type, reason_for_visit, is_emergency, status,
		prescription_id, bill_id, test_id, created_by, updated_by, created_at, updated_at`

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.PatientNumber,
		&p.Name,
		&p.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(
		&d.ID,
		&d.DoctorNumber,
		&d.Name,
		&d.Email,
		&d.Specialty,
		&d.Availability.TimeSlots,
		&d.Availability.DatesUnavailable,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.AppointmentNumber,
		&a.PatientID,
		&a.DoctorID,
		&a.AppointmentDate,
		&a.TimeSlot,
		&a.ServiceType,
		&a.ReasonForVisit,
		&a.IsEmergency,
		&a.Status,
		&a.PrescriptionID,
		&a.BillID,
		&a.TestID,
		&a.CreatedBy,
		&a.UpdatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// mapPgError translates constraint violations into domain errors. The
// partial unique index over the slot triple backs the no-double-booking
// invariant; the status CHECK constraint backs the enumerated status set.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		if pgErr.ConstraintName == "appointments_slot_active_uniq" {
			return ErrSlotTaken
		}
	case "23514": // check_violation
		if pgErr.ConstraintName == "appointments_status_check" {
			return ErrInvalidStatus
		}
	case "23503": // foreign_key_violation
		switch pgErr.ConstraintName {
		case "appointments_patient_id_fkey":
			return ErrPatientNotFound
		case "appointments_doctor_id_fkey":
			return ErrDoctorNotFound
		}
	}
	return err
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, patient_number, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, doctor_number, name, email, specialty, time_slots, dates_unavailable, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, doctor_number, name, email, specialty, time_slots, dates_unavailable, created_at, updated_at
		FROM doctors
		ORDER BY doctor_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context) ([]Detail, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.appointment_number, a.patient_id, a.doctor_id, a.appointment_date, a.time_slot,
		       a.service_type, a.reason_for_visit, a.is_emergency, a.status,
		       a.prescription_id, a.bill_id, a.test_id, a.created_by, a.updated_by, a.created_at, a.updated_at,
		       p.patient_number, p.name, p.email,
		       d.doctor_number, d.name, d.specialty
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN doctors d ON d.id = a.doctor_id
		ORDER BY a.appointment_number
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Detail
	for rows.Next() {
		var det Detail
		var pat Patient
		var doc Doctor
		err := rows.Scan(
			&det.ID,
			&det.AppointmentNumber,
			&det.PatientID,
			&det.DoctorID,
			&det.AppointmentDate,
			&det.TimeSlot,
			&det.ServiceType,
			&det.ReasonForVisit,
			&det.IsEmergency,
			&det.Status,
			&det.PrescriptionID,
			&det.BillID,
			&det.TestID,
			&det.CreatedBy,
			&det.UpdatedBy,
			&det.CreatedAt,
			&det.UpdatedAt,
			&pat.PatientNumber,
			&pat.Name,
			&pat.Email,
			&doc.DoctorNumber,
			&doc.Name,
			&doc.Specialty,
		)
		if err != nil {
			return nil, err
		}
		pat.ID = det.PatientID
		doc.ID = det.DoctorID
		det.Patient = &pat
		det.Doctor = &doc
		result = append(result, det)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appointment_number
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsForDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		ORDER BY appointment_number
	`, doctorID, DateOnly(date))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) FindBlockingAppointment(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string, exclude uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND time_slot = $3
		  AND status IN ('Pending', 'Confirm', 'Rescheduled')
		  AND id <> $4
		LIMIT 1
	`, doctorID, DateOnly(date), timeSlot, exclude)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, p CreateParams) (*Appointment, error) {
	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (
			id, appointment_number, patient_id, doctor_id, appointment_date, time_slot,
			service_type, reason_for_visit, is_emergency, status, created_by, created_at, updated_at
		)
		VALUES ($1, nextval('appointment_number_seq'), $2, $3, $4, $5, $6, $7, $8, 'Pending', $9, now(), now())
		RETURNING `+apptColumns+`
	`, id, p.PatientID, p.DoctorID, DateOnly(p.Date), p.TimeSlot,
		p.ServiceType, p.ReasonForVisit, p.IsEmergency, p.CreatedBy)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, mapPgError(err)
	}
	return appt, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, updatedBy uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_by = COALESCE(NULLIF($3, '00000000-0000-0000-0000-000000000000'::uuid), updated_by),
		    updated_at = now()
		WHERE id = $1
		  AND status <> 'Cancelled'
		RETURNING `+apptColumns+`
	`, id, to, updatedBy)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, r.guardError(ctx, id, mapPgError(err))
	}
	return appt, nil
}

func (r *PgRepository) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newSlot string, updatedBy uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_date = $2,
		    time_slot = $3,
		    status = 'Rescheduled',
		    updated_by = COALESCE(NULLIF($4, '00000000-0000-0000-0000-000000000000'::uuid), updated_by),
		    updated_at = now()
		WHERE id = $1
		  AND status <> 'Cancelled'
		RETURNING `+apptColumns+`
	`, id, DateOnly(newDate), newSlot, updatedBy)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, r.guardError(ctx, id, mapPgError(err))
	}
	return appt, nil
}

func (r *PgRepository) FindPastActive(ctx context.Context, before time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+apptColumns+`
		FROM appointments
		WHERE appointment_date < $1
		  AND status IN ('Pending', 'Confirm')
		ORDER BY appointment_number
	`, DateOnly(before))
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.EventType, ev.AppointmentID, ev.Actor, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert appointment event: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// guardError disambiguates a zero-row guarded update: the row either does
// not exist or is already Cancelled.
func (r *PgRepository) guardError(ctx context.Context, id uuid.UUID, err error) error {
	if !errors.Is(err, ErrAppointmentNotFound) {
		return err
	}
	if _, lookErr := r.GetAppointmentByID(ctx, id); lookErr != nil {
		return lookErr
	}
	return ErrAlreadyCancelled
}
