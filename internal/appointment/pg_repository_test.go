package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apptCols = []string{
	"id", "appointment_number", "patient_id", "doctor_id", "appointment_date", "time_slot",
	"service_type", "reason_for_visit", "is_emergency", "status",
	"prescription_id", "bill_id", "test_id", "created_by", "updated_by", "created_at", "updated_at",
}

func apptRow(id uuid.UUID, status Status) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(apptCols).AddRow(
		id, int64(1), uuid.New(), uuid.New(), date("2024-06-01"), "09:00-10:00",
		"", "", false, status,
		(*uuid.UUID)(nil), (*uuid.UUID)(nil), (*uuid.UUID)(nil), uuid.New(), (*uuid.UUID)(nil), now, now,
	)
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PgRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewPgRepository(mock)
}

func TestPgGetPatientByID(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM patients`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_number", "name", "email", "created_at", "updated_at"}).
			AddRow(id, int64(7), "Alice Ngata", (*string)(nil), time.Now(), time.Now()))

	p, err := repo.GetPatientByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.PatientNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetPatientByIDNotFound(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM patients`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetPatientByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestPgCreateAppointmentUniqueViolation(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO appointments`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{
			Code:           "23505",
			ConstraintName: "appointments_slot_active_uniq",
		})

	_, err := repo.CreateAppointment(context.Background(), CreateParams{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      date("2024-06-01"),
		TimeSlot:  "09:00-10:00",
		CreatedBy: uuid.New(),
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestPgUpdateStatusGuard(t *testing.T) {
	t.Run("already cancelled", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		id := uuid.New()

		// Guarded update matches no row, follow-up lookup finds the record
		// Cancelled.
		mock.ExpectQuery(`UPDATE appointments`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(`SELECT (.+) FROM appointments`).
			WithArgs(id).
			WillReturnRows(apptRow(id, StatusCancelled))

		_, err := repo.UpdateStatus(context.Background(), id, StatusConfirm, uuid.Nil)
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		id := uuid.New()

		mock.ExpectQuery(`UPDATE appointments`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery(`SELECT (.+) FROM appointments`).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.UpdateStatus(context.Background(), id, StatusConfirm, uuid.Nil)
		assert.ErrorIs(t, err, ErrAppointmentNotFound)
	})
}

func TestPgUpdateStatusCheckViolation(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(`UPDATE appointments`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{
			Code:           "23514",
			ConstraintName: "appointments_status_check",
		})

	_, err := repo.UpdateStatus(context.Background(), uuid.New(), Status("Teleported"), uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestPgUpdateStatusKeepsUpdaterOnNilActor(t *testing.T) {
	mock, repo := newMockRepo(t)
	id := uuid.New()

	// The nil actor collapses to NULL and COALESCE falls back to the stored
	// updated_by, so anonymous transitions keep the previous updater.
	mock.ExpectQuery(`updated_by = COALESCE\(NULLIF\(\$3, '00000000-0000-0000-0000-000000000000'::uuid\), updated_by\)`).
		WithArgs(id, StatusMissed, uuid.Nil).
		WillReturnRows(apptRow(id, StatusMissed))

	_, err := repo.UpdateStatus(context.Background(), id, StatusMissed, uuid.Nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgInsertEvent(t *testing.T) {
	mock, repo := newMockRepo(t)
	apptID := uuid.New()

	mock.ExpectExec(`INSERT INTO appointment_events`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.InsertEvent(context.Background(), EventLog{
		EventType:     EventAppointmentBooked,
		AppointmentID: &apptID,
		Payload:       []byte(`{"time_slot":"09:00-10:00"}`),
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFindBlockingAppointmentFree(t *testing.T) {
	mock, repo := newMockRepo(t)
	docID := uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM appointments`).
		WithArgs(docID, pgxmock.AnyArg(), "09:00-10:00", uuid.Nil).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindBlockingAppointment(context.Background(), docID, date("2024-06-01"), "09:00-10:00", uuid.Nil)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
