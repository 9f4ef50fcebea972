package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

type testEnv struct {
	router  http.Handler
	repo    *appointment.MemRepository
	patient appointment.Patient
	doctor  appointment.Doctor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := appointment.NewMemRepository()
	locker := redisclient.NewRedisSlotLocker(rdb, 5*time.Second)
	svc := appointment.NewService(repo, locker, zerolog.Nop(), nil)

	router := NewRouter(RouterConfig{
		Service: svc,
		Redis:   rdb,
		Logger:  zerolog.Nop(),
		Env:     "test",
		Version: "test",
	})

	return &testEnv{
		router:  router,
		repo:    repo,
		patient: repo.AddPatient(appointment.Patient{Name: "Alice Ngata"}),
		doctor: repo.AddDoctor(appointment.Doctor{
			Name:      "Dr. Reyes",
			Specialty: "General Practice",
			Availability: appointment.Availability{
				TimeSlots: []string{"09:00-10:00", "10:00-11:00"},
			},
		}),
	}
}

func (e *testEnv) post(t *testing.T, path string, body map[string]any) (int, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec.Code, decoded
}

func (e *testEnv) bookBody(slot string) map[string]any {
	return map[string]any{
		"patientId":       e.patient.ID.String(),
		"doctorId":        e.doctor.ID.String(),
		"appointmentDate": "2024-06-01",
		"timeSlot":        slot,
		"serviceType":     "General Check-up",
	}
}

func TestBookAppointmentEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.post(t, "/book-appointment", env.bookBody("09:00-10:00"))
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["success"])

	appt := body["appointment"].(map[string]any)
	assert.Equal(t, "Pending", appt["status"])
	assert.Equal(t, float64(1), appt["appointmentId"])
	assert.Equal(t, "2024-06-01", appt["appointmentDate"])
	assert.Equal(t, "09:00-10:00", appt["timeSlot"])
}

func TestBookAppointmentEndpointConflict(t *testing.T) {
	env := newTestEnv(t)
	patient2 := env.repo.AddPatient(appointment.Patient{Name: "Ben Okafor"})

	code, _ := env.post(t, "/book-appointment", env.bookBody("09:00-10:00"))
	require.Equal(t, http.StatusCreated, code)

	second := env.bookBody("09:00-10:00")
	second["patientId"] = patient2.ID.String()
	code, body := env.post(t, "/book-appointment", second)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "slot_unavailable", body["error"])
}

func TestBookAppointmentEndpointValidation(t *testing.T) {
	env := newTestEnv(t)

	body := env.bookBody("09:00-10:00")
	delete(body, "timeSlot")
	code, resp := env.post(t, "/book-appointment", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation_error", resp["error"])

	body = env.bookBody("09:00-10:00")
	body["doctorId"] = "not-a-uuid"
	code, resp = env.post(t, "/book-appointment", body)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_doctor_id", resp["error"])
}

func TestBookAppointmentEndpointUnknownDoctor(t *testing.T) {
	env := newTestEnv(t)

	body := env.bookBody("09:00-10:00")
	body["doctorId"] = "8f2b0a47-9d3e-4a5f-8d30-5a4f3f0d9f11"
	code, resp := env.post(t, "/book-appointment", body)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "doctor_not_found", resp["error"])
}

func TestFetchDoctorsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.post(t, "/fetch-doctors", map[string]any{})
	require.Equal(t, http.StatusOK, code)
	doctors := body["doctors"].([]any)
	require.Len(t, doctors, 1)

	doc := doctors[0].(map[string]any)
	assert.Equal(t, "Dr. Reyes", doc["name"])
	availability := doc["availability"].(map[string]any)
	assert.Len(t, availability["timeSlots"].([]any), 2)
}

func TestAvailableSlotsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.post(t, "/book-appointment", env.bookBody("09:00-10:00"))
	require.Equal(t, http.StatusCreated, code)

	code, body := env.post(t, "/available-slots", map[string]any{
		"doctorId": env.doctor.ID.String(),
		"date":     "2024-06-01",
	})
	require.Equal(t, http.StatusOK, code)
	slots := body["timeSlots"].([]any)
	assert.Equal(t, []any{"10:00-11:00"}, slots)
}

func TestCancelAppointmentEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.post(t, "/book-appointment", env.bookBody("09:00-10:00"))
	require.Equal(t, http.StatusCreated, code)
	apptID := body["appointment"].(map[string]any)["id"].(string)

	code, body = env.post(t, "/cancel-appointment", map[string]any{"appointmentId": apptID})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Cancelled", body["appointment"].(map[string]any)["status"])

	// Cancelled is terminal.
	code, body = env.post(t, "/cancel-appointment", map[string]any{"appointmentId": apptID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "already_cancelled", body["error"])

	code, body = env.post(t, "/change-status-appointment", map[string]any{
		"appointmentId": apptID,
		"status":        "Confirm",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "already_cancelled", body["error"])
}

func TestRescheduleAppointmentEndpoint(t *testing.T) {
	env := newTestEnv(t)
	patient2 := env.repo.AddPatient(appointment.Patient{Name: "Ben Okafor"})

	code, body := env.post(t, "/book-appointment", env.bookBody("09:00-10:00"))
	require.Equal(t, http.StatusCreated, code)
	apptID := body["appointment"].(map[string]any)["id"].(string)

	second := env.bookBody("10:00-11:00")
	second["patientId"] = patient2.ID.String()
	code, _ = env.post(t, "/book-appointment", second)
	require.Equal(t, http.StatusCreated, code)

	// Moving into the occupied slot is rejected.
	code, resp := env.post(t, "/reschedule-appointment", map[string]any{
		"appointmentId": apptID,
		"newDate":       "2024-06-01",
		"newTimeSlot":   "10:00-11:00",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "slot_unavailable", resp["error"])

	// Moving to a free slot succeeds.
	code, resp = env.post(t, "/reschedule-appointment", map[string]any{
		"appointmentId": apptID,
		"newDate":       "2024-06-02",
		"newTimeSlot":   "10:00-11:00",
	})
	require.Equal(t, http.StatusOK, code)
	appt := resp["appointment"].(map[string]any)
	assert.Equal(t, "Rescheduled", appt["status"])
	assert.Equal(t, "2024-06-02", appt["appointmentDate"])
}

func TestChangeStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.post(t, "/book-appointment", env.bookBody("09:00-10:00"))
	require.Equal(t, http.StatusCreated, code)
	apptID := body["appointment"].(map[string]any)["id"].(string)

	code, body = env.post(t, "/change-status-appointment", map[string]any{
		"appointmentId": apptID,
		"status":        "Completed",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Completed", body["appointment"].(map[string]any)["status"])

	code, body = env.post(t, "/change-status-appointment", map[string]any{
		"appointmentId": apptID,
		"status":        "Teleported",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_status", body["error"])
}

func TestFetchMyAppointmentsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	// No bookings yet: the original API treats this as not found.
	code, body := env.post(t, "/fetch-my-appointments", map[string]any{
		"patientId": env.patient.ID.String(),
	})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, false, body["success"])

	_, _ = env.post(t, "/book-appointment", env.bookBody("09:00-10:00"))

	code, body = env.post(t, "/fetch-my-appointments", map[string]any{
		"patientId": env.patient.ID.String(),
	})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["appointments"].([]any), 1)
}

func TestFetchAppointmentsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	_, _ = env.post(t, "/book-appointment", env.bookBody("09:00-10:00"))

	code, body := env.post(t, "/fetch-appointments", map[string]any{})
	require.Equal(t, http.StatusOK, code)
	appts := body["appointments"].([]any)
	require.Len(t, appts, 1)

	first := appts[0].(map[string]any)
	assert.Equal(t, "Dr. Reyes", first["doctorDetails"].(map[string]any)["name"])
	assert.Equal(t, "Alice Ngata", first["patientDetails"].(map[string]any)["name"])
}
