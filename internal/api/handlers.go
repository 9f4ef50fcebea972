package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
)

// parseDate accepts the client's YYYY-MM-DD form, falling back to RFC 3339
// for callers that send full timestamps. Only the calendar day is kept.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return appointment.DateOnly(t), true
	}
	return time.Time{}, false
}

func parseOptionalUUID(s string) (uuid.UUID, bool) {
	if s == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		switch {
		case req.PatientID == "":
			writeError(w, http.StatusBadRequest, "validation_error", "patientId is required")
			return
		case req.DoctorID == "":
			writeError(w, http.StatusBadRequest, "validation_error", "doctorId is required")
			return
		case req.AppointmentDate == "":
			writeError(w, http.StatusBadRequest, "validation_error", "appointmentDate is required")
			return
		case req.TimeSlot == "":
			writeError(w, http.StatusBadRequest, "validation_error", "timeSlot is required")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientId must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorId must be a valid UUID")
			return
		}
		date, ok := parseDate(req.AppointmentDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "appointmentDate must be YYYY-MM-DD")
			return
		}
		createdBy, ok := parseOptionalUUID(req.CreatedBy)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_created_by", "createdBy must be a valid UUID")
			return
		}

		appt, err := svc.BookAppointment(r.Context(), appointment.BookingRequest{
			PatientID:      patientID,
			DoctorID:       doctorID,
			Date:           date,
			TimeSlot:       req.TimeSlot,
			ServiceType:    req.ServiceType,
			ReasonForVisit: req.ReasonForVisit,
			IsEmergency:    req.IsEmergency,
			CreatedBy:      createdBy,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, BookAppointmentResponse{
			Success:     true,
			Message:     "Appointment booked successfully",
			Appointment: appointmentJSON(appt),
		})
	}
}

func fetchDoctorsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]DoctorJSON, 0, len(doctors))
		for i := range doctors {
			out = append(out, doctorJSON(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, FetchDoctorsResponse{Success: true, Doctors: out})
	}
}

func fetchAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		details, err := svc.ListAppointments(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]AppointmentDetailJSON, 0, len(details))
		for i := range details {
			det := &details[i]
			item := AppointmentDetailJSON{AppointmentJSON: appointmentJSON(&det.Appointment)}
			if det.Patient != nil {
				p := patientJSON(det.Patient)
				item.Patient = &p
			}
			if det.Doctor != nil {
				d := doctorJSON(det.Doctor)
				item.Doctor = &d
			}
			out = append(out, item)
		}
		writeJSON(w, http.StatusOK, FetchAppointmentsResponse{Success: true, Appointments: out})
	}
}

func fetchMyAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FetchMyAppointmentsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.PatientID == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "Patient ID is required.")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patientId must be a valid UUID")
			return
		}

		appts, err := svc.ListPatientAppointments(r.Context(), patientID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if len(appts) == 0 {
			writeError(w, http.StatusNotFound, "no_appointments", "No appointments found for this patient.")
			return
		}

		out := make([]AppointmentJSON, 0, len(appts))
		for i := range appts {
			out = append(out, appointmentJSON(&appts[i]))
		}
		writeJSON(w, http.StatusOK, FetchMyAppointmentsResponse{Success: true, Appointments: out})
	}
}

func availableSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvailableSlotsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.DoctorID == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "doctorId is required")
			return
		}
		if req.Date == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "date is required")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorId must be a valid UUID")
			return
		}
		date, ok := parseDate(req.Date)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.AvailableSlotsFor(r.Context(), doctorID, date)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if slots == nil {
			slots = []string{}
		}
		writeJSON(w, http.StatusOK, AvailableSlotsResponse{Success: true, TimeSlots: slots})
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CancelAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.AppointmentID == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "Appointment ID is required.")
			return
		}
		id, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentId must be a valid UUID")
			return
		}
		updatedBy, ok := parseOptionalUUID(req.UpdatedBy)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_updated_by", "updatedBy must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, updatedBy)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AppointmentResponse{
			Success:     true,
			Message:     "Appointment successfully cancelled.",
			Appointment: appointmentJSON(appt),
		})
	}
}

func rescheduleAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RescheduleAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		switch {
		case req.AppointmentID == "":
			writeError(w, http.StatusBadRequest, "validation_error", "Appointment ID is required.")
			return
		case req.NewDate == "":
			writeError(w, http.StatusBadRequest, "validation_error", "newDate is required")
			return
		case req.NewTimeSlot == "":
			writeError(w, http.StatusBadRequest, "validation_error", "newTimeSlot is required")
			return
		}
		id, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentId must be a valid UUID")
			return
		}
		newDate, ok := parseDate(req.NewDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "newDate must be YYYY-MM-DD")
			return
		}
		updatedBy, ok := parseOptionalUUID(req.UpdatedBy)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_updated_by", "updatedBy must be a valid UUID")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, newDate, req.NewTimeSlot, updatedBy)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AppointmentResponse{
			Success:     true,
			Message:     "Appointment successfully rescheduled.",
			Appointment: appointmentJSON(appt),
		})
	}
}

func changeStatusHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChangeStatusRequest
		if !decodeBody(w, r, &req) {
			return
		}
		switch {
		case req.AppointmentID == "":
			writeError(w, http.StatusBadRequest, "validation_error", "Appointment ID is required.")
			return
		case req.Status == "":
			writeError(w, http.StatusBadRequest, "validation_error", "status is required")
			return
		}
		id, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentId must be a valid UUID")
			return
		}
		updatedBy, ok := parseOptionalUUID(req.UpdatedBy)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_updated_by", "updatedBy must be a valid UUID")
			return
		}

		appt, err := svc.ChangeStatus(r.Context(), id, appointment.Status(req.Status), updatedBy)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AppointmentResponse{
			Success:     true,
			Message:     "Appointment status changed successfully.",
			Appointment: appointmentJSON(appt),
		})
	}
}
