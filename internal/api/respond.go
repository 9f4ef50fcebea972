package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Success: false,
		Error:   code,
		Message: message,
	})
}

// writeDomainError maps business-rule failures to status codes. Everything
// not in the taxonomy surfaces as a generic 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var vErr *appointment.ValidationError

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_error", vErr.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", "Patient not found")
	case errors.Is(err, appointment.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", "Doctor not found")
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "No appointment found with the given ID.")
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_unavailable", "The doctor is not available at the selected time slot.")
	case errors.Is(err, appointment.ErrSlotContended):
		writeError(w, http.StatusConflict, "slot_being_booked", "The slot is currently being booked, please retry shortly.")
	case errors.Is(err, appointment.ErrAlreadyCancelled):
		writeError(w, http.StatusBadRequest, "already_cancelled", "The appointment is already cancelled.")
	case errors.Is(err, appointment.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", "Invalid appointment status.")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "Server error.")
	}
}
