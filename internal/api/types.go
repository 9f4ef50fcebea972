package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/appointment"
)

type BookAppointmentRequest struct {
	PatientID       string `json:"patientId"`
	DoctorID        string `json:"doctorId"`
	AppointmentDate string `json:"appointmentDate"`
	TimeSlot        string `json:"timeSlot"`
	ServiceType     string `json:"serviceType,omitempty"`
	ReasonForVisit  string `json:"reasonForVisit,omitempty"`
	IsEmergency     bool   `json:"isEmergency,omitempty"`
	CreatedBy       string `json:"createdBy,omitempty"`
}

type FetchMyAppointmentsRequest struct {
	PatientID string `json:"patientId"`
}

type AvailableSlotsRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"date"`
}

type CancelAppointmentRequest struct {
	AppointmentID string `json:"appointmentId"`
	UpdatedBy     string `json:"updatedBy,omitempty"`
}

type RescheduleAppointmentRequest struct {
	AppointmentID string `json:"appointmentId"`
	NewDate       string `json:"newDate"`
	NewTimeSlot   string `json:"newTimeSlot"`
	UpdatedBy     string `json:"updatedBy,omitempty"`
}

type ChangeStatusRequest struct {
	AppointmentID string `json:"appointmentId"`
	Status        string `json:"status"`
	UpdatedBy     string `json:"updatedBy,omitempty"`
}

type AppointmentJSON struct {
	ID                uuid.UUID  `json:"id"`
	AppointmentNumber int64      `json:"appointmentId"`
	PatientID         uuid.UUID  `json:"patient"`
	DoctorID          uuid.UUID  `json:"doctor"`
	AppointmentDate   string     `json:"appointmentDate"`
	TimeSlot          string     `json:"timeSlot"`
	ServiceType       string     `json:"serviceType,omitempty"`
	ReasonForVisit    string     `json:"reasonForVisit"`
	IsEmergency       bool       `json:"isEmergency"`
	Status            string     `json:"status"`
	CreatedBy         uuid.UUID  `json:"createdBy"`
	UpdatedBy         *uuid.UUID `json:"updatedBy,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type AvailabilityJSON struct {
	TimeSlots        []string `json:"timeSlots"`
	DatesUnavailable []string `json:"dateUnavailable"`
}

type DoctorJSON struct {
	ID           uuid.UUID        `json:"id"`
	DoctorNumber int64            `json:"doctorId"`
	Name         string           `json:"name"`
	Specialty    string           `json:"specialty"`
	Availability AvailabilityJSON `json:"availability"`
}

type PatientJSON struct {
	ID            uuid.UUID `json:"id"`
	PatientNumber int64     `json:"patientId"`
	Name          string    `json:"name"`
	Email         *string   `json:"email,omitempty"`
}

type AppointmentDetailJSON struct {
	AppointmentJSON
	Patient *PatientJSON `json:"patientDetails,omitempty"`
	Doctor  *DoctorJSON  `json:"doctorDetails,omitempty"`
}

type BookAppointmentResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	Appointment AppointmentJSON `json:"appointment"`
}

type AppointmentResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	Appointment AppointmentJSON `json:"appointment"`
}

type FetchDoctorsResponse struct {
	Success bool         `json:"success"`
	Doctors []DoctorJSON `json:"doctors"`
}

type FetchAppointmentsResponse struct {
	Success      bool                    `json:"success"`
	Appointments []AppointmentDetailJSON `json:"appointments"`
}

type FetchMyAppointmentsResponse struct {
	Success      bool              `json:"success"`
	Appointments []AppointmentJSON `json:"appointments"`
}

type AvailableSlotsResponse struct {
	Success   bool     `json:"success"`
	TimeSlots []string `json:"timeSlots"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

const dateLayout = "2006-01-02"

func appointmentJSON(a *appointment.Appointment) AppointmentJSON {
	return AppointmentJSON{
		ID:                a.ID,
		AppointmentNumber: a.AppointmentNumber,
		PatientID:         a.PatientID,
		DoctorID:          a.DoctorID,
		AppointmentDate:   a.AppointmentDate.Format(dateLayout),
		TimeSlot:          a.TimeSlot,
		ServiceType:       a.ServiceType,
		ReasonForVisit:    a.ReasonForVisit,
		IsEmergency:       a.IsEmergency,
		Status:            string(a.Status),
		CreatedBy:         a.CreatedBy,
		UpdatedBy:         a.UpdatedBy,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}

func doctorJSON(d *appointment.Doctor) DoctorJSON {
	dates := make([]string, 0, len(d.Availability.DatesUnavailable))
	for _, t := range d.Availability.DatesUnavailable {
		dates = append(dates, t.Format(dateLayout))
	}
	return DoctorJSON{
		ID:           d.ID,
		DoctorNumber: d.DoctorNumber,
		Name:         d.Name,
		Specialty:    d.Specialty,
		Availability: AvailabilityJSON{
			TimeSlots:        d.Availability.TimeSlots,
			DatesUnavailable: dates,
		},
	}
}

func patientJSON(p *appointment.Patient) PatientJSON {
	return PatientJSON{
		ID:            p.ID,
		PatientNumber: p.PatientNumber,
		Name:          p.Name,
		Email:         p.Email,
	}
}
