package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAvailableSlots(t *testing.T) {
	docID := uuid.New()
	otherDocID := uuid.New()

	doc := &Doctor{
		ID: docID,
		Availability: Availability{
			TimeSlots:        []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"},
			DatesUnavailable: []time.Time{date("2024-06-10")},
		},
	}

	booked := Appointment{
		ID:              uuid.New(),
		DoctorID:        docID,
		AppointmentDate: date("2024-06-11"),
		TimeSlot:        "10:00-11:00",
		Status:          StatusPending,
	}

	tests := []struct {
		name     string
		date     time.Time
		existing []Appointment
		want     []string
	}{
		{
			name: "blackout date yields nothing regardless of bookings",
			date: date("2024-06-10"),
			want: nil,
		},
		{
			name:     "booked slot removed, order preserved",
			date:     date("2024-06-11"),
			existing: []Appointment{booked},
			want:     []string{"09:00-10:00", "11:00-12:00"},
		},
		{
			name:     "free date returns full configured set",
			date:     date("2024-06-12"),
			existing: []Appointment{booked},
			want:     []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"},
		},
		{
			name: "other doctors' appointments do not block",
			date: date("2024-06-11"),
			existing: []Appointment{{
				DoctorID:        otherDocID,
				AppointmentDate: date("2024-06-11"),
				TimeSlot:        "10:00-11:00",
				Status:          StatusPending,
			}},
			want: []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"},
		},
		{
			name: "cancelled appointment frees its slot",
			date: date("2024-06-11"),
			existing: []Appointment{{
				DoctorID:        docID,
				AppointmentDate: date("2024-06-11"),
				TimeSlot:        "10:00-11:00",
				Status:          StatusCancelled,
			}},
			want: []string{"09:00-10:00", "10:00-11:00", "11:00-12:00"},
		},
		{
			name: "completed appointment keeps blocking",
			date: date("2024-06-11"),
			existing: []Appointment{{
				DoctorID:        docID,
				AppointmentDate: date("2024-06-11"),
				TimeSlot:        "09:00-10:00",
				Status:          StatusCompleted,
			}},
			want: []string{"10:00-11:00", "11:00-12:00"},
		},
		{
			name: "missed appointment keeps blocking",
			date: date("2024-06-11"),
			existing: []Appointment{{
				DoctorID:        docID,
				AppointmentDate: date("2024-06-11"),
				TimeSlot:        "11:00-12:00",
				Status:          StatusMissed,
			}},
			want: []string{"09:00-10:00", "10:00-11:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailableSlots(doc, tt.date, tt.existing)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAvailableSlotsNoConfiguredSlots(t *testing.T) {
	doc := &Doctor{ID: uuid.New()}
	assert.Empty(t, AvailableSlots(doc, date("2024-06-11"), nil))
	assert.Empty(t, AvailableSlots(nil, date("2024-06-11"), nil))
}

func TestAvailableSlotsIgnoresTimeOfDay(t *testing.T) {
	docID := uuid.New()
	doc := &Doctor{
		ID:           docID,
		Availability: Availability{TimeSlots: []string{"09:00-10:00"}},
	}

	// Appointment stored with a timestamp, queried with a bare date.
	existing := []Appointment{{
		DoctorID:        docID,
		AppointmentDate: time.Date(2024, 6, 11, 15, 30, 0, 0, time.UTC),
		TimeSlot:        "09:00-10:00",
		Status:          StatusConfirm,
	}}

	assert.Empty(t, AvailableSlots(doc, date("2024-06-11"), existing))
}
