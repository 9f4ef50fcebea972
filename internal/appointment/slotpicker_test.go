package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotPickerMatchesCalculator(t *testing.T) {
	docID := uuid.New()
	doctors := []Doctor{{
		ID:           docID,
		DoctorNumber: 101,
		Name:         "Dr. Reyes",
		Availability: Availability{
			TimeSlots:        []string{"09:00-10:00", "10:00-11:00"},
			DatesUnavailable: []time.Time{date("2024-06-10")},
		},
	}}
	history := []Appointment{{
		DoctorID:        docID,
		AppointmentDate: date("2024-06-11"),
		TimeSlot:        "09:00-10:00",
		Status:          StatusConfirm,
	}}

	picker := NewSlotPicker(doctors, history)

	assert.Empty(t, picker.SlotsFor(docID, date("2024-06-10")))
	assert.Equal(t, []string{"10:00-11:00"}, picker.SlotsFor(docID, date("2024-06-11")))
	assert.Equal(t, []string{"09:00-10:00", "10:00-11:00"}, picker.SlotsFor(docID, date("2024-06-12")))

	// Same answers as calling the calculator directly.
	assert.Equal(t,
		AvailableSlots(&doctors[0], date("2024-06-11"), history),
		picker.SlotsFor(docID, date("2024-06-11")))
}

func TestSlotPickerUnknownDoctor(t *testing.T) {
	picker := NewSlotPicker(nil, nil)
	assert.Empty(t, picker.SlotsFor(uuid.New(), date("2024-06-11")))

	_, ok := picker.DoctorByNumber(101)
	assert.False(t, ok)
}

func TestSlotPickerDoctorLookup(t *testing.T) {
	doctors := []Doctor{
		{ID: uuid.New(), DoctorNumber: 101, Name: "Dr. A"},
		{ID: uuid.New(), DoctorNumber: 102, Name: "Dr. B"},
	}
	picker := NewSlotPicker(doctors, nil)

	d, ok := picker.DoctorByNumber(102)
	require.True(t, ok)
	assert.Equal(t, "Dr. B", d.Name)
	assert.Len(t, picker.Doctors(), 2)
}

func TestSlotPickerStaleSnapshot(t *testing.T) {
	docID := uuid.New()
	doctors := []Doctor{{
		ID:           docID,
		DoctorNumber: 101,
		Availability: Availability{TimeSlots: []string{"09:00-10:00"}},
	}}

	// Snapshot taken before another patient booked the slot: the picker
	// still offers it. The server-side check at submission time is the
	// authority.
	picker := NewSlotPicker(doctors, nil)
	assert.Equal(t, []string{"09:00-10:00"}, picker.SlotsFor(docID, date("2024-06-11")))
}
