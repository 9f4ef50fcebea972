package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemRepository is an in-memory Repository with the same semantics as the
// Postgres one, including the active-slot uniqueness constraint and the
// per-entity number counters. It backs the test suites and local
// experimentation; production traffic goes through PgRepository.
type MemRepository struct {
	mu           sync.Mutex
	patients     map[uuid.UUID]Patient
	doctors      map[uuid.UUID]Doctor
	doctorOrder  []uuid.UUID
	appointments map[uuid.UUID]Appointment
	apptOrder    []uuid.UUID
	events       []EventLog
	nextApptNum  int64
	nextDocNum   int64
	nextPatNum   int64
}

func NewMemRepository() *MemRepository {
	return &MemRepository{
		patients:     make(map[uuid.UUID]Patient),
		doctors:      make(map[uuid.UUID]Doctor),
		appointments: make(map[uuid.UUID]Appointment),
		nextApptNum:  1,
		nextDocNum:   101,
		nextPatNum:   1,
	}
}

// AddPatient registers a patient and assigns its number.
func (r *MemRepository) AddPatient(p Patient) Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.PatientNumber = r.nextPatNum
	r.nextPatNum++
	r.patients[p.ID] = p
	return p
}

// AddDoctor registers a doctor and assigns its number.
func (r *MemRepository) AddDoctor(d Doctor) Doctor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.DoctorNumber = r.nextDocNum
	r.nextDocNum++
	r.doctors[d.ID] = d
	r.doctorOrder = append(r.doctorOrder, d.ID)
	return d
}

func (r *MemRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Doctor, 0, len(r.doctorOrder))
	for _, id := range r.doctorOrder {
		out = append(out, r.doctors[id])
	}
	return out, nil
}

func (r *MemRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemRepository) ListAppointments(ctx context.Context) ([]Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Detail, 0, len(r.apptOrder))
	for _, id := range r.apptOrder {
		a := r.appointments[id]
		det := Detail{Appointment: a}
		if p, ok := r.patients[a.PatientID]; ok {
			det.Patient = &p
		}
		if d, ok := r.doctors[a.DoctorID]; ok {
			det.Doctor = &d
		}
		out = append(out, det)
	}
	return out, nil
}

func (r *MemRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, id := range r.apptOrder {
		if a := r.appointments[id]; a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemRepository) ListAppointmentsForDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, id := range r.apptOrder {
		a := r.appointments[id]
		if a.DoctorID == doctorID && SameDate(a.AppointmentDate, date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemRepository) FindBlockingAppointment(ctx context.Context, doctorID uuid.UUID, date time.Time, timeSlot string, exclude uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findBlockingLocked(doctorID, date, timeSlot, exclude); a != nil {
		return a, nil
	}
	return nil, ErrAppointmentNotFound
}

func (r *MemRepository) findBlockingLocked(doctorID uuid.UUID, date time.Time, timeSlot string, exclude uuid.UUID) *Appointment {
	for _, id := range r.apptOrder {
		a := r.appointments[id]
		if a.ID == exclude {
			continue
		}
		if a.DoctorID != doctorID || a.TimeSlot != timeSlot || !SameDate(a.AppointmentDate, date) {
			continue
		}
		for _, s := range blockingStatuses {
			if a.Status == s {
				return &a
			}
		}
	}
	return nil
}

// occupiedLocked mirrors the partial unique index: any non-Cancelled
// appointment holds the triple.
func (r *MemRepository) occupiedLocked(doctorID uuid.UUID, date time.Time, timeSlot string, exclude uuid.UUID) bool {
	for _, id := range r.apptOrder {
		a := r.appointments[id]
		if a.ID == exclude {
			continue
		}
		if a.DoctorID == doctorID && a.TimeSlot == timeSlot && SameDate(a.AppointmentDate, date) && a.Status.Blocks() {
			return true
		}
	}
	return false
}

func (r *MemRepository) CreateAppointment(ctx context.Context, p CreateParams) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[p.PatientID]; !ok {
		return nil, ErrPatientNotFound
	}
	if _, ok := r.doctors[p.DoctorID]; !ok {
		return nil, ErrDoctorNotFound
	}
	if r.occupiedLocked(p.DoctorID, p.Date, p.TimeSlot, uuid.Nil) {
		return nil, ErrSlotTaken
	}

	now := time.Now()
	a := Appointment{
		ID:                uuid.New(),
		AppointmentNumber: r.nextApptNum,
		PatientID:         p.PatientID,
		DoctorID:          p.DoctorID,
		AppointmentDate:   DateOnly(p.Date),
		TimeSlot:          p.TimeSlot,
		ServiceType:       p.ServiceType,
		ReasonForVisit:    p.ReasonForVisit,
		IsEmergency:       p.IsEmergency,
		Status:            StatusPending,
		CreatedBy:         p.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	r.nextApptNum++
	r.appointments[a.ID] = a
	r.apptOrder = append(r.apptOrder, a.ID)
	return &a, nil
}

func (r *MemRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to Status, updatedBy uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	switch to {
	case StatusPending, StatusConfirm, StatusRescheduled, StatusCompleted, StatusCancelled, StatusMissed:
	default:
		return nil, ErrInvalidStatus
	}

	a.Status = to
	if updatedBy != uuid.Nil {
		a.UpdatedBy = &updatedBy
	}
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemRepository) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newSlot string, updatedBy uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if a.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if r.occupiedLocked(a.DoctorID, newDate, newSlot, id) {
		return nil, ErrSlotTaken
	}

	a.AppointmentDate = DateOnly(newDate)
	a.TimeSlot = newSlot
	a.Status = StatusRescheduled
	if updatedBy != uuid.Nil {
		a.UpdatedBy = &updatedBy
	}
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return &a, nil
}

func (r *MemRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the audit log in insertion order.
func (r *MemRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func (r *MemRepository) FindPastActive(ctx context.Context, before time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, id := range r.apptOrder {
		a := r.appointments[id]
		if (a.Status == StatusPending || a.Status == StatusConfirm) && a.AppointmentDate.Before(DateOnly(before)) {
			out = append(out, a)
		}
	}
	return out, nil
}
