package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type appointmentRepository struct {
	s *Store
}

func (r *appointmentRepository) Create(_ context.Context, a *model.Appointment) error {
	defer r.s.lock()()
	st := r.s.current()

	if _, ok := st.patients[a.PatientID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := st.doctors[a.DoctorID]; !ok {
		return repository.ErrNotFound
	}

	now := time.Now().UTC()
	a.ID = st.nextID()
	a.CreatedAt, a.UpdatedAt = now, now
	st.appointments[a.ID] = stripAppointment(*a)
	return nil
}

func (r *appointmentRepository) Get(_ context.Context, id int64) (*model.Appointment, error) {
	defer r.s.lock()()

	a, ok := r.s.current().appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

// GetForUpdate relies on the transaction holding the store lock.
func (r *appointmentRepository) GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.Get(ctx, id)
}

func (r *appointmentRepository) List(_ context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	defer r.s.lock()()
	st := r.s.current()

	appointments := []*model.Appointment{}
	for _, a := range st.appointments {
		if filters.PatientID != 0 && a.PatientID != filters.PatientID {
			continue
		}
		if filters.DoctorID != 0 && a.DoctorID != filters.DoctorID {
			continue
		}
		a := a
		appointments = append(appointments, &a)
	}
	sort.Slice(appointments, func(i, j int) bool {
		if appointments[i].Date.Equal(appointments[j].Date) {
			return appointments[i].ID < appointments[j].ID
		}
		return appointments[i].Date.Before(appointments[j].Date)
	})
	return appointments, nil
}

func (r *appointmentRepository) Update(_ context.Context, a *model.Appointment) error {
	defer r.s.lock()()
	st := r.s.current()

	existing, ok := st.appointments[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Status = a.Status
	existing.Symptoms = a.Symptoms
	existing.UpdatedAt = time.Now().UTC()
	a.UpdatedAt = existing.UpdatedAt
	st.appointments[a.ID] = existing
	return nil
}

func (r *appointmentRepository) HasOverlap(_ context.Context, doctorID int64, start time.Time, slot time.Duration) (bool, error) {
	defer r.s.lock()()

	lower, upper := start.Add(-slot), start.Add(slot)
	for _, a := range r.s.current().appointments {
		if a.DoctorID != doctorID || !a.Status.IsActive() {
			continue
		}
		if a.Date.After(lower) && a.Date.Before(upper) {
			return true, nil
		}
	}
	return false, nil
}

func stripAppointment(a model.Appointment) model.Appointment {
	a.Patient, a.Doctor, a.Prescription, a.Billing = nil, nil, nil, nil
	return a
}
