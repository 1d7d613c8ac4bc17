package memory

import (
	"context"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type prescriptionRepository struct {
	s *Store
}

func (r *prescriptionRepository) Create(_ context.Context, p *model.Prescription) error {
	defer r.s.lock()()
	st := r.s.current()

	if _, ok := st.appointments[p.AppointmentID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range st.prescriptions {
		if existing.AppointmentID == p.AppointmentID {
			return repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	p.ID = st.nextID()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Medication == nil {
		p.Medication = model.Medications{}
	}
	stored := *p
	stored.Medication = append(model.Medications{}, p.Medication...)
	st.prescriptions[p.ID] = stored
	return nil
}

func (r *prescriptionRepository) GetByAppointmentID(_ context.Context, appointmentID int64) (*model.Prescription, error) {
	defer r.s.lock()()

	for _, p := range r.s.current().prescriptions {
		if p.AppointmentID == appointmentID {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *prescriptionRepository) ListByAppointmentIDs(_ context.Context, appointmentIDs []int64) ([]*model.Prescription, error) {
	defer r.s.lock()()
	st := r.s.current()

	want := idSet(appointmentIDs)
	prescriptions := []*model.Prescription{}
	for _, id := range sortedKeys(st.prescriptions) {
		if p := st.prescriptions[id]; want[p.AppointmentID] {
			prescriptions = append(prescriptions, &p)
		}
	}
	return prescriptions, nil
}

type billingRepository struct {
	s *Store
}

func (r *billingRepository) Create(_ context.Context, b *model.Billing) error {
	defer r.s.lock()()
	st := r.s.current()

	if _, ok := st.appointments[b.AppointmentID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range st.billings {
		if existing.AppointmentID == b.AppointmentID {
			return repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	b.ID = st.nextID()
	b.CreatedAt, b.UpdatedAt = now, now
	st.billings[b.ID] = *b
	return nil
}

func (r *billingRepository) GetByAppointmentID(_ context.Context, appointmentID int64) (*model.Billing, error) {
	defer r.s.lock()()

	for _, b := range r.s.current().billings {
		if b.AppointmentID == appointmentID {
			b := b
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

type statsRepository struct {
	s *Store
}

func (r *statsRepository) Summary(_ context.Context) (*model.Stats, error) {
	defer r.s.lock()()
	st := r.s.current()

	stats := &model.Stats{ByStatus: map[model.AppointmentStatus]int{}}
	for _, u := range st.users {
		switch u.Role {
		case model.RoleDoctor:
			stats.Doctors++
		case model.RolePatient:
			stats.Patients++
		}
	}
	for _, a := range st.appointments {
		stats.Appointments++
		stats.ByStatus[a.Status]++
	}
	for _, b := range st.billings {
		stats.Revenue += b.Amount
	}
	return stats, nil
}
