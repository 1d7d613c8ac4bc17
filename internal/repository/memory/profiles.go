package memory

import (
	"context"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type profileRepository struct {
	s *Store
}

func (r *profileRepository) CreateDoctor(_ context.Context, p *model.DoctorProfile) error {
	defer r.s.lock()()
	st := r.s.current()

	for _, existing := range st.doctors {
		if existing.UserID == p.UserID {
			return repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	p.ID = st.nextID()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	stored.User = nil
	st.doctors[p.ID] = stored
	return nil
}

func (r *profileRepository) CreatePatient(_ context.Context, p *model.PatientProfile) error {
	defer r.s.lock()()
	st := r.s.current()

	for _, existing := range st.patients {
		if existing.UserID == p.UserID {
			return repository.ErrDuplicate
		}
	}

	now := time.Now().UTC()
	p.ID = st.nextID()
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	stored.User = nil
	st.patients[p.ID] = stored
	return nil
}

func (r *profileRepository) GetDoctor(_ context.Context, id int64) (*model.DoctorProfile, error) {
	defer r.s.lock()()

	p, ok := r.s.current().doctors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *profileRepository) GetPatient(_ context.Context, id int64) (*model.PatientProfile, error) {
	defer r.s.lock()()

	p, ok := r.s.current().patients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *profileRepository) GetDoctorByUserID(_ context.Context, userID int64) (*model.DoctorProfile, error) {
	defer r.s.lock()()

	for _, p := range r.s.current().doctors {
		if p.UserID == userID {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *profileRepository) GetPatientByUserID(_ context.Context, userID int64) (*model.PatientProfile, error) {
	defer r.s.lock()()

	for _, p := range r.s.current().patients {
		if p.UserID == userID {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *profileRepository) ListDoctorsByIDs(_ context.Context, ids []int64) ([]*model.DoctorProfile, error) {
	return r.listDoctors(func(p model.DoctorProfile, want map[int64]bool) bool { return want[p.ID] }, ids), nil
}

func (r *profileRepository) ListDoctorsByUserIDs(_ context.Context, userIDs []int64) ([]*model.DoctorProfile, error) {
	return r.listDoctors(func(p model.DoctorProfile, want map[int64]bool) bool { return want[p.UserID] }, userIDs), nil
}

func (r *profileRepository) listDoctors(match func(model.DoctorProfile, map[int64]bool) bool, ids []int64) []*model.DoctorProfile {
	defer r.s.lock()()
	st := r.s.current()

	want := idSet(ids)
	profiles := []*model.DoctorProfile{}
	for _, id := range sortedKeys(st.doctors) {
		if p := st.doctors[id]; match(p, want) {
			profiles = append(profiles, &p)
		}
	}
	return profiles
}

func (r *profileRepository) ListPatientsByIDs(_ context.Context, ids []int64) ([]*model.PatientProfile, error) {
	return r.listPatients(func(p model.PatientProfile, want map[int64]bool) bool { return want[p.ID] }, ids), nil
}

func (r *profileRepository) ListPatientsByUserIDs(_ context.Context, userIDs []int64) ([]*model.PatientProfile, error) {
	return r.listPatients(func(p model.PatientProfile, want map[int64]bool) bool { return want[p.UserID] }, userIDs), nil
}

func (r *profileRepository) listPatients(match func(model.PatientProfile, map[int64]bool) bool, ids []int64) []*model.PatientProfile {
	defer r.s.lock()()
	st := r.s.current()

	want := idSet(ids)
	profiles := []*model.PatientProfile{}
	for _, id := range sortedKeys(st.patients) {
		if p := st.patients[id]; match(p, want) {
			profiles = append(profiles, &p)
		}
	}
	return profiles
}

func (r *profileRepository) UpdateDoctor(_ context.Context, p *model.DoctorProfile) error {
	defer r.s.lock()()
	st := r.s.current()

	existing, ok := st.doctors[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Specialization = p.Specialization
	existing.Experience = p.Experience
	existing.ConsultationFee = p.ConsultationFee
	existing.UpdatedAt = time.Now().UTC()
	p.UpdatedAt = existing.UpdatedAt
	st.doctors[p.ID] = existing
	return nil
}

func (r *profileRepository) UpdatePatient(_ context.Context, p *model.PatientProfile) error {
	defer r.s.lock()()
	st := r.s.current()

	existing, ok := st.patients[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Gender = p.Gender
	existing.BloodGroup = p.BloodGroup
	existing.Address = p.Address
	existing.DOB = p.DOB
	existing.UpdatedAt = time.Now().UTC()
	p.UpdatedAt = existing.UpdatedAt
	st.patients[p.ID] = existing
	return nil
}
