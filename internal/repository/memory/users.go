package memory

import (
	"context"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) emailTaken(email string, exceptID int64) bool {
	for id, u := range r.s.current().users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (r *userRepository) Create(_ context.Context, user *model.User) error {
	defer r.s.lock()()
	st := r.s.current()

	if r.emailTaken(user.Email, 0) {
		return repository.ErrDuplicate
	}

	now := time.Now().UTC()
	user.ID = st.nextID()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	stored.DoctorProfile, stored.PatientProfile = nil, nil
	st.users[user.ID] = stored
	return nil
}

func (r *userRepository) Get(_ context.Context, id int64) (*model.User, error) {
	defer r.s.lock()()

	u, ok := r.s.current().users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	defer r.s.lock()()

	for _, u := range r.s.current().users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) List(_ context.Context, role model.Role) ([]*model.User, error) {
	defer r.s.lock()()
	st := r.s.current()

	users := []*model.User{}
	for _, id := range sortedKeys(st.users) {
		u := st.users[id]
		if role == "" || u.Role == role {
			users = append(users, &u)
		}
	}
	return users, nil
}

func (r *userRepository) ListByIDs(_ context.Context, ids []int64) ([]*model.User, error) {
	defer r.s.lock()()
	st := r.s.current()

	want := idSet(ids)
	users := []*model.User{}
	for _, id := range sortedKeys(st.users) {
		if want[id] {
			u := st.users[id]
			users = append(users, &u)
		}
	}
	return users, nil
}

func (r *userRepository) Update(_ context.Context, user *model.User) error {
	defer r.s.lock()()
	st := r.s.current()

	existing, ok := st.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return repository.ErrDuplicate
	}

	existing.Name = user.Name
	existing.Email = user.Email
	existing.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = existing.UpdatedAt
	st.users[user.ID] = existing
	return nil
}
