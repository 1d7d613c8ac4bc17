package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

// List returns users ordered by id, each joined with its profile.
func (s *Service) List(ctx context.Context, role model.Role) ([]*model.User, error) {
	if role != "" && !role.Valid() {
		return nil, apperrors.Validation("validation failed", apperrors.FieldError{
			Field:   "role",
			Message: "must be one of ADMIN, DOCTOR, PATIENT",
		})
	}

	users, err := s.store.Users().List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if err := AttachProfiles(ctx, s.store, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.store.Users().Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("user", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := AttachProfiles(ctx, s.store, []*model.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// Update applies the patch in one transaction. Profile patches that do not
// match the user's role are ignored.
func (s *Service) Update(ctx context.Context, actor model.Actor, id int64, req *model.UpdateUserRequest) (*model.User, error) {
	if actor.UserID != id && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("you can only update your own profile")
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().Get(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("user", err)
		}
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		if req.Name != nil || req.Email != nil {
			if req.Name != nil {
				user.Name = strings.TrimSpace(*req.Name)
			}
			if req.Email != nil {
				user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
			}
			if err := tx.Users().Update(ctx, user); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return apperrors.Conflict("email already in use", err)
				}
				return fmt.Errorf("failed to update user: %w", err)
			}
		}

		switch {
		case user.Role == model.RoleDoctor && req.DoctorProfile != nil:
			return updateDoctorProfile(ctx, tx, user.ID, req.DoctorProfile)
		case user.Role == model.RolePatient && req.PatientProfile != nil:
			return updatePatientProfile(ctx, tx, user.ID, req.PatientProfile)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Int64("user_id", id).Int64("actor_id", actor.UserID).Msg("user updated")
	return s.Get(ctx, id)
}

func updateDoctorProfile(ctx context.Context, tx repository.Store, userID int64, patch *model.DoctorProfilePatch) error {
	profile, err := tx.Profiles().GetDoctorByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("doctor profile", err)
	}
	if err != nil {
		return fmt.Errorf("failed to get doctor profile: %w", err)
	}

	if patch.Specialization != nil {
		profile.Specialization = *patch.Specialization
	}
	if patch.Experience != nil {
		profile.Experience = int(*patch.Experience)
	}
	if patch.ConsultationFee != nil {
		profile.ConsultationFee = float64(*patch.ConsultationFee)
	}

	if err := tx.Profiles().UpdateDoctor(ctx, profile); err != nil {
		return fmt.Errorf("failed to update doctor profile: %w", err)
	}
	return nil
}

func updatePatientProfile(ctx context.Context, tx repository.Store, userID int64, patch *model.PatientProfilePatch) error {
	profile, err := tx.Profiles().GetPatientByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("patient profile", err)
	}
	if err != nil {
		return fmt.Errorf("failed to get patient profile: %w", err)
	}

	if patch.Gender != nil {
		profile.Gender = *patch.Gender
	}
	if patch.BloodGroup != nil {
		profile.BloodGroup = patch.BloodGroup
	}
	if patch.Address != nil {
		profile.Address = *patch.Address
	}
	if patch.DOB != nil && *patch.DOB != "" {
		dob, err := model.ParseDate(*patch.DOB)
		if err != nil {
			return apperrors.Validation("validation failed", apperrors.FieldError{
				Field:   "patientProfile.dob",
				Message: "must be an ISO-8601 date",
			})
		}
		profile.DOB = dob
	}

	if err := tx.Profiles().UpdatePatient(ctx, profile); err != nil {
		return fmt.Errorf("failed to update patient profile: %w", err)
	}
	return nil
}

// AttachProfiles joins each user with its doctor or patient profile.
func AttachProfiles(ctx context.Context, store repository.Store, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	doctors, err := store.Profiles().ListDoctorsByUserIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to list doctor profiles: %w", err)
	}
	patients, err := store.Profiles().ListPatientsByUserIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to list patient profiles: %w", err)
	}

	doctorByUser := make(map[int64]*model.DoctorProfile, len(doctors))
	for _, d := range doctors {
		doctorByUser[d.UserID] = d
	}
	patientByUser := make(map[int64]*model.PatientProfile, len(patients))
	for _, p := range patients {
		patientByUser[p.UserID] = p
	}

	for _, u := range users {
		u.DoctorProfile = doctorByUser[u.ID]
		u.PatientProfile = patientByUser[u.ID]
	}
	return nil
}
