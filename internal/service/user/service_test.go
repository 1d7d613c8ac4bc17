package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

type fixture struct {
	store   *memory.Store
	svc     *Service
	admin   *model.User
	doctor  *model.User
	patient *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	create := func(name, email string, role model.Role) *model.User {
		u := &model.User{Name: name, Email: email, PasswordHash: "x", Role: role}
		require.NoError(t, store.Users().Create(ctx, u))
		return u
	}

	f := &fixture{
		store:   store,
		svc:     NewService(store),
		admin:   create("Admin", "admin@example.com", model.RoleAdmin),
		doctor:  create("Doc", "doc@example.com", model.RoleDoctor),
		patient: create("Pat", "pat@example.com", model.RolePatient),
	}
	require.NoError(t, store.Profiles().CreateDoctor(ctx, &model.DoctorProfile{
		UserID: f.doctor.ID, Specialization: "General", ConsultationFee: 50,
	}))
	require.NoError(t, store.Profiles().CreatePatient(ctx, &model.PatientProfile{
		UserID: f.patient.ID, Gender: "Other", Address: "Not provided",
	}))
	return f
}

func actorFor(u *model.User) model.Actor {
	return model.Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func strPtr(s string) *string { return &s }

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, err := f.svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, f.admin.ID, users[0].ID)
	assert.Nil(t, users[0].DoctorProfile)
	assert.Nil(t, users[0].PatientProfile)
	assert.NotNil(t, users[1].DoctorProfile)
	assert.NotNil(t, users[2].PatientProfile)

	doctors, err := f.svc.List(ctx, model.RoleDoctor)
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "General", doctors[0].DoctorProfile.Specialization)

	_, err = f.svc.List(ctx, model.Role("NURSE"))
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Get(ctx, f.patient.ID)
	require.NoError(t, err)
	require.NotNil(t, u.PatientProfile)
	assert.Equal(t, "Other", u.PatientProfile.Gender)

	_, err = f.svc.Get(ctx, 999)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestUpdate_DoctorProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	exp := model.FlexInt(7)
	fee := model.FlexFloat(120)
	u, err := f.svc.Update(ctx, actorFor(f.doctor), f.doctor.ID, &model.UpdateUserRequest{
		Name: strPtr("Dr. House"),
		DoctorProfile: &model.DoctorProfilePatch{
			Specialization:  strPtr("Cardiology"),
			Experience:      &exp,
			ConsultationFee: &fee,
		},
		PatientProfile: &model.PatientProfilePatch{Gender: strPtr("ignored")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. House", u.Name)
	require.NotNil(t, u.DoctorProfile)
	assert.Equal(t, "Cardiology", u.DoctorProfile.Specialization)
	assert.Equal(t, 7, u.DoctorProfile.Experience)
	assert.Equal(t, 120.0, u.DoctorProfile.ConsultationFee)
	assert.Nil(t, u.PatientProfile)
}

func TestUpdate_PatientProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Update(ctx, actorFor(f.patient), f.patient.ID, &model.UpdateUserRequest{
		PatientProfile: &model.PatientProfilePatch{
			BloodGroup: strPtr("O+"),
			Address:    strPtr("1 Main St"),
			DOB:        strPtr("1990-05-01"),
		},
	})
	require.NoError(t, err)
	require.NotNil(t, u.PatientProfile)
	require.NotNil(t, u.PatientProfile.BloodGroup)
	assert.Equal(t, "O+", *u.PatientProfile.BloodGroup)
	assert.Equal(t, "1 Main St", u.PatientProfile.Address)
	assert.Equal(t, 1990, u.PatientProfile.DOB.Year())
	assert.Equal(t, "Other", u.PatientProfile.Gender)
}

func TestUpdate_InvalidDOBRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, actorFor(f.patient), f.patient.ID, &model.UpdateUserRequest{
		Name:           strPtr("Renamed"),
		PatientProfile: &model.PatientProfilePatch{DOB: strPtr("yesterday")},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	u, err := f.svc.Get(ctx, f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pat", u.Name)
}

func TestUpdate_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := &model.UpdateUserRequest{Name: strPtr("Hacked")}

	_, err := f.svc.Update(ctx, actorFor(f.patient), f.doctor.ID, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	u, err := f.svc.Update(ctx, actorFor(f.admin), f.doctor.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Hacked", u.Name)
}

func TestUpdate_EmailConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, actorFor(f.patient), f.patient.ID, &model.UpdateUserRequest{
		Email: strPtr("doc@example.com"),
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestUpdate_MissingProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orphan := &model.User{Name: "NoProfile", Email: "np@example.com", PasswordHash: "x", Role: model.RoleDoctor}
	require.NoError(t, f.store.Users().Create(ctx, orphan))

	_, err := f.svc.Update(ctx, actorFor(orphan), orphan.ID, &model.UpdateUserRequest{
		DoctorProfile: &model.DoctorProfilePatch{Specialization: strPtr("ENT")},
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.Update(ctx, actorFor(f.admin), 999, &model.UpdateUserRequest{})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	_, err = f.store.Users().Get(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
