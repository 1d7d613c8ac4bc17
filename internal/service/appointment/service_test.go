package appointment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

type fixture struct {
	store         *memory.Store
	svc           *Service
	admin         model.Actor
	doctor        model.Actor
	otherDoctor   model.Actor
	patient       model.Actor
	otherPatient  model.Actor
	doctorProfile *model.DoctorProfile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	user := func(name, email string, role model.Role) model.Actor {
		u := &model.User{Name: name, Email: email, PasswordHash: "x", Role: role}
		require.NoError(t, store.Users().Create(ctx, u))
		switch role {
		case model.RoleDoctor:
			require.NoError(t, store.Profiles().CreateDoctor(ctx, &model.DoctorProfile{UserID: u.ID, Specialization: "General"}))
		case model.RolePatient:
			require.NoError(t, store.Profiles().CreatePatient(ctx, &model.PatientProfile{UserID: u.ID, Gender: "Other"}))
		}
		return model.Actor{UserID: u.ID, Email: u.Email, Role: role}
	}

	f := &fixture{
		store:        store,
		svc:          NewService(store, Config{PreventOverlap: true, Slot: 30 * time.Minute, ConsultationFee: 50}),
		admin:        user("Admin", "admin@example.com", model.RoleAdmin),
		doctor:       user("Doc", "doc@example.com", model.RoleDoctor),
		otherDoctor:  user("Other Doc", "doc2@example.com", model.RoleDoctor),
		patient:      user("Pat", "pat@example.com", model.RolePatient),
		otherPatient: user("Other Pat", "pat2@example.com", model.RolePatient),
	}

	profile, err := store.Profiles().GetDoctorByUserID(ctx, f.doctor.UserID)
	require.NoError(t, err)
	f.doctorProfile = profile
	return f
}

func (f *fixture) book(t *testing.T, date string) *model.Appointment {
	t.Helper()
	appt, err := f.svc.Book(context.Background(), f.patient, &model.CreateAppointmentRequest{
		DoctorID: model.ID(f.doctorProfile.ID),
		Date:     date,
	})
	require.NoError(t, err)
	return appt
}

func (f *fixture) eventTypes() []string {
	var types []string
	for _, e := range f.store.Events() {
		types = append(types, e.EventType)
	}
	return types
}

func TestBook(t *testing.T) {
	f := newFixture(t)

	appt := f.book(t, "2030-01-10T10:00:00Z")
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)
	assert.Equal(t, model.DefaultSymptoms, appt.Symptoms)
	assert.Equal(t, f.doctorProfile.ID, appt.DoctorID)

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventAppointmentBooked, events[0].EventType)

	var payload model.AppointmentEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, appt.ID, payload.AppointmentID)
	assert.Equal(t, "pat@example.com", payload.PatientEmail)
	assert.Equal(t, "Doc", payload.DoctorName)
}

func TestBook_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, f.doctor, &model.CreateAppointmentRequest{
		DoctorID: model.ID(f.doctorProfile.ID),
		Date:     "2030-01-10T10:00:00Z",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrPreconditionFailed))

	_, err = f.svc.Book(ctx, f.patient, &model.CreateAppointmentRequest{
		DoctorID: 9999,
		Date:     "2030-01-10T10:00:00Z",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.Book(ctx, f.patient, &model.CreateAppointmentRequest{
		DoctorID: model.ID(f.doctorProfile.ID),
		Date:     "next tuesday",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	assert.Empty(t, f.store.Events())
}

func TestBook_Overlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.book(t, "2030-01-10T10:00:00Z")

	_, err := f.svc.Book(ctx, f.otherPatient, &model.CreateAppointmentRequest{
		DoctorID: model.ID(f.doctorProfile.ID),
		Date:     "2030-01-10T10:15:00Z",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	f.book(t, "2030-01-10T10:30:00Z")

	_, err = f.svc.SetStatus(ctx, f.patient, first.ID, model.AppointmentStatusCancelled)
	require.NoError(t, err)
	f.book(t, "2030-01-10T10:00:00Z")
}

func TestList_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	later := f.book(t, "2030-01-11T10:00:00Z")
	earlier := f.book(t, "2030-01-10T10:00:00Z")

	mine, err := f.svc.List(ctx, f.patient)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, earlier.ID, mine[0].ID)
	assert.Equal(t, later.ID, mine[1].ID)
	require.NotNil(t, mine[0].Doctor)
	require.NotNil(t, mine[0].Doctor.User)
	assert.Equal(t, "Doc", mine[0].Doctor.User.Name)
	assert.Nil(t, mine[0].Patient)

	theirs, err := f.svc.List(ctx, f.otherPatient)
	require.NoError(t, err)
	assert.Empty(t, theirs)

	doctorView, err := f.svc.List(ctx, f.doctor)
	require.NoError(t, err)
	require.Len(t, doctorView, 2)
	require.NotNil(t, doctorView[0].Patient)
	assert.Equal(t, "Pat", doctorView[0].Patient.User.Name)
	assert.Nil(t, doctorView[0].Doctor)

	all, err := f.svc.List(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.NotNil(t, all[0].Patient)
	assert.NotNil(t, all[0].Doctor)
}

func TestList_MissingProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "2030-01-10T10:00:00Z")

	u := &model.User{Name: "Bare", Email: "bare@example.com", PasswordHash: "x", Role: model.RolePatient}
	require.NoError(t, f.store.Users().Create(ctx, u))

	list, err := f.svc.List(ctx, model.Actor{UserID: u.ID, Role: model.RolePatient})
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, "2030-01-10T10:00:00Z")

	for _, actor := range []model.Actor{f.patient, f.doctor, f.admin} {
		got, err := f.svc.Get(ctx, actor, appt.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.Patient)
		assert.NotNil(t, got.Doctor)
	}

	for _, actor := range []model.Actor{f.otherPatient, f.otherDoctor} {
		_, err := f.svc.Get(ctx, actor, appt.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	}

	_, err := f.svc.Get(ctx, f.admin, 9999)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestSetStatus_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, "2030-01-10T10:00:00Z")

	_, err := f.svc.SetStatus(ctx, f.patient, appt.ID, model.AppointmentStatusConfirmed)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.SetStatus(ctx, f.otherDoctor, appt.ID, model.AppointmentStatusConfirmed)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.SetStatus(ctx, f.doctor, appt.ID, model.AppointmentStatusCompleted)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	_, err = f.svc.SetStatus(ctx, f.doctor, appt.ID, model.AppointmentStatus("DONE"))
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = f.svc.SetStatus(ctx, f.doctor, appt.ID, model.AppointmentStatusPending)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	updated, err := f.svc.SetStatus(ctx, f.doctor, appt.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, updated.Status)

	_, err = f.svc.SetStatus(ctx, f.admin, appt.ID, model.AppointmentStatusPending)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	updated, err = f.svc.SetStatus(ctx, f.patient, appt.ID, model.AppointmentStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, updated.Status)

	_, err = f.svc.SetStatus(ctx, f.admin, appt.ID, model.AppointmentStatusConfirmed)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	assert.Equal(t, []string{
		model.EventAppointmentBooked,
		model.EventAppointmentStatusChanged,
		model.EventAppointmentStatusChanged,
	}, f.eventTypes())

	var payload model.AppointmentEvent
	require.NoError(t, json.Unmarshal(f.store.Events()[2].Payload, &payload))
	assert.Equal(t, model.AppointmentStatusCancelled, payload.Status)
	assert.Equal(t, model.AppointmentStatusConfirmed, payload.PreviousState)
}

func TestCompleteConsultation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, "2030-01-10T10:00:00Z")
	req := &model.ConsultationRequest{
		Diagnosis: "Flu",
		Medicines: []model.Medication{{Name: "Paracetamol", Dosage: "500mg", Duration: "5 days"}},
	}

	_, err := f.svc.CompleteConsultation(ctx, f.doctor, appt.ID, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict), "pending appointments cannot be completed")

	_, err = f.svc.SetStatus(ctx, f.doctor, appt.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)

	_, err = f.svc.CompleteConsultation(ctx, f.patient, appt.ID, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	_, err = f.svc.CompleteConsultation(ctx, f.otherDoctor, appt.ID, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	done, err := f.svc.CompleteConsultation(ctx, f.doctor, appt.ID, req)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, done.Status)
	assert.Equal(t, "Flu", done.Symptoms)
	assert.Nil(t, done.Prescription)

	prescription, err := f.store.Prescriptions().GetByAppointmentID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionDosage, prescription.Dosage)
	assert.Equal(t, "Flu", prescription.Instructions)
	require.Len(t, prescription.Medication, 1)
	assert.Equal(t, "Paracetamol", prescription.Medication[0].Name)

	billing, err := f.store.Billings().GetByAppointmentID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, 50.0, billing.Amount)
	assert.Equal(t, model.BillingStatusUnpaid, billing.Status)

	_, err = f.svc.CompleteConsultation(ctx, f.doctor, appt.ID, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	full, err := f.svc.Get(ctx, f.patient, appt.ID)
	require.NoError(t, err)
	require.NotNil(t, full.Prescription)
	require.NotNil(t, full.Billing)

	types := f.eventTypes()
	assert.Equal(t, model.EventConsultationCompleted, types[len(types)-1])
}

func TestCompleteConsultation_AdminWithoutMedicines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	appt := f.book(t, "2030-01-10T10:00:00Z")

	_, err := f.svc.SetStatus(ctx, f.admin, appt.ID, model.AppointmentStatusConfirmed)
	require.NoError(t, err)

	_, err = f.svc.CompleteConsultation(ctx, f.admin, appt.ID, &model.ConsultationRequest{Diagnosis: "  "})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = f.svc.CompleteConsultation(ctx, f.admin, appt.ID, &model.ConsultationRequest{Diagnosis: "Healthy"})
	require.NoError(t, err)

	prescription, err := f.store.Prescriptions().GetByAppointmentID(ctx, appt.ID)
	require.NoError(t, err)
	assert.NotNil(t, prescription.Medication)
	assert.Empty(t, prescription.Medication)
}
