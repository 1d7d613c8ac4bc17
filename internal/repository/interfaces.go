package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id int64) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		// List returns users ordered by id; an empty role matches every user.
		List(ctx context.Context, role model.Role) ([]*model.User, error)
		ListByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
		Update(ctx context.Context, user *model.User) error
	}

	ProfileRepository interface {
		CreateDoctor(ctx context.Context, profile *model.DoctorProfile) error
		CreatePatient(ctx context.Context, profile *model.PatientProfile) error
		GetDoctor(ctx context.Context, id int64) (*model.DoctorProfile, error)
		GetPatient(ctx context.Context, id int64) (*model.PatientProfile, error)
		GetDoctorByUserID(ctx context.Context, userID int64) (*model.DoctorProfile, error)
		GetPatientByUserID(ctx context.Context, userID int64) (*model.PatientProfile, error)
		ListDoctorsByIDs(ctx context.Context, ids []int64) ([]*model.DoctorProfile, error)
		ListPatientsByIDs(ctx context.Context, ids []int64) ([]*model.PatientProfile, error)
		ListDoctorsByUserIDs(ctx context.Context, userIDs []int64) ([]*model.DoctorProfile, error)
		ListPatientsByUserIDs(ctx context.Context, userIDs []int64) ([]*model.PatientProfile, error)
		UpdateDoctor(ctx context.Context, profile *model.DoctorProfile) error
		UpdatePatient(ctx context.Context, profile *model.PatientProfile) error
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id int64) (*model.Appointment, error)
		// GetForUpdate locks the row until the surrounding transaction ends.
		GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error)
		// List returns appointments ordered by date; zero filter fields match everything.
		List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		// HasOverlap reports whether the doctor holds an active appointment
		// starting less than slot away from start.
		HasOverlap(ctx context.Context, doctorID int64, start time.Time, slot time.Duration) (bool, error)
	}

	PrescriptionRepository interface {
		Create(ctx context.Context, prescription *model.Prescription) error
		GetByAppointmentID(ctx context.Context, appointmentID int64) (*model.Prescription, error)
		ListByAppointmentIDs(ctx context.Context, appointmentIDs []int64) ([]*model.Prescription, error)
	}

	BillingRepository interface {
		Create(ctx context.Context, billing *model.Billing) error
		GetByAppointmentID(ctx context.Context, appointmentID int64) (*model.Billing, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEventsWithLock skips rows locked by other relays; call it inside WithTx.
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		// MarkFailed records the error and gives up on the event once maxRetries is reached.
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string, maxRetries int) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	StatsRepository interface {
		Summary(ctx context.Context) (*model.Stats, error)
	}

	// Store groups the repositories over one connection or transaction.
	Store interface {
		Users() UserRepository
		Profiles() ProfileRepository
		Appointments() AppointmentRepository
		Prescriptions() PrescriptionRepository
		Billings() BillingRepository
		Outbox() OutboxRepository
		Stats() StatsRepository
		// WithTx runs fn against a transactional Store; any error rolls back every write.
		// Nested calls join the outer transaction.
		WithTx(ctx context.Context, fn func(Store) error) error
		Ping(ctx context.Context) error
	}
)
