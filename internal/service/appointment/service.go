package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

// DefaultSlot is the length of one appointment when none is configured.
const DefaultSlot = 30 * time.Minute

type Config struct {
	PreventOverlap  bool
	Slot            time.Duration
	ConsultationFee float64
}

type Service struct {
	store repository.Store
	cfg   Config
}

func NewService(store repository.Store, cfg Config) *Service {
	if cfg.Slot <= 0 {
		cfg.Slot = DefaultSlot
	}
	return &Service{store: store, cfg: cfg}
}

// Book creates a PENDING appointment for the calling patient.
func (s *Service) Book(ctx context.Context, actor model.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	input, err := bookingInput(req)
	if err != nil {
		return nil, err
	}

	var appt *model.Appointment
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		patient, err := tx.Profiles().GetPatientByUserID(ctx, actor.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.PreconditionFailed("patient profile not found, complete your profile first")
		}
		if err != nil {
			return fmt.Errorf("failed to get patient profile: %w", err)
		}

		doctor, err := tx.Profiles().GetDoctor(ctx, input.DoctorID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("doctor", err)
		}
		if err != nil {
			return fmt.Errorf("failed to get doctor: %w", err)
		}

		if s.cfg.PreventOverlap {
			overlap, err := tx.Appointments().HasOverlap(ctx, doctor.ID, input.Date, s.cfg.Slot)
			if err != nil {
				return fmt.Errorf("failed to check doctor availability: %w", err)
			}
			if overlap {
				return apperrors.Conflict("doctor already has an appointment at this time", nil)
			}
		}

		appt = &model.Appointment{
			Date:      input.Date,
			Symptoms:  input.Symptoms,
			Status:    model.AppointmentStatusPending,
			PatientID: patient.ID,
			DoctorID:  doctor.ID,
		}
		if err := tx.Appointments().Create(ctx, appt); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}

		return recordEvent(ctx, tx, model.EventAppointmentBooked, appt, "", 0)
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Int64("appointment_id", appt.ID).
		Int64("doctor_id", appt.DoctorID).
		Time("date", appt.Date).
		Msg("appointment booked")
	return appt, nil
}

func bookingInput(req *model.CreateAppointmentRequest) (*model.BookingInput, error) {
	if req.DoctorID <= 0 {
		return nil, apperrors.Validation("validation failed", apperrors.FieldError{
			Field:   "doctorId",
			Message: "must be a positive identifier",
		})
	}

	date, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, apperrors.Validation("validation failed", apperrors.FieldError{
			Field:   "date",
			Message: "must be an ISO-8601 date-time",
		})
	}

	symptoms := model.DefaultSymptoms
	if req.Symptoms != nil && strings.TrimSpace(*req.Symptoms) != "" {
		symptoms = *req.Symptoms
	}

	return &model.BookingInput{
		DoctorID: int64(req.DoctorID),
		Date:     date,
		Symptoms: symptoms,
	}, nil
}

// List returns the appointments visible to the caller ordered by date.
// Patients and doctors without a profile get an empty list.
func (s *Service) List(ctx context.Context, actor model.Actor) ([]*model.Appointment, error) {
	var (
		filters model.AppointmentFilters
		join    joinOptions
	)

	switch actor.Role {
	case model.RolePatient:
		profile, err := s.store.Profiles().GetPatientByUserID(ctx, actor.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return []*model.Appointment{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get patient profile: %w", err)
		}
		filters.PatientID = profile.ID
		join = joinOptions{doctor: true, prescription: true}
	case model.RoleDoctor:
		profile, err := s.store.Profiles().GetDoctorByUserID(ctx, actor.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return []*model.Appointment{}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get doctor profile: %w", err)
		}
		filters.DoctorID = profile.ID
		join = joinOptions{patient: true, prescription: true}
	case model.RoleAdmin:
		join = joinOptions{patient: true, doctor: true, prescription: true}
	default:
		return nil, apperrors.Forbidden("unknown role")
	}

	appointments, err := s.store.Appointments().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	if err := attach(ctx, s.store, appointments, join); err != nil {
		return nil, err
	}
	return appointments, nil
}

// Get returns one appointment with both participants, its prescription and its bill.
func (s *Service) Get(ctx context.Context, actor model.Actor, id int64) (*model.Appointment, error) {
	appt, err := s.store.Appointments().Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	p, err := participation(ctx, s.store, actor, appt)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !p.patient && !p.doctor {
		return nil, apperrors.Forbidden("you are not a participant of this appointment")
	}

	join := joinOptions{patient: true, doctor: true, prescription: true, billing: true}
	if err := attach(ctx, s.store, []*model.Appointment{appt}, join); err != nil {
		return nil, err
	}
	return appt, nil
}

// SetStatus confirms or cancels an appointment. Completion goes through CompleteConsultation.
func (s *Service) SetStatus(ctx context.Context, actor model.Actor, id int64, status model.AppointmentStatus) (*model.Appointment, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("validation failed", apperrors.FieldError{
			Field:   "status",
			Message: "must be one of PENDING, CONFIRMED, COMPLETED, CANCELLED",
		})
	}
	if status == model.AppointmentStatusCompleted {
		return nil, apperrors.Conflict("appointments are completed through the consultation endpoint", nil)
	}

	var appt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		appt, err = lockAppointment(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := authorizeStatusChange(ctx, tx, actor, appt, status); err != nil {
			return err
		}
		if !appt.Status.CanTransitionTo(status) {
			return invalidTransition(appt.Status, status)
		}

		previous := appt.Status
		appt.Status = status
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}

		return recordEvent(ctx, tx, model.EventAppointmentStatusChanged, appt, previous, 0)
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Int64("appointment_id", appt.ID).
		Str("status", string(appt.Status)).
		Int64("actor_id", actor.UserID).
		Msg("appointment status changed")
	return appt, nil
}

func authorizeStatusChange(ctx context.Context, tx repository.Store, actor model.Actor, appt *model.Appointment, status model.AppointmentStatus) error {
	if actor.IsAdmin() {
		return nil
	}

	p, err := participation(ctx, tx, actor, appt)
	if err != nil {
		return err
	}

	switch {
	case p.doctor:
		if status == model.AppointmentStatusConfirmed || status == model.AppointmentStatusCancelled {
			return nil
		}
		return apperrors.Forbidden("doctors may only confirm or cancel appointments")
	case p.patient:
		if status == model.AppointmentStatusCancelled {
			return nil
		}
		return apperrors.Forbidden("patients may only cancel appointments")
	default:
		return apperrors.Forbidden("you are not a participant of this appointment")
	}
}

// CompleteConsultation closes a CONFIRMED appointment and writes its prescription and bill
// in one transaction.
func (s *Service) CompleteConsultation(ctx context.Context, actor model.Actor, id int64, req *model.ConsultationRequest) (*model.Appointment, error) {
	diagnosis := strings.TrimSpace(req.Diagnosis)
	if diagnosis == "" {
		return nil, apperrors.Validation("validation failed", apperrors.FieldError{
			Field:   "diagnosis",
			Message: "is required",
		})
	}

	medicines := model.Medications(req.Medicines)
	if medicines == nil {
		medicines = model.Medications{}
	}

	var appt *model.Appointment
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		appt, err = lockAppointment(ctx, tx, id)
		if err != nil {
			return err
		}

		if !actor.IsAdmin() {
			p, err := participation(ctx, tx, actor, appt)
			if err != nil {
				return err
			}
			if !p.doctor {
				return apperrors.Forbidden("only the appointment's doctor can complete the consultation")
			}
		}
		if !appt.Status.CanTransitionTo(model.AppointmentStatusCompleted) {
			return invalidTransition(appt.Status, model.AppointmentStatusCompleted)
		}

		appt.Status = model.AppointmentStatusCompleted
		appt.Symptoms = diagnosis
		if err := tx.Appointments().Update(ctx, appt); err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}

		prescription := &model.Prescription{
			AppointmentID: appt.ID,
			Medication:    medicines,
			Dosage:        model.PrescriptionDosage,
			Instructions:  diagnosis,
		}
		if err := tx.Prescriptions().Create(ctx, prescription); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.Conflict("prescription already exists for this appointment", err)
			}
			return fmt.Errorf("failed to create prescription: %w", err)
		}

		billing := &model.Billing{
			AppointmentID: appt.ID,
			Amount:        s.cfg.ConsultationFee,
			Status:        model.BillingStatusUnpaid,
		}
		if err := tx.Billings().Create(ctx, billing); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.Conflict("billing already exists for this appointment", err)
			}
			return fmt.Errorf("failed to create billing: %w", err)
		}

		return recordEvent(ctx, tx, model.EventConsultationCompleted, appt, model.AppointmentStatusConfirmed, billing.Amount)
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Int64("appointment_id", appt.ID).
		Float64("amount", s.cfg.ConsultationFee).
		Msg("consultation completed")
	return appt, nil
}

func lockAppointment(ctx context.Context, tx repository.Store, id int64) (*model.Appointment, error) {
	appt, err := tx.Appointments().GetForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock appointment: %w", err)
	}
	return appt, nil
}

func invalidTransition(from, to model.AppointmentStatus) error {
	return apperrors.Conflict(fmt.Sprintf("invalid status transition from %s to %s", from, to), nil)
}

type participant struct {
	patient bool
	doctor  bool
}

// participation reports which side of the appointment the caller is on.
func participation(ctx context.Context, store repository.Store, actor model.Actor, appt *model.Appointment) (participant, error) {
	var p participant
	switch actor.Role {
	case model.RolePatient:
		profile, err := store.Profiles().GetPatientByUserID(ctx, actor.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return p, nil
		}
		if err != nil {
			return p, fmt.Errorf("failed to get patient profile: %w", err)
		}
		p.patient = profile.ID == appt.PatientID
	case model.RoleDoctor:
		profile, err := store.Profiles().GetDoctorByUserID(ctx, actor.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return p, nil
		}
		if err != nil {
			return p, fmt.Errorf("failed to get doctor profile: %w", err)
		}
		p.doctor = profile.ID == appt.DoctorID
	}
	return p, nil
}
