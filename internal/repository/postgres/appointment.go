package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
)

const appointmentColumns = `id, date, symptoms, status, patient_id, doctor_id, created_at, updated_at`

type appointmentRepository struct {
	db sqlx.ExtContext
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (date, symptoms, status, patient_id, doctor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now().UTC()
	appointment.CreatedAt = now
	appointment.UpdatedAt = now

	err := sqlx.GetContext(ctx, r.db, &appointment.ID, query,
		appointment.Date,
		appointment.Symptoms,
		appointment.Status,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", mapError(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := sqlx.GetContext(ctx, r.db, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", mapError(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`

	var appointment model.Appointment
	if err := sqlx.GetContext(ctx, r.db, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to lock appointment: %w", mapError(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filters.PatientID != 0 {
		args = append(args, filters.PatientID)
		conditions = append(conditions, "patient_id = $"+strconv.Itoa(len(args)))
	}
	if filters.DoctorID != 0 {
		args = append(args, filters.DoctorID)
		conditions = append(conditions, "doctor_id = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY date ASC, id ASC`

	appointments := []*model.Appointment{}
	if err := sqlx.SelectContext(ctx, r.db, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET status = $1, symptoms = $2, updated_at = $3
		WHERE id = $4
	`

	appointment.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		appointment.Status,
		appointment.Symptoms,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return checkRowsAffected(result)
}

// HasOverlap locks the doctor's profile row first so concurrent bookings
// for the same doctor serialize behind the check.
func (r *appointmentRepository) HasOverlap(ctx context.Context, doctorID int64, start time.Time, slot time.Duration) (bool, error) {
	var locked int64
	if err := sqlx.GetContext(ctx, r.db, &locked, `SELECT id FROM doctor_profiles WHERE id = $1 FOR UPDATE`, doctorID); err != nil {
		return false, fmt.Errorf("failed to lock doctor schedule: %w", mapError(err))
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND status IN ($2, $3)
			AND date > $4
			AND date < $5
		)
	`

	var hasConflict bool
	err := sqlx.GetContext(ctx, r.db, &hasConflict, query,
		doctorID,
		model.AppointmentStatusPending,
		model.AppointmentStatusConfirmed,
		start.Add(-slot),
		start.Add(slot),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return hasConflict, nil
}
