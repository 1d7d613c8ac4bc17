package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/hospital-api/internal/model"
)

const (
	prescriptionColumns = `id, appointment_id, medication, dosage, instructions, created_at, updated_at`
	billingColumns      = `id, appointment_id, amount, status, created_at, updated_at`
)

type prescriptionRepository struct {
	db sqlx.ExtContext
}

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	query := `
		INSERT INTO prescriptions (appointment_id, medication, dosage, instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Medication == nil {
		p.Medication = model.Medications{}
	}

	err := sqlx.GetContext(ctx, r.db, &p.ID, query,
		p.AppointmentID, p.Medication, p.Dosage, p.Instructions, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", mapError(err))
	}
	return nil
}

func (r *prescriptionRepository) GetByAppointmentID(ctx context.Context, appointmentID int64) (*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE appointment_id = $1`

	var p model.Prescription
	if err := sqlx.GetContext(ctx, r.db, &p, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get prescription: %w", mapError(err))
	}
	return &p, nil
}

func (r *prescriptionRepository) ListByAppointmentIDs(ctx context.Context, appointmentIDs []int64) ([]*model.Prescription, error) {
	prescriptions := []*model.Prescription{}
	if len(appointmentIDs) == 0 {
		return prescriptions, nil
	}

	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE appointment_id = ANY($1)`
	if err := sqlx.SelectContext(ctx, r.db, &prescriptions, query, pq.Array(appointmentIDs)); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

type billingRepository struct {
	db sqlx.ExtContext
}

func (r *billingRepository) Create(ctx context.Context, b *model.Billing) error {
	query := `
		INSERT INTO billings (appointment_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	err := sqlx.GetContext(ctx, r.db, &b.ID, query, b.AppointmentID, b.Amount, b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create billing: %w", mapError(err))
	}
	return nil
}

func (r *billingRepository) GetByAppointmentID(ctx context.Context, appointmentID int64) (*model.Billing, error) {
	query := `SELECT ` + billingColumns + ` FROM billings WHERE appointment_id = $1`

	var b model.Billing
	if err := sqlx.GetContext(ctx, r.db, &b, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get billing: %w", mapError(err))
	}
	return &b, nil
}
