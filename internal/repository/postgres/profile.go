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
	doctorColumns  = `id, user_id, specialization, experience, consultation_fee, created_at, updated_at`
	patientColumns = `id, user_id, gender, blood_group, address, dob, created_at, updated_at`
)

type profileRepository struct {
	db sqlx.ExtContext
}

func (r *profileRepository) CreateDoctor(ctx context.Context, p *model.DoctorProfile) error {
	query := `
		INSERT INTO doctor_profiles (user_id, specialization, experience, consultation_fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := sqlx.GetContext(ctx, r.db, &p.ID, query,
		p.UserID, p.Specialization, p.Experience, p.ConsultationFee, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create doctor profile: %w", mapError(err))
	}
	return nil
}

func (r *profileRepository) CreatePatient(ctx context.Context, p *model.PatientProfile) error {
	query := `
		INSERT INTO patient_profiles (user_id, gender, blood_group, address, dob, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := sqlx.GetContext(ctx, r.db, &p.ID, query,
		p.UserID, p.Gender, p.BloodGroup, p.Address, p.DOB, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create patient profile: %w", mapError(err))
	}
	return nil
}

func (r *profileRepository) GetDoctor(ctx context.Context, id int64) (*model.DoctorProfile, error) {
	return r.getDoctor(ctx, `id = $1`, id)
}

func (r *profileRepository) GetDoctorByUserID(ctx context.Context, userID int64) (*model.DoctorProfile, error) {
	return r.getDoctor(ctx, `user_id = $1`, userID)
}

func (r *profileRepository) getDoctor(ctx context.Context, where string, arg int64) (*model.DoctorProfile, error) {
	var p model.DoctorProfile
	query := `SELECT ` + doctorColumns + ` FROM doctor_profiles WHERE ` + where
	if err := sqlx.GetContext(ctx, r.db, &p, query, arg); err != nil {
		return nil, fmt.Errorf("failed to get doctor profile: %w", mapError(err))
	}
	return &p, nil
}

func (r *profileRepository) GetPatient(ctx context.Context, id int64) (*model.PatientProfile, error) {
	return r.getPatient(ctx, `id = $1`, id)
}

func (r *profileRepository) GetPatientByUserID(ctx context.Context, userID int64) (*model.PatientProfile, error) {
	return r.getPatient(ctx, `user_id = $1`, userID)
}

func (r *profileRepository) getPatient(ctx context.Context, where string, arg int64) (*model.PatientProfile, error) {
	var p model.PatientProfile
	query := `SELECT ` + patientColumns + ` FROM patient_profiles WHERE ` + where
	if err := sqlx.GetContext(ctx, r.db, &p, query, arg); err != nil {
		return nil, fmt.Errorf("failed to get patient profile: %w", mapError(err))
	}
	return &p, nil
}

func (r *profileRepository) ListDoctorsByIDs(ctx context.Context, ids []int64) ([]*model.DoctorProfile, error) {
	return r.listDoctors(ctx, "id", ids)
}

func (r *profileRepository) ListDoctorsByUserIDs(ctx context.Context, userIDs []int64) ([]*model.DoctorProfile, error) {
	return r.listDoctors(ctx, "user_id", userIDs)
}

func (r *profileRepository) listDoctors(ctx context.Context, column string, ids []int64) ([]*model.DoctorProfile, error) {
	profiles := []*model.DoctorProfile{}
	if len(ids) == 0 {
		return profiles, nil
	}
	query := `SELECT ` + doctorColumns + ` FROM doctor_profiles WHERE ` + column + ` = ANY($1) ORDER BY id ASC`
	if err := sqlx.SelectContext(ctx, r.db, &profiles, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list doctor profiles: %w", err)
	}
	return profiles, nil
}

func (r *profileRepository) ListPatientsByIDs(ctx context.Context, ids []int64) ([]*model.PatientProfile, error) {
	return r.listPatients(ctx, "id", ids)
}

func (r *profileRepository) ListPatientsByUserIDs(ctx context.Context, userIDs []int64) ([]*model.PatientProfile, error) {
	return r.listPatients(ctx, "user_id", userIDs)
}

func (r *profileRepository) listPatients(ctx context.Context, column string, ids []int64) ([]*model.PatientProfile, error) {
	profiles := []*model.PatientProfile{}
	if len(ids) == 0 {
		return profiles, nil
	}
	query := `SELECT ` + patientColumns + ` FROM patient_profiles WHERE ` + column + ` = ANY($1) ORDER BY id ASC`
	if err := sqlx.SelectContext(ctx, r.db, &profiles, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list patient profiles: %w", err)
	}
	return profiles, nil
}

func (r *profileRepository) UpdateDoctor(ctx context.Context, p *model.DoctorProfile) error {
	query := `
		UPDATE doctor_profiles
		SET specialization = $1, experience = $2, consultation_fee = $3, updated_at = $4
		WHERE id = $5
	`

	p.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, p.Specialization, p.Experience, p.ConsultationFee, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update doctor profile: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *profileRepository) UpdatePatient(ctx context.Context, p *model.PatientProfile) error {
	query := `
		UPDATE patient_profiles
		SET gender = $1, blood_group = $2, address = $3, dob = $4, updated_at = $5
		WHERE id = $6
	`

	p.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query, p.Gender, p.BloodGroup, p.Address, p.DOB, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update patient profile: %w", err)
	}
	return checkRowsAffected(result)
}
