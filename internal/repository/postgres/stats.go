package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hospital-api/internal/model"
)

type statsRepository struct {
	db sqlx.ExtContext
}

func (r *statsRepository) Summary(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{ByStatus: map[model.AppointmentStatus]int{}}

	counts := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = $1) AS doctors,
			(SELECT COUNT(*) FROM users WHERE role = $2) AS patients,
			(SELECT COUNT(*) FROM appointments) AS appointments,
			(SELECT COALESCE(SUM(amount), 0) FROM billings) AS revenue
	`
	var row struct {
		Doctors      int     `db:"doctors"`
		Patients     int     `db:"patients"`
		Appointments int     `db:"appointments"`
		Revenue      float64 `db:"revenue"`
	}
	if err := sqlx.GetContext(ctx, r.db, &row, counts, model.RoleDoctor, model.RolePatient); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	stats.Doctors = row.Doctors
	stats.Patients = row.Patients
	stats.Appointments = row.Appointments
	stats.Revenue = row.Revenue

	var byStatus []struct {
		Status model.AppointmentStatus `db:"status"`
		Count  int                     `db:"count"`
	}
	if err := sqlx.SelectContext(ctx, r.db, &byStatus, `SELECT status, COUNT(*) AS count FROM appointments GROUP BY status`); err != nil {
		return nil, fmt.Errorf("failed to count appointments by status: %w", err)
	}
	for _, s := range byStatus {
		stats.ByStatus[s.Status] = s.Count
	}

	return stats, nil
}
