package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/hospital-api/internal/repository"
)

const uniqueViolation = "23505"

// Store is the PostgreSQL implementation of repository.Store. Outside a
// transaction ext is the pool; inside WithTx it is the *sqlx.Tx.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepository{db: s.ext}
}

func (s *Store) Profiles() repository.ProfileRepository {
	return &profileRepository{db: s.ext}
}

func (s *Store) Appointments() repository.AppointmentRepository {
	return &appointmentRepository{db: s.ext}
}

func (s *Store) Prescriptions() repository.PrescriptionRepository {
	return &prescriptionRepository{db: s.ext}
}

func (s *Store) Billings() repository.BillingRepository {
	return &billingRepository{db: s.ext}
}

func (s *Store) Outbox() repository.OutboxRepository {
	return &outboxRepository{db: s.ext}
}

func (s *Store) Stats() repository.StatsRepository {
	return &statsRepository{db: s.ext}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx executes a function within a transaction
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) (err error) {
	if _, ok := s.ext.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Store{db: s.db, ext: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func checkRowsAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
