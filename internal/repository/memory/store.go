// Package memory is an in-process repository.Store used for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type state struct {
	seq           int64
	users         map[int64]model.User
	doctors       map[int64]model.DoctorProfile
	patients      map[int64]model.PatientProfile
	appointments  map[int64]model.Appointment
	prescriptions map[int64]model.Prescription
	billings      map[int64]model.Billing
	outbox        []model.OutboxEvent
}

func newState() *state {
	return &state{
		users:         map[int64]model.User{},
		doctors:       map[int64]model.DoctorProfile{},
		patients:      map[int64]model.PatientProfile{},
		appointments:  map[int64]model.Appointment{},
		prescriptions: map[int64]model.Prescription{},
		billings:      map[int64]model.Billing{},
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	c := &state{
		seq:           s.seq,
		users:         make(map[int64]model.User, len(s.users)),
		doctors:       make(map[int64]model.DoctorProfile, len(s.doctors)),
		patients:      make(map[int64]model.PatientProfile, len(s.patients)),
		appointments:  make(map[int64]model.Appointment, len(s.appointments)),
		prescriptions: make(map[int64]model.Prescription, len(s.prescriptions)),
		billings:      make(map[int64]model.Billing, len(s.billings)),
		outbox:        append([]model.OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.doctors {
		c.doctors[k] = v
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.prescriptions {
		c.prescriptions[k] = v
	}
	for k, v := range s.billings {
		c.billings[k] = v
	}
	return c
}

// Store keeps every record in memory. A transaction holds the store's lock
// for its whole duration and restores a snapshot when it fails.
type Store struct {
	mu   *sync.Mutex
	data **state
	inTx bool
}

func NewStore() *Store {
	data := newState()
	return &Store{mu: &sync.Mutex{}, data: &data}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) current() *state {
	return *s.data
}

func (s *Store) Users() repository.UserRepository                 { return &userRepository{s} }
func (s *Store) Profiles() repository.ProfileRepository           { return &profileRepository{s} }
func (s *Store) Appointments() repository.AppointmentRepository   { return &appointmentRepository{s} }
func (s *Store) Prescriptions() repository.PrescriptionRepository { return &prescriptionRepository{s} }
func (s *Store) Billings() repository.BillingRepository           { return &billingRepository{s} }
func (s *Store) Outbox() repository.OutboxRepository              { return &outboxRepository{s} }
func (s *Store) Stats() repository.StatsRepository                { return &statsRepository{s} }

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.current().clone()
	defer func() {
		if p := recover(); p != nil {
			*s.data = snapshot
			panic(p)
		}
	}()

	if err := fn(&Store{mu: s.mu, data: s.data, inTx: true}); err != nil {
		*s.data = snapshot
		return err
	}
	return nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
