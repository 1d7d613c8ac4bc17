package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type outboxRepository struct {
	s *Store
}

func (r *outboxRepository) Create(_ context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if event.Payload == nil {
		return errors.New("event payload cannot be nil")
	}

	defer r.s.lock()()
	st := r.s.current()

	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()
	event.UpdatedAt = event.CreatedAt
	event.Status = model.OutboxStatusPending
	st.outbox = append(st.outbox, *event)
	return nil
}

func (r *outboxRepository) GetPendingEventsWithLock(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	defer r.s.lock()()

	events := []*model.OutboxEvent{}
	for _, e := range r.s.current().outbox {
		if len(events) >= limit {
			break
		}
		if e.Status == model.OutboxStatusPending {
			e := e
			events = append(events, &e)
		}
	}
	return events, nil
}

func (r *outboxRepository) update(id uuid.UUID, fn func(*model.OutboxEvent)) error {
	defer r.s.lock()()
	st := r.s.current()

	for i := range st.outbox {
		if st.outbox[i].ID == id {
			fn(&st.outbox[i])
			st.outbox[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *outboxRepository) MarkProcessed(_ context.Context, id uuid.UUID) error {
	return r.update(id, func(e *model.OutboxEvent) {
		now := time.Now().UTC()
		e.Status = model.OutboxStatusProcessed
		e.ErrorMessage = nil
		e.ProcessedAt = &now
	})
}

func (r *outboxRepository) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string, maxRetries int) error {
	return r.update(id, func(e *model.OutboxEvent) {
		e.RetryCount++
		e.ErrorMessage = &errorMessage
		if e.RetryCount >= maxRetries {
			e.Status = model.OutboxStatusFailed
		}
	})
}

func (r *outboxRepository) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	defer r.s.lock()()
	st := r.s.current()

	kept := st.outbox[:0:0]
	var deleted int64
	for _, e := range st.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	st.outbox = kept
	return deleted, nil
}

// Events returns a copy of every recorded outbox event.
func (s *Store) Events() []model.OutboxEvent {
	defer s.lock()()
	return append([]model.OutboxEvent(nil), s.current().outbox...)
}
