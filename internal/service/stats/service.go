package stats

import (
	"context"
	"fmt"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type Service struct {
	store repository.Store
}

func NewService(store repository.Store) *Service {
	return &Service{store: store}
}

// Summary returns head counts, appointment totals per status and billed revenue.
func (s *Service) Summary(ctx context.Context) (*model.Stats, error) {
	stats, err := s.store.Stats().Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	for _, status := range []model.AppointmentStatus{
		model.AppointmentStatusPending,
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled,
	} {
		if _, ok := stats.ByStatus[status]; !ok {
			stats.ByStatus[status] = 0
		}
	}
	return stats, nil
}
