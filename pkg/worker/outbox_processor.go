package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/messaging"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/notify"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// MaxFailures is the number of failed polls after which an event is parked as FAILED.
	MaxFailures   int
	ChannelPrefix string
	// Retention is how long processed events are kept; zero keeps them forever.
	Retention time.Duration
}

// OutboxProcessor relays recorded domain events to the broker and notifies patients.
type OutboxProcessor struct {
	store   repository.Store
	broker  messaging.Broker
	mailer  notify.Mailer
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	store repository.Store,
	broker messaging.Broker,
	mailer notify.Mailer,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.MaxFailures <= 0 {
		config.MaxFailures = 1
	}

	return &OutboxProcessor{
		store:   store,
		broker:  broker,
		mailer:  mailer,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	var cleanup <-chan time.Time
	if p.config.Retention > 0 {
		cleanupTicker := time.NewTicker(time.Hour)
		defer cleanupTicker.Stop()
		cleanup = cleanupTicker.C
	}

	p.logger.Info("Starting outbox processor", "batch_size", p.config.BatchSize, "poll_interval", p.config.PollInterval.String())

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process events")
			}
		case <-cleanup:
			if _, err := p.Cleanup(ctx); err != nil {
				p.logger.Error(err, "Failed to clean up processed events")
			}
		}
	}
}

// ProcessBatch relays one batch of pending events and returns how many were published.
// Rows stay locked until the batch is done, so concurrent relays never publish the same event.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	published := 0
	err := p.store.WithTx(ctx, func(tx repository.Store) error {
		events, err := tx.Outbox().GetPendingEventsWithLock(ctx, p.config.BatchSize)
		if err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}
		p.metrics.OutboxQueueSize.Set(float64(len(events)))

		for _, event := range events {
			if err := p.processEvent(ctx, tx, event); err != nil {
				p.logger.Error(err, "Failed to process event",
					"event_id", event.ID.String(),
					"event_type", event.EventType)
				continue
			}
			published++
		}
		return nil
	})
	return published, err
}

func (p *OutboxProcessor) processEvent(ctx context.Context, tx repository.Store, event *model.OutboxEvent) error {
	channel := messaging.Channel(p.config.ChannelPrefix, event.EventType)
	message := messaging.Message{
		ID:      event.ID.String(),
		Type:    event.EventType,
		Payload: event.Payload,
	}

	attempt := 0
	err := retry(ctx, p.config.RetryAttempts, p.config.RetryDelay, func() error {
		if attempt > 0 {
			p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
		}
		attempt++
		return p.broker.Publish(ctx, channel, message)
	})

	if err != nil {
		p.metrics.OutboxEventsFailed.Inc()
		if updateErr := tx.Outbox().MarkFailed(ctx, event.ID, err.Error(), p.config.MaxFailures); updateErr != nil {
			p.logger.Error(updateErr, "Failed to update event status", "event_id", event.ID.String())
		}
		return err
	}

	if err := tx.Outbox().MarkProcessed(ctx, event.ID); err != nil {
		p.logger.Error(err, "Failed to update event status", "event_id", event.ID.String())
		return err
	}
	p.metrics.OutboxEventsProcessed.Inc()

	p.notify(ctx, event)
	return nil
}

// notify e-mails the patient. Delivery failures are logged and never fail the event.
func (p *OutboxProcessor) notify(ctx context.Context, event *model.OutboxEvent) {
	if p.mailer == nil {
		return
	}

	var payload model.AppointmentEvent
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		p.logger.Warn("Skipping notification for undecodable payload", "event_id", event.ID.String())
		return
	}

	email, ok := notify.ForAppointmentEvent(event.EventType, payload)
	if !ok {
		return
	}

	if err := p.mailer.Send(ctx, email.To, email.Subject, email.Body); err != nil {
		p.metrics.EmailsSent.WithLabelValues(event.EventType, "error").Inc()
		p.logger.Error(err, "Failed to send notification", "event_id", event.ID.String())
		return
	}
	p.metrics.EmailsSent.WithLabelValues(event.EventType, "success").Inc()
}

// Cleanup deletes processed events older than the retention period.
func (p *OutboxProcessor) Cleanup(ctx context.Context) (int64, error) {
	if p.config.Retention <= 0 {
		return 0, nil
	}
	deleted, err := p.store.Outbox().DeleteProcessedBefore(ctx, time.Now().Add(-p.config.Retention))
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}
	if deleted > 0 {
		p.logger.Info("Deleted processed outbox events", "count", deleted)
	}
	return deleted, nil
}

// Helper retry function
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
