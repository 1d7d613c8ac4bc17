package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/messaging/redis"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
	"github.com/jwalitptl/hospital-api/pkg/notify"
	"github.com/jwalitptl/hospital-api/pkg/worker"
)

func main() {
	var configPath, healthAddr string

	rootCmd := &cobra.Command{
		Use:   "hospital-worker",
		Short: "Relay outbox events to Redis and send patient notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, healthAddr)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.yml")
	rootCmd.Flags().StringVar(&healthAddr, "health-addr", ":8081", "address of the health and metrics listener")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath, healthAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.Setup(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	}).With("component", "outbox-worker")

	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("the worker requires the %q driver, got %q", config.DriverPostgres, cfg.Database.Driver)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New("outbox_processor", reg)

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, log.Zerolog(), m)
	if err != nil {
		return fmt.Errorf("failed to create Redis broker: %w", err)
	}
	defer broker.Close()

	mailer := notify.NewMailer(notify.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log.Zerolog())

	processor := worker.NewOutboxProcessor(
		postgres.NewStore(db),
		broker,
		mailer,
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			MaxFailures:   cfg.Outbox.MaxFailures,
			ChannelPrefix: cfg.Redis.ChannelPrefix,
			Retention:     cfg.Outbox.Retention,
		},
		log,
		m,
	)

	srv := healthServer(healthAddr, reg, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return broker.Ping(ctx)
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "Health check server failed")
			stop()
		}
	}()

	processor.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func healthServer(addr string, gatherer prometheus.Gatherer, ready func(context.Context) error) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx); err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
