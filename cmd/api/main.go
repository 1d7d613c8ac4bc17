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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/handler"
	appointmenthandler "github.com/jwalitptl/hospital-api/internal/handler/appointment"
	authhandler "github.com/jwalitptl/hospital-api/internal/handler/auth"
	statshandler "github.com/jwalitptl/hospital-api/internal/handler/stats"
	userhandler "github.com/jwalitptl/hospital-api/internal/handler/user"
	"github.com/jwalitptl/hospital-api/internal/middleware"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/internal/repository/postgres"
	"github.com/jwalitptl/hospital-api/internal/router"
	appointmentservice "github.com/jwalitptl/hospital-api/internal/service/appointment"
	authservice "github.com/jwalitptl/hospital-api/internal/service/auth"
	statsservice "github.com/jwalitptl/hospital-api/internal/service/stats"
	userservice "github.com/jwalitptl/hospital-api/internal/service/user"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/security"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hospital-api",
		Short: "Hospital management API server",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(createAdminCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostgres {
				log.Info().Str("driver", cfg.Database.Driver).Msg("nothing to migrate")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info().Msg("schema applied")
			return nil
		},
	}
}

func createAdminCmd(configPath *string) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if password == "" {
				password = os.Getenv(config.EnvPrefix + "_ADMIN_PASSWORD")
			}

			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := newAuthService(cfg, store)
			user, err := svc.CreateAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return fmt.Errorf("failed to create admin: %w", err)
			}
			log.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("admin created")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login e-mail")
	cmd.Flags().StringVar(&password, "password", "", "password (defaults to $HOSPITAL_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Setup(&logger.Config{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
	return cfg, nil
}

// openStore connects the configured persistence driver.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.NewStore(), func() {}, nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewStore(db), func() { _ = db.Close() }, nil
}

func newAuthService(cfg *config.Config, store repository.Store) *authservice.Service {
	return authservice.NewService(
		store,
		security.NewBcryptHasher(cfg.Auth.BcryptCost),
		auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry()),
		auth.NewRevocationList(10*time.Minute),
		authservice.Config{AllowAdminSignup: cfg.Auth.AllowAdminSignup},
	)
}

func runServer(cfg *config.Config) error {
	if err := middleware.RegisterValidators(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize services
	authSvc := newAuthService(cfg, store)
	userSvc := userservice.NewService(store)
	appointmentSvc := appointmentservice.NewService(store, appointmentservice.Config{
		PreventOverlap:  cfg.Appointments.PreventOverlap,
		Slot:            cfg.Appointments.Slot(),
		ConsultationFee: cfg.Billing.ConsultationFee,
	})
	statsSvc := statsservice.NewService(store)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	if len(cfg.CORS.AllowedMethods) > 0 {
		corsConfig.AllowMethods = cfg.CORS.AllowedMethods
	}
	if len(cfg.CORS.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.CORS.AllowedHeaders
	}

	// Setup router
	r := router.NewRouter(middleware.NewAuthMiddleware(authSvc), router.Handlers{
		Auth:        authhandler.NewHandler(authSvc, userSvc),
		User:        userhandler.NewHandler(userSvc),
		Appointment: appointmenthandler.NewHandler(appointmentSvc),
		Stats:       statshandler.NewHandler(statsSvc),
		Ops:         handler.NewHandler(store, reg),
	}, router.RouterConfig{
		Mode:             cfg.Server.Mode,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig:       corsConfig,
		MetricsPrefix:    "hospital_api",
		Registerer:       reg,
	})
	r.Setup()

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r.Engine(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.Database.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}
