package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment override, e.g. HOSPITAL_DB_HOST.
const EnvPrefix = "HOSPITAL"

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server" envconfig:"SERVER"`
	Database     DatabaseConfig     `mapstructure:"database" envconfig:"DB"`
	JWT          JWTConfig          `mapstructure:"jwt" envconfig:"JWT"`
	Auth         AuthConfig         `mapstructure:"auth" envconfig:"AUTH"`
	Appointments AppointmentsConfig `mapstructure:"appointments" envconfig:"APPOINTMENTS"`
	Billing      BillingConfig      `mapstructure:"billing" envconfig:"BILLING"`
	Redis        RedisConfig        `mapstructure:"redis" envconfig:"REDIS"`
	Outbox       OutboxConfig       `mapstructure:"outbox" envconfig:"OUTBOX"`
	SMTP         SMTPConfig         `mapstructure:"smtp" envconfig:"SMTP"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	CORS         CORSConfig         `mapstructure:"cors" envconfig:"CORS"`
	Log          LogConfig          `mapstructure:"log" envconfig:"LOG"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" split_words:"true"`
	Mode            string        `mapstructure:"mode" split_words:"true"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" split_words:"true"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" split_words:"true"`
	Host            string        `mapstructure:"host" split_words:"true"`
	Port            int           `mapstructure:"port" split_words:"true"`
	User            string        `mapstructure:"user" split_words:"true"`
	Password        string        `mapstructure:"password" split_words:"true"`
	Name            string        `mapstructure:"name" split_words:"true"`
	SSLMode         string        `mapstructure:"sslmode" split_words:"true"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" split_words:"true"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" split_words:"true"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret" split_words:"true"`
	ExpiryHours int    `mapstructure:"expiry_hours" split_words:"true"`
}

func (j JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

type AuthConfig struct {
	AllowAdminSignup bool `mapstructure:"allow_admin_signup" split_words:"true"`
	BcryptCost       int  `mapstructure:"bcrypt_cost" split_words:"true"`
}

type AppointmentsConfig struct {
	PreventOverlap bool `mapstructure:"prevent_overlap" split_words:"true"`
	SlotMinutes    int  `mapstructure:"slot_minutes" split_words:"true"`
}

func (a AppointmentsConfig) Slot() time.Duration {
	return time.Duration(a.SlotMinutes) * time.Minute
}

type BillingConfig struct {
	ConsultationFee float64 `mapstructure:"consultation_fee" split_words:"true"`
}

type RedisConfig struct {
	URL           string        `mapstructure:"url" split_words:"true"`
	MaxRetries    int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize      int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns  int           `mapstructure:"min_idle_conns" split_words:"true"`
	ChannelPrefix string        `mapstructure:"channel_prefix" split_words:"true"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" split_words:"true"`
	PollInterval  time.Duration `mapstructure:"poll_interval" split_words:"true"`
	RetryAttempts int           `mapstructure:"retry_attempts" split_words:"true"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" split_words:"true"`
	MaxFailures   int           `mapstructure:"max_failures" split_words:"true"`
	Retention     time.Duration `mapstructure:"retention" split_words:"true"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host" split_words:"true"`
	Port     int    `mapstructure:"port" split_words:"true"`
	Username string `mapstructure:"username" split_words:"true"`
	Password string `mapstructure:"password" split_words:"true"`
	From     string `mapstructure:"from" split_words:"true"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" split_words:"true"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int     `mapstructure:"burst" split_words:"true"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
	AllowedMethods []string `mapstructure:"allowed_methods" split_words:"true"`
	AllowedHeaders []string `mapstructure:"allowed_headers" split_words:"true"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" split_words:"true"`
	Format string `mapstructure:"format" split_words:"true"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "hospital")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("auth.allow_admin_signup", false)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("appointments.prevent_overlap", true)
	v.SetDefault("appointments.slot_minutes", 30)

	v.SetDefault("billing.consultation_fee", 50.0)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.channel_prefix", "hospital")

	v.SetDefault("outbox.batch_size", 50)
	v.SetDefault("outbox.poll_interval", 2*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", 500*time.Millisecond)
	v.SetDefault("outbox.max_failures", 5)
	v.SetDefault("outbox.retention", 7*24*time.Hour)

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "no-reply@hospital.local")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 50.0)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads, in increasing precedence: built-in defaults, config.yml (or the
// file at path), a local .env file, and HOSPITAL_* environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.JWT.ExpiryHours <= 0 {
		errs = append(errs, errors.New("jwt.expiry_hours must be positive"))
	}
	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverMemory {
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q", DriverPostgres, DriverMemory))
	}
	if c.Appointments.SlotMinutes <= 0 {
		errs = append(errs, errors.New("appointments.slot_minutes must be positive"))
	}
	if c.Billing.ConsultationFee < 0 {
		errs = append(errs, errors.New("billing.consultation_fee must not be negative"))
	}
	if c.Outbox.BatchSize <= 0 || c.Outbox.PollInterval <= 0 || c.Outbox.RetryAttempts <= 0 {
		errs = append(errs, errors.New("outbox batch_size, poll_interval and retry_attempts must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
