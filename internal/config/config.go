package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration. It is read once at startup and passed
// explicitly into every constructor that needs a value from it.
type Config struct {
	Environment string        `env:"APP_ENV" envDefault:"development"`
	RunLocal    bool          `env:"RUN_LOCAL"`
	HTTPAddr    string        `env:"HTTP_ADDR" envDefault:":8080"`
	Logging     LoggingConfig `envPrefix:"LOG_"`
	Auth        AuthConfig    `envPrefix:"JWT_"`
	Tables      TablesConfig
	Queues      QueuesConfig
	Timeouts    TimeoutsConfig
	AWS         AWSConfig

	// PublicRoutes are path prefixes that skip token verification. Matching is case-sensitive.
	PublicRoutes []string `env:"PUBLIC_ROUTES" envSeparator:"," envDefault:"/api/auth/register,/api/auth/login,/health,/metrics"`

	// ReservationTTL sets expires_at on ledger records for DynamoDB TTL cleanup.
	ReservationTTL    time.Duration `env:"RESERVATION_TTL" envDefault:"48h"`
	MetricsNamespace  string        `env:"METRICS_NAMESPACE" envDefault:"EventFlow"`
	WorkerConcurrency int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
}

type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

type AuthConfig struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"120m"`
	Issuer string        `env:"ISSUER" envDefault:"eventflow"`
}

type TablesConfig struct {
	Users       string `env:"USERS_TABLE" envDefault:"user"`
	Idempotency string `env:"IDEMPOTENCY_TABLE" envDefault:"sf_idempotency"`
	Contacts    string `env:"CONTACTS_TABLE" envDefault:"sf_contact"`
}

type QueuesConfig struct {
	Users       string `env:"USERS_QUEUE_URL"`
	Submissions string `env:"SUBMISSIONS_QUEUE_URL"`
}

// AWSConfig selects the region and, for local runs, the LocalStack endpoint.
type AWSConfig struct {
	Region           string `env:"AWS_REGION" envDefault:"us-east-1"`
	EndpointOverride string `env:"AWS_ENDPOINT_OVERRIDE"`
	MaxAttempts      int    `env:"AWS_MAX_ATTEMPTS" envDefault:"3"`
}

type TimeoutsConfig struct {
	Store  time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`
	Broker time.Duration `env:"BROKER_TIMEOUT" envDefault:"5s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadWorker parses the environment for the worker, which never signs or
// verifies tokens and so runs without JWT_SECRET.
func LoadWorker() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validateTimeouts(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	// HS256 keys shorter than the hash output weaken the MAC.
	if len(c.Auth.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.Auth.TTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	return c.validateTimeouts()
}

func (c Config) validateTimeouts() error {
	if c.Timeouts.Store <= 0 || c.Timeouts.Broker <= 0 {
		return fmt.Errorf("STORE_TIMEOUT and BROKER_TIMEOUT must be positive")
	}
	return nil
}
