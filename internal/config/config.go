package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Projection ProjectionConfig `mapstructure:"projection" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains the settings for maintainer tokens that guard rate
// table writes.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=525600"`
}

// ProjectionConfig contains the numeric and evaluation settings shared by
// every projection run.
type ProjectionConfig struct {
	// Terms above this run the iterative fill instead of the recursion.
	IterativeThreshold int `mapstructure:"iterative_threshold" validate:"required,gt=0"`

	OccupancyTolerance  float64 `mapstructure:"occupancy_tolerance" validate:"gt=0,lt=0.001"`
	DefaultDiscountRate float64 `mapstructure:"default_discount_rate" validate:"gt=-1"`

	RenewalExpenseFromInception bool `mapstructure:"renewal_expense_from_inception"`

	// Largest term accepted from API requests.
	MaxTerm int `mapstructure:"max_term" validate:"required,gt=0"`

	CapitalWorkers     int     `mapstructure:"capital_workers" validate:"gte=0"`
	CapitalDeathMargin float64 `mapstructure:"capital_death_margin" validate:"gt=0"`
	CapitalLapseMargin float64 `mapstructure:"capital_lapse_margin" validate:"gt=0"`

	// Discount nested capital cash flows with the run's discount source.
	CapitalDiscountNested bool `mapstructure:"capital_discount_nested"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}
