package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`

	CORSOrigins           []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS          float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst        int      `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeoutSeconds int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`

	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`

	// Geofence radius applied to check-in/check-out GPS validation.
	GeofenceThresholdMeters float64 `mapstructure:"GEOFENCE_THRESHOLD_METERS"`
	// Allowed deviation between a check event and the planned visit window
	// before the event is flagged with TIME_VARIANCE.
	CheckTimeVarianceMinutes int `mapstructure:"CHECK_TIME_VARIANCE_MINUTES"`
	// When true, schedule generation posts planned unit consumption
	// (schedule_shift entries) for every occurrence it creates.
	MaterializePostConsumption bool `mapstructure:"MATERIALIZE_POST_CONSUMPTION"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("GEOFENCE_THRESHOLD_METERS", 1000)
	v.SetDefault("CHECK_TIME_VARIANCE_MINUTES", 60)
	v.SetDefault("MATERIALIZE_POST_CONSUMPTION", false)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"MIGRATIONS_DIR", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"REQUEST_TIMEOUT_SECONDS", "AUTH_SIGNING_KEY", "AUTH_ISSUER",
		"AUTH_AUDIENCE", "GEOFENCE_THRESHOLD_METERS",
		"CHECK_TIME_VARIANCE_MINUTES", "MATERIALIZE_POST_CONSUMPTION",
	} {
		v.BindEnv(key)
	}

	// Try reading .env, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside
// development a signing key must be present so real authentication is
// enforced, and the geofence threshold must stay positive.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV is %q; refusing to start without authentication", c.Env)
	}
	if c.GeofenceThresholdMeters <= 0 {
		return fmt.Errorf("GEOFENCE_THRESHOLD_METERS must be positive, got %f", c.GeofenceThresholdMeters)
	}
	if c.CheckTimeVarianceMinutes < 0 {
		return fmt.Errorf("CHECK_TIME_VARIANCE_MINUTES must not be negative, got %d", c.CheckTimeVarianceMinutes)
	}
	return nil
}
