// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServiceConfig holds all configuration for the rides service.
type ServiceConfig struct {
	Port   string
	AppEnv string

	DB          DatabaseConfig
	Kafka       KafkaConfig
	JWT         JWTConfig
	Geo         GeoConfig
	Routing     RoutingConfig
	Resolution  ResolutionConfig
	Eligibility EligibilityConfig
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the GORM Postgres DSN.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// KafkaConfig holds broker addresses and the consumer group prefix.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// JWTConfig holds the token-signing secret.
type JWTConfig struct {
	Secret string
}

// GeoConfig configures the forward/reverse geocoding provider.
type GeoConfig struct {
	BaseURL    string
	UserAgent  string
	MaxResults int
	RatePerSec float64
	Timeout    time.Duration
}

// RoutingConfig configures the routing provider.
type RoutingConfig struct {
	OSRMBaseURL string
	Timeout     time.Duration
}

// ResolutionConfig tunes the orchestrator's timing behavior.
type ResolutionConfig struct {
	DebounceWindow  time.Duration
	MinQueryLength  int
	GeolocateExpiry time.Duration
}

// EligibilityConfig holds the ride-category business rules.
// AllowedCities and AllowedStates are comma-separated lists; an empty list
// disables that allowance.
type EligibilityConfig struct {
	OutstationThresholdKm float64
	AllowedCities         string
	AllowedStates         string
	OutstationDisallowed  string
}

// Load reads configuration from RIDES_-prefixed environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("RIDES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", ":8084")
	v.SetDefault("APP_ENV", "development")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rides")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "dropme.")

	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("GEO_BASE_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GEO_USER_AGENT", "DropMeCab/1.0")
	v.SetDefault("GEO_MAX_RESULTS", 5)
	v.SetDefault("GEO_RATE_PER_SEC", 1.0)
	v.SetDefault("GEO_TIMEOUT_MS", 10000)

	v.SetDefault("OSRM_BASE_URL", "https://router.project-osrm.org")
	v.SetDefault("OSRM_TIMEOUT_MS", 10000)

	v.SetDefault("DEBOUNCE_MS", 300)
	v.SetDefault("MIN_QUERY_LENGTH", 2)
	v.SetDefault("GEOLOCATE_TIMEOUT_MS", 10000)

	v.SetDefault("OUTSTATION_DISTANCE_KM", 40.0)
	v.SetDefault("ALLOWED_CITIES", "")
	v.SetDefault("ALLOWED_STATES", "")
	v.SetDefault("OUTSTATION_DISALLOWED_VEHICLES", "Bike,Auto")

	cfg := &ServiceConfig{
		Port:   normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv: v.GetString("APP_ENV"),
		DB: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitAndTrim(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Geo: GeoConfig{
			BaseURL:    v.GetString("GEO_BASE_URL"),
			UserAgent:  v.GetString("GEO_USER_AGENT"),
			MaxResults: v.GetInt("GEO_MAX_RESULTS"),
			RatePerSec: v.GetFloat64("GEO_RATE_PER_SEC"),
			Timeout:    time.Duration(v.GetInt("GEO_TIMEOUT_MS")) * time.Millisecond,
		},
		Routing: RoutingConfig{
			OSRMBaseURL: v.GetString("OSRM_BASE_URL"),
			Timeout:     time.Duration(v.GetInt("OSRM_TIMEOUT_MS")) * time.Millisecond,
		},
		Resolution: ResolutionConfig{
			DebounceWindow:  time.Duration(v.GetInt("DEBOUNCE_MS")) * time.Millisecond,
			MinQueryLength:  v.GetInt("MIN_QUERY_LENGTH"),
			GeolocateExpiry: time.Duration(v.GetInt("GEOLOCATE_TIMEOUT_MS")) * time.Millisecond,
		},
		Eligibility: EligibilityConfig{
			OutstationThresholdKm: v.GetFloat64("OUTSTATION_DISTANCE_KM"),
			AllowedCities:         v.GetString("ALLOWED_CITIES"),
			AllowedStates:         v.GetString("ALLOWED_STATES"),
			OutstationDisallowed:  v.GetString("OUTSTATION_DISALLOWED_VEHICLES"),
		},
	}

	if cfg.AppEnv != "development" && cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("RIDES_JWT_SECRET is required outside development")
	}

	return cfg, nil
}

func normalizePort(p string) string {
	if p == "" {
		return ":8084"
	}
	if !strings.HasPrefix(p, ":") {
		return ":" + p
	}
	return p
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
