package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Session     SessionConfig   `mapstructure:"session"`
	CAPM        CAPMConfig      `mapstructure:"capm"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Security    SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ReadTimeout    string   `mapstructure:"read_timeout"`
	WriteTimeout   string   `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SessionConfig struct {
	Store string `mapstructure:"store"`
	TTL   string `mapstructure:"ttl"`
}

// CAPMConfig controls the Security Market Line sampling.
type CAPMConfig struct {
	SMLPoints int     `mapstructure:"sml_points"`
	BetaMin   float64 `mapstructure:"beta_min"`
	BetaMax   float64 `mapstructure:"beta_max"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type SecurityConfig struct {
	AdminAPIKeyHash string `mapstructure:"admin_api_key_hash" json:"-" yaml:"-"`
	BcryptCost      int    `mapstructure:"bcrypt_cost"`
}

// SessionTTL parses the session TTL, falling back to 24h when unset.
func (c SessionConfig) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// Timeouts returns the parsed server read and write timeouts.
func (c ServerConfig) Timeouts() (time.Duration, time.Duration) {
	read, err := time.ParseDuration(c.ReadTimeout)
	if err != nil {
		read = 10 * time.Second
	}
	write, err := time.ParseDuration(c.WriteTimeout)
	if err != nil {
		write = 10 * time.Second
	}
	return read, write
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set default values
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("security.admin_api_key_hash", "ADMIN_API_KEY_HASH"); err != nil {
		return nil, fmt.Errorf("failed to bind ADMIN_API_KEY_HASH environment variable: %w", err)
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)
	config.Session.Store = strings.ToLower(config.Session.Store)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks cross-field constraints after unmarshalling.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if !c.Redis.Enabled {
			return errors.New("session store \"redis\" requires redis.enabled=true")
		}
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	if c.Session.TTL != "" {
		if _, err := time.ParseDuration(c.Session.TTL); err != nil {
			return fmt.Errorf("invalid session ttl: %w", err)
		}
	}

	if c.CAPM.SMLPoints < 2 {
		return fmt.Errorf("capm.sml_points must be at least 2, got %d", c.CAPM.SMLPoints)
	}
	if c.CAPM.BetaMin >= c.CAPM.BetaMax {
		return fmt.Errorf("capm.beta_min (%v) must be below capm.beta_max (%v)", c.CAPM.BetaMin, c.CAPM.BetaMax)
	}

	// Validate bcrypt cost parameter
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Security.BcryptCost)
	}

	// Preset administration must be locked outside development
	if c.Environment != "development" && c.Database.Enabled && c.Security.AdminAPIKeyHash == "" {
		return errors.New("ADMIN_API_KEY_HASH is required in non-development environments when the database is enabled")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	// Environment
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")

	// Database
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "capm_lab")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Session
	v.SetDefault("session.store", SessionStoreMemory)
	v.SetDefault("session.ttl", "24h")

	// CAPM chart
	v.SetDefault("capm.sml_points", 50)
	v.SetDefault("capm.beta_min", -0.5)
	v.SetDefault("capm.beta_max", 2.5)

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "capm-lab")
	v.SetDefault("telemetry.sample_rate", 1.0)

	// Security
	v.SetDefault("security.admin_api_key_hash", "")
	v.SetDefault("security.bcrypt_cost", 12)
}
