// Package config loads service configuration from defaults, an optional
// YAML file and SONGCONST_* environment variables.
package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "SONGCONST"

// Storage backends
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Config is the full service configuration
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Auth      AuthConfig
	Log       LogConfig
	Voting    VotingConfig
	RateLimit RateLimitConfig
	Cleanup   CleanupConfig
	YouTube   YouTubeConfig
	BaseURL   string
	SeedFile  string
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	Backend  string
	SQLite   SQLiteConfig
	DynamoDB DynamoDBConfig
}

type SQLiteConfig struct {
	Path string
}

type DynamoDBConfig struct {
	Region      string
	Endpoint    string
	TablePrefix string
}

type AuthConfig struct {
	Password string
}

type LogConfig struct {
	Level  string
	Format string
}

// VotingConfig is the initial score range, stored as settings on first start
type VotingConfig struct {
	ScoreMin float64
	ScoreMax float64
}

type RateLimitConfig struct {
	VotesPerSecond float64
	Burst          int
}

type CleanupConfig struct {
	Interval   time.Duration
	MaxRetries int
}

type YouTubeConfig struct {
	OEmbedURL string
}

// Defaults returns the configuration used when nothing is set
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                   8080,
		"storage.backend":               BackendSQLite,
		"storage.sqlite.path":           "songconstitution.db",
		"storage.dynamodb.region":       "eu-west-1",
		"storage.dynamodb.endpoint":     "",
		"storage.dynamodb.table_prefix": "songconstitution_",
		"auth.password":                 "",
		"log.level":                     "info",
		"log.format":                    "text",
		"voting.score_min":              0.0,
		"voting.score_max":              10.0,
		"ratelimit.votes_per_second":    5.0,
		"ratelimit.burst":               10,
		"cleanup.interval":              time.Minute,
		"cleanup.max_retries":           3,
		"youtube.oembed_url":            "https://www.youtube.com/oembed",
		"base_url":                      "",
		"seed":                          "",
	}
}

// New returns a viper instance with defaults and environment binding.
// Flags are layered on top by the caller with Set.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges a YAML config file into v. An empty path is skipped.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration out of v and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetInt("server.port"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("storage.backend")),
			SQLite: SQLiteConfig{
				Path: v.GetString("storage.sqlite.path"),
			},
			DynamoDB: DynamoDBConfig{
				Region:      v.GetString("storage.dynamodb.region"),
				Endpoint:    v.GetString("storage.dynamodb.endpoint"),
				TablePrefix: v.GetString("storage.dynamodb.table_prefix"),
			},
		},
		Auth: AuthConfig{
			Password: v.GetString("auth.password"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Voting: VotingConfig{
			ScoreMin: v.GetFloat64("voting.score_min"),
			ScoreMax: v.GetFloat64("voting.score_max"),
		},
		RateLimit: RateLimitConfig{
			VotesPerSecond: v.GetFloat64("ratelimit.votes_per_second"),
			Burst:          v.GetInt("ratelimit.burst"),
		},
		Cleanup: CleanupConfig{
			Interval:   v.GetDuration("cleanup.interval"),
			MaxRetries: v.GetInt("cleanup.max_retries"),
		},
		YouTube: YouTubeConfig{
			OEmbedURL: v.GetString("youtube.oembed_url"),
		},
		BaseURL:  strings.TrimSuffix(v.GetString("base_url"), "/"),
		SeedFile: v.GetString("seed"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would only fail later at runtime
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, stderrors.New("storage.sqlite.path is required"))
		}
	case BackendDynamoDB:
		if c.Storage.DynamoDB.Region == "" {
			errs = append(errs, stderrors.New("storage.dynamodb.region is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %s or %s, got %q", BackendSQLite, BackendDynamoDB, c.Storage.Backend))
	}
	if c.Voting.ScoreMin >= c.Voting.ScoreMax {
		errs = append(errs, fmt.Errorf("voting.score_min %v must be lower than voting.score_max %v", c.Voting.ScoreMin, c.Voting.ScoreMax))
	}
	if c.RateLimit.VotesPerSecond < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, stderrors.New("ratelimit values must not be negative"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return stderrors.Join(errs...)
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
