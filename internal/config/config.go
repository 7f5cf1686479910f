package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// EnvPrefix prefixes environment variables that override file keys,
// for example RUBY_TELEGRAM_TOKEN for telegram.token.
const EnvPrefix = "RUBY"

// ErrInvalidConfig is returned when the configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the configuration settings for the application.
type Config struct {
	Env            string         // Env is the current environment: local, development, production.
	Language       string         // Language of bot replies: pt or en.
	MasterID       int64          // MasterID is the Telegram id with permanent privileges, 0 for none.
	Storage        string         // Storage selects the backend: postgres or memory.
	Telegram       TelegramConfig // Telegram holds the bot transport configuration.
	Database       PostgresConfig // Database holds the postgres database configuration.
	Redis          RedisConfig    // Redis holds the report cache configuration.
	Session        SessionConfig  // Session holds registration session timing.
	History        HistoryConfig  // History tunes /historico.
	MonitoringPort int            // MonitoringPort serves /healthz and /metrics.
}

// TelegramConfig configures how updates are received.
type TelegramConfig struct {
	Token         string        // Token is an unique telegram bot token.
	PollerTimeout time.Duration // PollerTimeout is the long polling timeout.
	WebhookURL    string        // WebhookURL enables webhook mode when set.
	Listen        string        // Listen is the webhook listen address.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// RedisConfig configures the optional report cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// SessionConfig holds the registration session lifetime settings.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// HistoryConfig holds the settings of /historico and /status listings.
type HistoryConfig struct {
	Window time.Duration // negative lists all occurrences
	Limit  int
}

// MustLoad loads .env, then the YAML file named by CONFIG_PATH and the RUBY_* environment.
// An empty CONFIG_PATH configures from the environment only. It panics on unusable configuration.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath != "" {
		// check if file exists
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			panic("config file does not exist: " + configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		panic("config error: " + err.Error())
	}
	return cfg
}

// Load reads the configuration from path, if not empty, and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Env:      v.GetString("env"),
		Language: v.GetString("language"),
		MasterID: v.GetInt64("master_id"),
		Storage:  strings.ToLower(v.GetString("storage")),
		Telegram: TelegramConfig{
			Token:         v.GetString("telegram.token"),
			PollerTimeout: v.GetDuration("telegram.timeout"),
			WebhookURL:    v.GetString("telegram.webhook_url"),
			Listen:        v.GetString("telegram.listen"),
		},
		Database: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Name:     v.GetString("postgres.db_name"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Timeout:  v.GetDuration("redis.timeout"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		Session: SessionConfig{
			TTL:           v.GetDuration("session.ttl"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		History: HistoryConfig{
			Window: v.GetDuration("history.window"),
			Limit:  v.GetInt("history.limit"),
		},
		MonitoringPort: v.GetInt("monitoring.port"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("language", "pt")
	v.SetDefault("storage", StoragePostgres)
	v.SetDefault("telegram.timeout", 10*time.Second)
	v.SetDefault("telegram.listen", ":8443")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("redis.timeout", 2*time.Second)
	v.SetDefault("redis.cache_ttl", 5*time.Minute)
	v.SetDefault("session.ttl", 15*time.Minute)
	v.SetDefault("session.sweep_interval", time.Minute)
	v.SetDefault("history.window", 30*24*time.Hour)
	v.SetDefault("history.limit", 10)
	v.SetDefault("monitoring.port", 8080)
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: telegram.token is required", ErrInvalidConfig)
	}
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("%w: postgres.host and postgres.db_name are required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}
	if c.Language != "pt" && c.Language != "en" {
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidConfig, c.Language)
	}
	if c.MasterID < 0 {
		return fmt.Errorf("%w: master_id must not be negative", ErrInvalidConfig)
	}
	if c.Session.TTL <= 0 || c.Session.SweepInterval <= 0 {
		return fmt.Errorf("%w: session durations must be positive", ErrInvalidConfig)
	}
	return nil
}
