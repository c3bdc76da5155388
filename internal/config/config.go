package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents application configuration
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	PublicHolidays PublicHolidaysConfig `mapstructure:"public_holidays"`
	Integration    IntegrationConfig    `mapstructure:"integration"`
	Log            LogConfig            `mapstructure:"log"`
}

// ServerConfig represents the HTTP server
type ServerConfig struct {
	Addr            string `mapstructure:"addr"`
	ReadTimeout     string `mapstructure:"read_timeout"`
	WriteTimeout    string `mapstructure:"write_timeout"`
	ShutdownTimeout string `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig represents the PostgreSQL connection
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Name            string `mapstructure:"name"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

// RedisConfig represents the Redis connection used for streams and the holiday cache
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// PublicHolidaysConfig represents public holiday sources and caching
type PublicHolidaysConfig struct {
	Sources        []string `mapstructure:"sources"` // "computed" and/or "file"
	File           string   `mapstructure:"file"`
	CacheTTL       string   `mapstructure:"cache_ttl"`
	CacheBackend   string   `mapstructure:"cache_backend"` // "memory" or "redis"
	WarmUpInterval string   `mapstructure:"warm_up_interval"`
}

// IntegrationConfig represents the event sources
type IntegrationConfig struct {
	Vacation      VacationConfig `mapstructure:"vacation"`
	Portal        PortalConfig   `mapstructure:"portal"`
	Group         string         `mapstructure:"group"`
	Consumer      string         `mapstructure:"consumer"`
	RetryInterval string         `mapstructure:"retry_interval"`
}

// VacationConfig represents the vacation application streams
type VacationConfig struct {
	Enabled                   bool   `mapstructure:"enabled"`
	AllowedStream             string `mapstructure:"allowed_stream"`
	CreatedFromSickNoteStream string `mapstructure:"created_from_sick_note_stream"`
	CancelledStream           string `mapstructure:"cancelled_stream"`
}

// PortalConfig represents the portal user streams
type PortalConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	CreatedStream string `mapstructure:"created_stream"`
	UpdatedStream string `mapstructure:"updated_stream"`
	DeletedStream string `mapstructure:"deleted_stream"`
}

// LogConfig represents logging
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Load loads configuration from file. A missing default config file is not an error;
// every key can also be set through ZEITERFASSUNG_ prefixed environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.zeiterfassung")
		v.AddConfigPath("/etc/zeiterfassung")
	}

	v.SetEnvPrefix("ZEITERFASSUNG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.ExpandEnvVars()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "zeiterfassung")
	v.SetDefault("database.name", "zeiterfassung")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("public_holidays.sources", []string{"computed"})
	v.SetDefault("public_holidays.cache_backend", "memory")
	v.SetDefault("integration.group", "zeiterfassung")
	v.SetDefault("integration.consumer", "zeiterfassung-1")
	v.SetDefault("integration.vacation.allowed_stream", "zeiterfassung.queue.urlaubsverwaltung.application.allowed")
	v.SetDefault("integration.vacation.created_from_sick_note_stream", "zeiterfassung.queue.urlaubsverwaltung.application.created-from-sicknote")
	v.SetDefault("integration.vacation.cancelled_stream", "zeiterfassung.queue.urlaubsverwaltung.application.cancelled")
	v.SetDefault("integration.portal.created_stream", "zeiterfassung.queue.portal.user.created")
	v.SetDefault("integration.portal.updated_stream", "zeiterfassung.queue.portal.user.updated")
	v.SetDefault("integration.portal.deleted_stream", "zeiterfassung.queue.portal.user.deleted")
	v.SetDefault("log.level", "info")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}

	if len(c.PublicHolidays.Sources) == 0 {
		return fmt.Errorf("public_holidays.sources must name at least one source")
	}
	for _, source := range c.PublicHolidays.Sources {
		switch source {
		case "computed":
		case "file":
			if c.PublicHolidays.File == "" {
				return fmt.Errorf("public_holidays.file is required for the file source")
			}
		default:
			return fmt.Errorf("public_holidays.sources must be 'computed' or 'file', got '%s'", source)
		}
	}

	switch c.PublicHolidays.CacheBackend {
	case "", "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("public_holidays.cache_backend 'redis' requires redis.enabled")
		}
	default:
		return fmt.Errorf("public_holidays.cache_backend must be 'memory' or 'redis', got '%s'", c.PublicHolidays.CacheBackend)
	}

	if (c.Integration.Vacation.Enabled || c.Integration.Portal.Enabled) && !c.Redis.Enabled {
		return fmt.Errorf("integration requires redis.enabled")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis.url is required")
	}
	if c.Integration.Vacation.Enabled || c.Integration.Portal.Enabled {
		if c.Integration.Group == "" || c.Integration.Consumer == "" {
			return fmt.Errorf("integration.group and integration.consumer are required")
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got '%s'", c.Log.Level)
	}

	return nil
}

// GetReadTimeout returns the server read timeout
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout returns the server write timeout
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return parseDuration(c.WriteTimeout, 15*time.Second)
}

// GetShutdownTimeout returns how long in-flight requests may take on shutdown
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	return parseDuration(c.ShutdownTimeout, 30*time.Second)
}

// GetConnMaxLifetime returns the pool connection lifetime
func (c *DatabaseConfig) GetConnMaxLifetime() time.Duration {
	return parseDuration(c.ConnMaxLifetime, 5*time.Minute)
}

// GetCacheTTL returns holiday cache TTL duration
func (c *PublicHolidaysConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 24*time.Hour)
}

// GetWarmUpInterval returns how often the holiday cache is refreshed
func (c *PublicHolidaysConfig) GetWarmUpInterval() time.Duration {
	return parseDuration(c.WarmUpInterval, 12*time.Hour)
}

// GetRetryInterval returns how often failed stream messages are retried
func (c *IntegrationConfig) GetRetryInterval() time.Duration {
	return parseDuration(c.RetryInterval, time.Minute)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	duration, err := time.ParseDuration(s)
	if err != nil || duration <= 0 {
		return def
	}
	return duration
}

// ExpandEnvVars expands environment variables in config strings
func (c *Config) ExpandEnvVars() {
	c.Database.Password = os.ExpandEnv(c.Database.Password)
	c.Redis.URL = os.ExpandEnv(c.Redis.URL)
}
