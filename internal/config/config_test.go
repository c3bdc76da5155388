package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `
server:
  addr: ":9090"
  read_timeout: 5s
database:
  host: db
  port: 5433
  name: zeit
  password: ${ZEITERFASSUNG_TEST_DB_PASSWORD}
redis:
  enabled: true
  url: redis://cache:6379/1
public_holidays:
  sources: [computed, file]
  file: /etc/zeiterfassung/holidays.txt
  cache_backend: redis
  cache_ttl: 6h
integration:
  retry_interval: 30s
  portal:
    enabled: true
log:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("ZEITERFASSUNG_TEST_DB_PASSWORD", "secret")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":9090" || cfg.Server.GetReadTimeout() != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.GetWriteTimeout() != 15*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want default 15s", cfg.Server.GetWriteTimeout())
	}
	if cfg.Database.Host != "db" || cfg.Database.Port != 5433 || cfg.Database.User != "zeiterfassung" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Database.Password != "secret" {
		t.Errorf("database.password = %q, want expanded env var", cfg.Database.Password)
	}
	if cfg.PublicHolidays.GetCacheTTL() != 6*time.Hour {
		t.Errorf("GetCacheTTL() = %v, want 6h", cfg.PublicHolidays.GetCacheTTL())
	}
	if len(cfg.PublicHolidays.Sources) != 2 {
		t.Errorf("sources = %v", cfg.PublicHolidays.Sources)
	}
	if got := cfg.Integration.Portal.CreatedStream; got != "zeiterfassung.queue.portal.user.created" {
		t.Errorf("portal created stream = %q", got)
	}
	if cfg.Integration.Group != "zeiterfassung" {
		t.Errorf("group = %q, want default", cfg.Integration.Group)
	}
	if cfg.Integration.GetRetryInterval() != 30*time.Second {
		t.Errorf("GetRetryInterval() = %v, want 30s", cfg.Integration.GetRetryInterval())
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ZEITERFASSUNG_TEST_DB_PASSWORD", "secret")
	t.Setenv("ZEITERFASSUNG_SERVER_ADDR", ":7070")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("server.addr = %q, want env override :7070", cfg.Server.Addr)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() error = nil, want error for a missing explicit config file")
	}
}

func valid() Config {
	return Config{
		Server:         ServerConfig{Addr: ":8080"},
		Database:       DatabaseConfig{Host: "localhost", Port: 5432, Name: "zeiterfassung"},
		PublicHolidays: PublicHolidaysConfig{Sources: []string{"computed"}},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }, true},
		{"bad port", func(c *Config) { c.Database.Port = 70000 }, true},
		{"no holiday source", func(c *Config) { c.PublicHolidays.Sources = nil }, true},
		{"unknown source", func(c *Config) { c.PublicHolidays.Sources = []string{"isdayoff"} }, true},
		{"file source without file", func(c *Config) { c.PublicHolidays.Sources = []string{"file"} }, true},
		{"redis cache without redis", func(c *Config) { c.PublicHolidays.CacheBackend = "redis" }, true},
		{"integration without redis", func(c *Config) { c.Integration.Vacation.Enabled = true }, true},
		{"integration with redis", func(c *Config) {
			c.Integration.Vacation.Enabled = true
			c.Integration.Group = "g"
			c.Integration.Consumer = "c"
			c.Redis = RedisConfig{Enabled: true, URL: "redis://localhost:6379"}
		}, false},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Minute},
		{"90s", 90 * time.Second},
		{"soon", time.Minute},
		{"-5s", time.Minute},
	}

	for _, tt := range tests {
		if got := parseDuration(tt.in, time.Minute); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
