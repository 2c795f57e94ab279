package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultEnv          = "development"
	defaultPort         = 8080
	defaultSSHPort      = 23234
	defaultDBDriver     = "sqlite"
	defaultDBPath       = "maintdash.db"
	defaultSessionTTL   = 30 * 24 * time.Hour
	defaultProbeTimeout = 10 * time.Second
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultLogFile      = "maintdash.log"
	defaultStatusTitle  = "Maintenance Status"
	defaultNotifyTitle  = "Maintenance Reminder"
)

// AppConfig holds runtime configuration loaded from YAML and the environment.
type AppConfig struct {
	Env            string           `yaml:"env"` // "development" | "production"
	Port           int              `yaml:"port"`
	Timezone       string           `yaml:"timezone"`
	LogFile        string           `yaml:"log_file"`
	AllowedOrigins []string         `yaml:"allowed_origins"`
	AdminSecret    string           `yaml:"admin_secret"`
	Database       DatabaseConfig   `yaml:"database"`
	Session        SessionConfig    `yaml:"session"`
	SSH            SSHConfig        `yaml:"ssh"`
	Notify         NotifyConfig     `yaml:"notify"`
	Probe          ProbeConfig      `yaml:"probe"`
	StatusPage     StatusPageConfig `yaml:"status_page"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite | postgres
	DSN    string `yaml:"dsn"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type SSHConfig struct {
	Enable         bool   `yaml:"enable"`
	Port           int    `yaml:"port"`
	HostKey        string `yaml:"host_key"`
	AuthorizedKeys string `yaml:"authorized_keys"`
}

// NotifyConfig describes the channel reminders are delivered to.
type NotifyConfig struct {
	Type          string `yaml:"type"` // line | discord | slack | webhook
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Title         string `yaml:"title"`
	TriggerSecret string `yaml:"trigger_secret"`
}

type ProbeConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	UserAgent          string        `yaml:"user_agent"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

type StatusPageConfig struct {
	Enable bool   `yaml:"enable"`
	Title  string `yaml:"title"`
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyEnv() {
	overrides := map[string]*string{
		"MAINTDASH_SESSION_SECRET": &c.Session.Secret,
		"MAINTDASH_NOTIFY_TOKEN":   &c.Notify.Token,
		"MAINTDASH_NOTIFY_URL":     &c.Notify.URL,
		"MAINTDASH_NOTIFY_SECRET":  &c.Notify.TriggerSecret,
		"MAINTDASH_DATABASE_DSN":   &c.Database.DSN,
		"MAINTDASH_ADMIN_SECRET":   &c.AdminSecret,
	}
	for key, dst := range overrides {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
}

func (c *AppConfig) applyDefaults() {
	if c.Env == "" {
		c.Env = defaultEnv
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.LogFile == "" {
		c.LogFile = defaultLogFile
	}
	if c.Database.Driver == "" {
		c.Database.Driver = defaultDBDriver
	}
	if c.Database.DSN == "" && c.Database.Driver == defaultDBDriver {
		c.Database.DSN = defaultDBPath
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = defaultSessionTTL
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = defaultSSHPort
	}
	if c.SSH.HostKey == "" {
		c.SSH.HostKey = ".ssh/id_ed25519"
	}
	if c.SSH.AuthorizedKeys == "" {
		c.SSH.AuthorizedKeys = "authorized_keys"
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = defaultProbeTimeout
	}
	if c.Probe.UserAgent == "" {
		c.Probe.UserAgent = defaultUserAgent
	}
	if c.StatusPage.Title == "" {
		c.StatusPage.Title = defaultStatusTitle
	}
	if c.Notify.Title == "" {
		c.Notify.Title = defaultNotifyTitle
	}
}

func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("config: database dsn is required")
	}
	if c.Probe.Timeout < 0 {
		return errors.New("config: probe timeout must be positive")
	}
	if !c.IsDev() && c.Session.Secret == "" {
		return errors.New("config: session secret is required in production")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config: timezone: %w", err)
		}
	}
	return nil
}

func (c *AppConfig) IsDev() bool { return c.Env == "" || c.Env == "development" }

// Location returns the zone cadence windows are computed in.
func (c *AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *AppConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }
