package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string
	DBPath     string
	FilesPath  string
	// StorageBackend is "sqlite" or "memory".
	StorageBackend        string
	LogLevel              string
	LogFile               string
	LoginDelay            time.Duration
	SubmitDelay           time.Duration
	SubmitFailureRate     float64
	MinNewAreaAttachments int
	// SessionIdleTTL is how long a wizard session may sit unused before it
	// is discarded; MaxSessions caps how many are held at once.
	SessionIdleTTL time.Duration
	MaxSessions    int
	TestMode       bool
	// Users maps usernames to passwords for the demo authenticator.
	Users map[string]string
}

func Default() *Config {
	return &Config{
		ListenAddr:            ":8080",
		DBPath:                "/data/areawizard.db",
		FilesPath:             "/data/attachments",
		StorageBackend:        "sqlite",
		LogLevel:              "info",
		LoginDelay:            1500 * time.Millisecond,
		SubmitDelay:           2 * time.Second,
		SubmitFailureRate:     0.05,
		MinNewAreaAttachments: 2,
		SessionIdleTTL:        30 * time.Minute,
		MaxSessions:           1000,
		Users: map[string]string{
			"Augusto.fragiel": "Sistema2025",
			"user":            "123456",
		},
	}
}

// fileConfig is the on-disk shape shared by the YAML and TOML formats. Nil
// fields were not set in the file.
type fileConfig struct {
	ListenAddr            *string           `yaml:"listen_addr" toml:"listen_addr"`
	DBPath                *string           `yaml:"db_path" toml:"db_path"`
	FilesPath             *string           `yaml:"files_path" toml:"files_path"`
	StorageBackend        *string           `yaml:"storage_backend" toml:"storage_backend"`
	LogLevel              *string           `yaml:"log_level" toml:"log_level"`
	LogFile               *string           `yaml:"log_file" toml:"log_file"`
	LoginDelay            *string           `yaml:"login_delay" toml:"login_delay"`
	SubmitDelay           *string           `yaml:"submit_delay" toml:"submit_delay"`
	SubmitFailureRate     *float64          `yaml:"submit_failure_rate" toml:"submit_failure_rate"`
	MinNewAreaAttachments *int              `yaml:"min_new_area_attachments" toml:"min_new_area_attachments"`
	SessionIdleTTL        *string           `yaml:"session_idle_ttl" toml:"session_idle_ttl"`
	MaxSessions           *int              `yaml:"max_sessions" toml:"max_sessions"`
	Users                 map[string]string `yaml:"users" toml:"users"`
}

// Load builds the configuration from defaults, then the file named by
// CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}

	setString(&c.ListenAddr, raw.ListenAddr)
	setString(&c.DBPath, raw.DBPath)
	setString(&c.FilesPath, raw.FilesPath)
	setString(&c.StorageBackend, raw.StorageBackend)
	setString(&c.LogLevel, raw.LogLevel)
	setString(&c.LogFile, raw.LogFile)
	if raw.LoginDelay != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.LoginDelay))
		if err != nil {
			return fmt.Errorf("parse login_delay: %w", err)
		}
		c.LoginDelay = d
	}
	if raw.SubmitDelay != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.SubmitDelay))
		if err != nil {
			return fmt.Errorf("parse submit_delay: %w", err)
		}
		c.SubmitDelay = d
	}
	if raw.SubmitFailureRate != nil {
		c.SubmitFailureRate = *raw.SubmitFailureRate
	}
	if raw.MinNewAreaAttachments != nil {
		c.MinNewAreaAttachments = *raw.MinNewAreaAttachments
	}
	if raw.SessionIdleTTL != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.SessionIdleTTL))
		if err != nil {
			return fmt.Errorf("parse session_idle_ttl: %w", err)
		}
		c.SessionIdleTTL = d
	}
	if raw.MaxSessions != nil {
		c.MaxSessions = *raw.MaxSessions
	}
	if raw.Users != nil {
		c.Users = raw.Users
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.FilesPath = getEnv("FILES_PATH", c.FilesPath)
	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.TestMode = os.Getenv("AREAWIZARD_TEST_MODE") == "1"

	if v, ok := os.LookupEnv("LOGIN_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse LOGIN_DELAY: %w", err)
		}
		c.LoginDelay = d
	}
	if v, ok := os.LookupEnv("SUBMIT_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SUBMIT_DELAY: %w", err)
		}
		c.SubmitDelay = d
	}
	if v, ok := os.LookupEnv("SUBMIT_FAILURE_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse SUBMIT_FAILURE_RATE: %w", err)
		}
		c.SubmitFailureRate = f
	}
	if v, ok := os.LookupEnv("MIN_NEW_AREA_ATTACHMENTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MIN_NEW_AREA_ATTACHMENTS: %w", err)
		}
		c.MinNewAreaAttachments = n
	}
	if v, ok := os.LookupEnv("SESSION_IDLE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SESSION_IDLE_TTL: %w", err)
		}
		c.SessionIdleTTL = d
	}
	if v, ok := os.LookupEnv("MAX_SESSIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAX_SESSIONS: %w", err)
		}
		c.MaxSessions = n
	}

	// Test mode removes simulated latency and failures.
	if c.TestMode {
		c.LoginDelay = 0
		c.SubmitDelay = 0
		c.SubmitFailureRate = 0
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.SubmitFailureRate < 0 || c.SubmitFailureRate > 1 {
		return fmt.Errorf("submit failure rate %v out of range [0,1]", c.SubmitFailureRate)
	}
	if c.MinNewAreaAttachments < 0 {
		return fmt.Errorf("min new area attachments must not be negative")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("session idle ttl must be positive")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive")
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}
