package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

// Config is the full service configuration. Values come from the YAML file and
// are then overridden by environment variables.
type Config struct {
	Server struct {
		Host        string `yaml:"host"`
		Port        string `yaml:"port"`
		SecretKey   string `yaml:"secret_key"`
		BodyLimitMB int    `yaml:"body_limit_mb"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		Level      string `yaml:"level"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`

	Storage struct {
		UploadDir     string        `yaml:"upload_dir"`
		Retention     time.Duration `yaml:"retention"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"storage"`

	Vision VisionConfig `yaml:"vision"`

	Session struct {
		RedisHost  string        `yaml:"redis_host"`
		RedisDB    int           `yaml:"redis_db"`
		Expiration time.Duration `yaml:"expiration"`
		CookieName string        `yaml:"cookie_name"`
	} `yaml:"session"`
}

// VisionConfig configures the Azure Computer Vision Read client.
type VisionConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	SubscriptionKey string        `yaml:"subscription_key"`
	APIPath         string        `yaml:"api_path"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	WaitBudget      time.Duration `yaml:"wait_budget"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
}

// Load reads the file named by CONFIG_PATH (or config.yaml when present) and
// applies environment overrides. It panics on invalid configuration.
func Load() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	return LoadFrom(path)
}

// LoadFrom reads the YAML file at path. An empty path means defaults plus
// environment only. It panics on invalid configuration.
func LoadFrom(path string) Config {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			panic(fmt.Sprintf("config: read %s: %v", path, err))
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			panic(fmt.Sprintf("config: parse %s: %v", path, err))
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.SecretKey, "SECRET_KEY")
	setString(&cfg.Server.Host, "HOST")
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Vision.Endpoint, "AZURE_ENDPOINT")
	setString(&cfg.Vision.SubscriptionKey, "AZURE_SUBSCRIPTION_KEY")
	setString(&cfg.Storage.UploadDir, "UPLOAD_FOLDER")
	setString(&cfg.Logger.Level, "LOG_LEVEL")
	setString(&cfg.Logger.File, "LOG_FILE")
	setString(&cfg.Session.RedisHost, "REDIS_HOST")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.RedisDB = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":5000"
	} else if !strings.HasPrefix(cfg.Server.Port, ":") {
		cfg.Server.Port = ":" + cfg.Server.Port
	}
	if cfg.Server.BodyLimitMB == 0 {
		cfg.Server.BodyLimitMB = 20
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "uploads"
	}
	if cfg.Storage.Retention == 0 {
		cfg.Storage.Retention = time.Hour
	}
	if cfg.Storage.SweepInterval == 0 {
		cfg.Storage.SweepInterval = 10 * time.Minute
	}
	if cfg.Vision.APIPath == "" {
		cfg.Vision.APIPath = "vision/v3.2"
	}
	if cfg.Vision.PollInterval == 0 {
		cfg.Vision.PollInterval = time.Second
	}
	if cfg.Vision.WaitBudget == 0 {
		cfg.Vision.WaitBudget = 2 * time.Minute
	}
	if cfg.Vision.RequestTimeout == 0 {
		cfg.Vision.RequestTimeout = 30 * time.Second
	}
	if cfg.Session.Expiration == 0 {
		cfg.Session.Expiration = 10 * time.Minute
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "ocr2docx_session"
	}
}

// Validate reports the first invalid or missing setting.
func (c Config) Validate() error {
	switch {
	case c.Server.SecretKey == "":
		return errors.New("server.secret_key (SECRET_KEY) is required")
	case c.Vision.Endpoint == "":
		return errors.New("vision.endpoint (AZURE_ENDPOINT) is required")
	case c.Vision.SubscriptionKey == "":
		return errors.New("vision.subscription_key (AZURE_SUBSCRIPTION_KEY) is required")
	case c.Server.BodyLimitMB < 0:
		return fmt.Errorf("server.body_limit_mb must be positive, got %d", c.Server.BodyLimitMB)
	case c.Vision.PollInterval < 0:
		return fmt.Errorf("vision.poll_interval must be positive, got %s", c.Vision.PollInterval)
	case c.Vision.WaitBudget < 0:
		return fmt.Errorf("vision.wait_budget must be positive, got %s", c.Vision.WaitBudget)
	case c.Vision.MaxAttempts < 0:
		return fmt.Errorf("vision.max_attempts must not be negative, got %d", c.Vision.MaxAttempts)
	case c.Vision.RequestTimeout < 0:
		return fmt.Errorf("vision.request_timeout must be positive, got %s", c.Vision.RequestTimeout)
	case c.Storage.Retention < 0 || c.Storage.SweepInterval < 0:
		return errors.New("storage.retention and storage.sweep_interval must be positive")
	case c.Storage.Retention <= c.Vision.WaitBudget+c.Vision.RequestTimeout:
		// The sweeper must not remove a directory a conversion is still using.
		return fmt.Errorf("storage.retention (%s) must exceed vision.wait_budget + vision.request_timeout (%s)",
			c.Storage.Retention, c.Vision.WaitBudget+c.Vision.RequestTimeout)
	}
	return nil
}
