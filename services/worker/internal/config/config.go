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

// ConfigPath is read when Load gets an empty path. WORKER_CONFIG overrides it.
var ConfigPath = "config.yaml"

func init() {
	if v := strings.TrimSpace(os.Getenv("WORKER_CONFIG")); v != "" {
		ConfigPath = v
	}
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port          string `yaml:"port"`
	LogLevel      string `yaml:"logLevel"`
	LogFile       string `yaml:"logFile"`
	LogMaxSizeMB  int    `yaml:"logMaxSizeMB"`
	LogMaxBackups int    `yaml:"logMaxBackups"`
	AllowedOrigin string `yaml:"allowedOrigin"`
	Timezone      string `yaml:"timezone"`
	OriginURL     string `yaml:"originURL"`
	RootURL       string `yaml:"rootURL"`

	CacheVersion        string   `yaml:"cacheVersion"`
	Precache            []string `yaml:"precache"`
	DiscoverAssets      bool     `yaml:"discoverAssets"`
	PrecacheConcurrency int      `yaml:"precacheConcurrency"`
	InstallTimeout      string   `yaml:"installTimeout"`
	CacheBackend        string   `yaml:"cacheBackend"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisPrefix   string `yaml:"redisPrefix"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	Notifier   string `yaml:"notifier"`
	WebhookURL string `yaml:"webhookURL"`

	ReminderStore string `yaml:"reminderStore"`
	DatabaseURL   string `yaml:"databaseURL"`

	QueueStream string `yaml:"queueStream"`
	QueueGroup  string `yaml:"queueGroup"`

	// ServiceTokenPublicKeyPath turns on bearer checks for /messages.
	ServiceTokenPublicKeyPath string   `yaml:"serviceTokenPublicKeyPath"`
	ServiceTokenIssuers       []string `yaml:"serviceTokenIssuers"`
}

// Load reads config from path (defaults to ConfigPath).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("WORKER_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WORKER_CACHE_VERSION"); v != "" {
		cfg.CacheVersion = v
	}
	if v := os.Getenv("WORKER_ORIGIN_URL"); v != "" {
		cfg.OriginURL = v
	}
	if v := os.Getenv("WORKER_PRECACHE"); v != "" {
		cfg.Precache = splitCSV(v)
	}
	if v := os.Getenv("WORKER_CACHE_BACKEND"); v != "" {
		cfg.CacheBackend = v
	}
	if v := os.Getenv("WORKER_PRECACHE_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PrecacheConcurrency = n
		}
	}
	if v := os.Getenv("WORKER_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("WORKER_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("WORKER_SERVICE_TOKEN_PUBLIC_KEY"); v != "" {
		cfg.ServiceTokenPublicKeyPath = v
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "memory"
	}
	cfg.Notifier = strings.ToLower(strings.TrimSpace(cfg.Notifier))
	if cfg.Notifier == "" {
		cfg.Notifier = "log"
	}
	cfg.ReminderStore = strings.ToLower(strings.TrimSpace(cfg.ReminderStore))
	if cfg.ReminderStore == "" {
		cfg.ReminderStore = "none"
	}
	if cfg.RootURL == "" {
		cfg.RootURL = "/"
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "biblepace"
	}
	if cfg.QueueStream == "" {
		cfg.QueueStream = cfg.RedisPrefix + ":reminders"
	}
	if cfg.QueueGroup == "" {
		cfg.QueueGroup = "worker"
	}
	if len(cfg.ServiceTokenIssuers) == 0 {
		cfg.ServiceTokenIssuers = []string{"planner"}
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.CacheVersion == "" {
		return errors.New("config: cacheVersion is required (set in config.yaml or WORKER_CACHE_VERSION)")
	}
	if cfg.OriginURL == "" {
		return errors.New("config: originURL is required (set in config.yaml or WORKER_ORIGIN_URL)")
	}
	if _, err := ParseInstallTimeout(cfg.InstallTimeout); err != nil {
		return err
	}
	if _, err := LoadLocation(cfg.Timezone); err != nil {
		return err
	}
	switch cfg.CacheBackend {
	case "memory":
	case "redis":
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required when cacheBackend is redis")
		}
	case "minio":
		if cfg.MinioEndpoint == "" || cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint, minioAccessKey, minioSecretKey and minioBucket are required when cacheBackend is minio")
		}
	default:
		return fmt.Errorf("config: unknown cacheBackend %q (memory, redis or minio)", cfg.CacheBackend)
	}
	switch cfg.Notifier {
	case "log":
	case "webhook":
		if cfg.WebhookURL == "" {
			return errors.New("config: webhookURL is required when notifier is webhook")
		}
	default:
		return fmt.Errorf("config: unknown notifier %q (log or webhook)", cfg.Notifier)
	}
	switch cfg.ReminderStore {
	case "none", "memory":
	case "redis":
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required when reminderStore is redis")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required when reminderStore is postgres")
		}
	default:
		return fmt.Errorf("config: unknown reminderStore %q (none, memory, redis or postgres)", cfg.ReminderStore)
	}
	return nil
}

// ParseInstallTimeout parses installTimeout, defaulting to two minutes.
func ParseInstallTimeout(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 2 * time.Minute, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid installTimeout: %w", err)
	}
	if d <= 0 {
		return 0, errors.New("config: installTimeout must be > 0")
	}
	return d, nil
}

// LoadLocation resolves the reminder timezone; empty means the host zone.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone: %w", err)
	}
	return loc, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
