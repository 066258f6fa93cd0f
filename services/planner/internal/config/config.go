package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"biblepace/internal/util"
)

// ConfigPath is read when Load gets an empty path. PLANNER_CONFIG overrides it.
var ConfigPath = "config.yaml"

func init() {
	if v := strings.TrimSpace(os.Getenv("PLANNER_CONFIG")); v != "" {
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

	Timezone        string `yaml:"timezone"`
	Language        string `yaml:"language"`
	InclusionPolicy string `yaml:"inclusionPolicy"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisPrefix   string `yaml:"redisPrefix"`

	RateLimitPerMinute int      `yaml:"rateLimitPerMinute"`
	TrustedProxies     []string `yaml:"trustedProxies"`
	WorkerURL          string   `yaml:"workerURL"`
	QueueStream        string   `yaml:"queueStream"`

	// ServiceTokenKeyPath signs calls to workerURL when set.
	ServiceTokenKeyPath string `yaml:"serviceTokenKeyPath"`
	ServiceTokenIssuer  string `yaml:"serviceTokenIssuer"`
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
	if v := os.Getenv("PLANNER_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PLANNER_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("PLANNER_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("PLANNER_INCLUSION_POLICY"); v != "" {
		cfg.InclusionPolicy = v
	}
	if v := os.Getenv("PLANNER_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("WORKER_URL"); v != "" {
		cfg.WorkerURL = v
	}
	if v := os.Getenv("PLANNER_SERVICE_TOKEN_KEY"); v != "" {
		cfg.ServiceTokenKeyPath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	cfg.InclusionPolicy = strings.ToLower(strings.TrimSpace(cfg.InclusionPolicy))
	if cfg.InclusionPolicy == "" {
		cfg.InclusionPolicy = "toggle"
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = "fr"
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "biblepace"
	}
	if cfg.QueueStream == "" {
		cfg.QueueStream = cfg.RedisPrefix + ":reminders"
	}
	if cfg.ServiceTokenIssuer == "" {
		cfg.ServiceTokenIssuer = "planner"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	switch cfg.InclusionPolicy {
	case "toggle", "symmetric":
	default:
		return fmt.Errorf("config: unknown inclusionPolicy %q (toggle or symmetric)", cfg.InclusionPolicy)
	}
	if cfg.RateLimitPerMinute < 0 {
		return errors.New("config: rateLimitPerMinute must be >= 0")
	}
	if cfg.RateLimitPerMinute > 0 && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required when rateLimitPerMinute is set")
	}
	if _, err := LoadLocation(cfg.Timezone); err != nil {
		return err
	}
	if _, err := util.ParseTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("config: invalid trustedProxies: %w", err)
	}
	return nil
}

// LoadLocation resolves the calendar timezone; empty means the host zone.
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
