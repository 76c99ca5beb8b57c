package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Editor   EditorConfig   `yaml:"editor"`
	Events   EventsConfig   `yaml:"events"`
	Stub     StubConfig     `yaml:"stub"`
	App      AppConfig      `yaml:"app"`
}

type ServiceConfig struct {
	APIURL      string        `yaml:"api_url"`
	Token       string        `yaml:"token"`
	Timeout     time.Duration `yaml:"timeout"`
	LongTimeout time.Duration `yaml:"long_timeout"`
}

type WorkflowConfig struct {
	ProgressInterval       time.Duration `yaml:"progress_interval"`
	OutlineDefaultSections int           `yaml:"outline_default_sections"`
}

type EditorConfig struct {
	SaveRate  float64 `yaml:"save_rate"`
	SaveBurst int     `yaml:"save_burst"`
}

type EventsConfig struct {
	RedisURL      string `yaml:"redis_url"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

type StubConfig struct {
	Port  string `yaml:"port"`
	Token string `yaml:"token"`
}

type AppConfig struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	Version     string `yaml:"version"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			APIURL:      "http://localhost:8000/api",
			Timeout:     30 * time.Second,
			LongTimeout: 3 * time.Minute,
		},
		Workflow: WorkflowConfig{
			ProgressInterval:       500 * time.Millisecond,
			OutlineDefaultSections: 5,
		},
		Editor: EditorConfig{
			SaveRate:  5,
			SaveBurst: 5,
		},
		Events: EventsConfig{
			ChannelPrefix: "docgen:events:",
		},
		Stub: StubConfig{
			Port:  "8000",
			Token: "dev-token",
		},
		App: AppConfig{
			Environment: "development",
			LogLevel:    "info",
			Version:     "1.0.0",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file
// (CONFIG_PATH, default config.yaml) and environment variables, in that
// order of precedence.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		klog.V(4).Info("No .env file found, using environment variables")
	}

	cfg := Default()

	path, explicit := os.LookupEnv("CONFIG_PATH")
	if !explicit {
		path = "config.yaml"
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	klog.V(2).Infof("loaded config file %s", path)
	return nil
}

func (c *Config) applyEnv() {
	c.Service.APIURL = getEnv("DOCGEN_API_URL", c.Service.APIURL)
	c.Service.Token = getEnv("DOCGEN_TOKEN", c.Service.Token)
	c.Service.Timeout = getEnvAsDuration("DOCGEN_TIMEOUT", c.Service.Timeout)
	c.Service.LongTimeout = getEnvAsDuration("DOCGEN_LONG_TIMEOUT", c.Service.LongTimeout)

	c.Workflow.ProgressInterval = getEnvAsDuration("PROGRESS_INTERVAL", c.Workflow.ProgressInterval)
	c.Workflow.OutlineDefaultSections = getEnvAsInt("OUTLINE_DEFAULT_SECTIONS", c.Workflow.OutlineDefaultSections)

	c.Editor.SaveRate = getEnvAsFloat("EDITOR_SAVE_RATE", c.Editor.SaveRate)
	c.Editor.SaveBurst = getEnvAsInt("EDITOR_SAVE_BURST", c.Editor.SaveBurst)

	c.Events.RedisURL = getEnv("REDIS_URL", c.Events.RedisURL)
	c.Events.ChannelPrefix = getEnv("EVENTS_CHANNEL_PREFIX", c.Events.ChannelPrefix)

	c.Stub.Port = getEnv("STUB_PORT", c.Stub.Port)
	c.Stub.Token = getEnv("STUB_TOKEN", c.Stub.Token)

	c.App.Environment = getEnv("APP_ENV", c.App.Environment)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.App.Version = getEnv("APP_VERSION", c.App.Version)
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Service.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("DOCGEN_API_URL must be an absolute URL, got %q", c.Service.APIURL)
	}

	if c.Service.Timeout <= 0 || c.Service.LongTimeout <= 0 {
		return fmt.Errorf("DOCGEN_TIMEOUT and DOCGEN_LONG_TIMEOUT must be positive")
	}

	if c.Workflow.ProgressInterval <= 0 {
		return fmt.Errorf("PROGRESS_INTERVAL must be positive")
	}

	if c.Workflow.OutlineDefaultSections <= 0 {
		return fmt.Errorf("OUTLINE_DEFAULT_SECTIONS must be positive")
	}

	if c.Editor.SaveRate <= 0 || c.Editor.SaveBurst <= 0 {
		return fmt.Errorf("EDITOR_SAVE_RATE and EDITOR_SAVE_BURST must be positive")
	}

	if c.Stub.Port == "" {
		return fmt.Errorf("STUB_PORT is required")
	}

	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	return nil
}

// Verbosity maps LOG_LEVEL onto a klog -v level.
func (c AppConfig) Verbosity() int {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return 6
	case "info":
		return 2
	}
	return 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		klog.Warningf("Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		klog.Warningf("Invalid number for %s, using default: %g", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		klog.Warningf("Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}
