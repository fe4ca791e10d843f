package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultEndpointURL is the classifier endpoint baked in at build time:
//
//	go build -ldflags "-X mangoleaf/internal/config.DefaultEndpointURL=https://host/predict"
var DefaultEndpointURL = "http://127.0.0.1:5000/predict"

type Config struct {
	App        AppConfig        `toml:"app"`
	Session    SessionConfig    `toml:"session"`
	Redis      RedisConfig      `toml:"redis"`
	Classifier ClassifierConfig `toml:"classifier"`
	UI         UIConfig         `toml:"ui"`
}

type AppConfig struct {
	Name        string `toml:"name"`
	Env         string `toml:"env"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	GinMode     string `toml:"gin_mode"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

type SessionConfig struct {
	// Store is "memory" or "redis".
	Store        string `toml:"store"`
	CookieName   string `toml:"cookie_name"`
	Secret       string `toml:"secret"`
	TTLMinutes   int    `toml:"ttl_minutes"`
	SecureCookie bool   `toml:"secure_cookie"`
}

type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

type ClassifierConfig struct {
	EndpointURL    string `toml:"endpoint_url"`
	FieldName      string `toml:"field_name"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type UIConfig struct {
	HealthyLabel string `toml:"healthy_label"`
	PulseMillis  int    `toml:"pulse_millis"`
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.App.MaxUploadMB) << 20
}

func (c *Config) validate() error {
	if c.Classifier.EndpointURL == "" {
		return fmt.Errorf("classifier endpoint url is empty")
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is empty")
	}
	if c.Session.TTLMinutes <= 0 {
		return fmt.Errorf("session ttl_minutes must be positive")
	}
	if c.App.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "mangoleaf",
			Env:         "dev",
			Host:        "0.0.0.0",
			Port:        8080,
			GinMode:     "debug",
			MaxUploadMB: 32,
		},
		Session: SessionConfig{
			Store:      "memory",
			CookieName: "mangoleaf_session",
			Secret:     "change-me-in-production",
			TTLMinutes: 60,
		},
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			Password:  "",
			DB:        0,
			KeyPrefix: "mangoleaf",
		},
		Classifier: ClassifierConfig{
			EndpointURL:    DefaultEndpointURL,
			FieldName:      "image",
			TimeoutSeconds: 30,
		},
		UI: UIConfig{
			HealthyLabel: "Healthy",
			PulseMillis:  1500,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.MaxUploadMB = getEnvAsInt("APP_MAX_UPLOAD_MB", cfg.App.MaxUploadMB)

	cfg.Session.Store = getEnv("SESSION_STORE", cfg.Session.Store)
	cfg.Session.CookieName = getEnv("SESSION_COOKIE_NAME", cfg.Session.CookieName)
	cfg.Session.Secret = getEnv("SESSION_SECRET", cfg.Session.Secret)
	cfg.Session.TTLMinutes = getEnvAsInt("SESSION_TTL_MINUTES", cfg.Session.TTLMinutes)
	cfg.Session.SecureCookie = getEnvAsBool("SESSION_SECURE_COOKIE", cfg.Session.SecureCookie)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", cfg.Redis.KeyPrefix)

	cfg.Classifier.EndpointURL = getEnv("CLASSIFIER_ENDPOINT_URL", cfg.Classifier.EndpointURL)
	cfg.Classifier.FieldName = getEnv("CLASSIFIER_FIELD_NAME", cfg.Classifier.FieldName)
	cfg.Classifier.TimeoutSeconds = getEnvAsInt("CLASSIFIER_TIMEOUT_SECONDS", cfg.Classifier.TimeoutSeconds)

	cfg.UI.HealthyLabel = getEnv("UI_HEALTHY_LABEL", cfg.UI.HealthyLabel)
	cfg.UI.PulseMillis = getEnvAsInt("UI_PULSE_MILLIS", cfg.UI.PulseMillis)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
