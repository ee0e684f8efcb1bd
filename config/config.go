package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Dosada05/tournament-organizer/models"
)

// R2Config описывает бакет для публикации снимков турниров.
type R2Config struct {
	AccountID       string `env:"ACCOUNT_ID"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	BucketName      string `env:"BUCKET_NAME"`
	PublicBaseURL   string `env:"PUBLIC_BASE_URL"`
}

// Enabled reports whether all R2 credentials are present.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != "" && c.PublicBaseURL != ""
}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string   `env:"DATABASE_URL,required"`
	JWTSecretKey string   `env:"JWT_SECRET_KEY,required"`
	ServerPort   int      `env:"SERVER_PORT" envDefault:"8080"`
	R2           R2Config `envPrefix:"R2_"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	PublishWorkers int     `env:"PUBLISH_WORKERS" envDefault:"4"`

	SettingsDefaultsFile string `env:"SETTINGS_DEFAULTS_FILE"`

	// AllowedOrigins используется для CORS и проверки Origin у websocket.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// DefaultSettings применяются к новым турнирам без явных настроек.
	DefaultSettings models.Settings
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load(envFiles ...string) (*Config, error) {
	// Отсутствие .env не считаем ошибкой.
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}
	if cfg.RateLimitRPS <= 0 {
		return nil, errors.New("RATE_LIMIT_RPS must be positive")
	}
	if cfg.PublishWorkers <= 0 {
		cfg.PublishWorkers = 1
	}

	defaults, err := LoadSettingsDefaults(cfg.SettingsDefaultsFile)
	if err != nil {
		return nil, err
	}
	cfg.DefaultSettings = defaults

	return cfg, nil
}

// LoadSettingsDefaults reads tournament settings defaults from a YAML file.
// Keys missing from the file keep the built-in defaults; an empty path returns
// the built-ins.
func LoadSettingsDefaults(path string) (models.Settings, error) {
	settings := models.DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Settings{}, fmt.Errorf("reading settings defaults file: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return models.Settings{}, fmt.Errorf("parsing settings defaults file: %w", err)
	}

	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return models.Settings{}, fmt.Errorf("settings defaults file %s: %w", path, err)
	}
	return settings, nil
}
