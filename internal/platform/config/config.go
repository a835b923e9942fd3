package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/novamark/agencydesk-backend/internal/platform/envutil"
)

// Config is loaded from an optional yaml file (CONFIG_PATH), with environment
// variables taking precedence over file values.
type Config struct {
	LogMode string `yaml:"log_mode"`
	Port    string `yaml:"port"`

	Postgres struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"postgres"`

	Redis struct {
		Addr    string `yaml:"addr"`
		Channel string `yaml:"channel"`
	} `yaml:"redis"`

	JWTSecret string `yaml:"jwt_secret"`

	CORS struct {
		AllowOrigins []string `yaml:"allow_origins"`
	} `yaml:"cors"`

	AI struct {
		Enabled bool   `yaml:"enabled"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"ai"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.LogMode = envutil.String("LOG_MODE", defaultStr(cfg.LogMode, "development"))
	cfg.Port = envutil.String("PORT", defaultStr(cfg.Port, "8080"))

	cfg.Postgres.Host = envutil.String("POSTGRES_HOST", defaultStr(cfg.Postgres.Host, "localhost"))
	cfg.Postgres.Port = envutil.String("POSTGRES_PORT", defaultStr(cfg.Postgres.Port, "5432"))
	cfg.Postgres.User = envutil.String("POSTGRES_USER", defaultStr(cfg.Postgres.User, "postgres"))
	cfg.Postgres.Password = envutil.String("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Name = envutil.String("POSTGRES_NAME", defaultStr(cfg.Postgres.Name, "agencydesk"))

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", defaultStr(cfg.Redis.Channel, "records"))

	cfg.JWTSecret = envutil.String("JWT_SECRET_KEY", defaultStr(cfg.JWTSecret, "defaultsecret"))

	if v := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS")); v != "" {
		cfg.CORS.AllowOrigins = splitCSV(v)
	}
	if len(cfg.CORS.AllowOrigins) == 0 {
		cfg.CORS.AllowOrigins = []string{"http://localhost:3000"}
	}

	cfg.AI.Enabled = envutil.Bool("AI_RESPONDER_ENABLED", cfg.AI.Enabled)
	cfg.AI.BaseURL = envutil.String("AI_BASE_URL", defaultStr(cfg.AI.BaseURL, "https://api.openai.com/v1"))
	cfg.AI.Model = envutil.String("AI_MODEL", defaultStr(cfg.AI.Model, "gpt-4o-mini"))

	return cfg, nil
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.Postgres.User, c.Postgres.Password, c.Postgres.Host, c.Postgres.Port, c.Postgres.Name)
}

func defaultStr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
