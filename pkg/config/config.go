package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT"`
		Host    string `env:"POSTGRES_HOST"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	}
	Reddit struct {
		ClientID     string `env:"REDDIT_CLIENT_ID"`
		ClientSecret string `env:"REDDIT_CLIENT_SECRET"`
		Username     string `env:"REDDIT_USERNAME"`
		Password     string `env:"REDDIT_PASSWORD"`
		UserAgent    string `env:"REDDIT_USER_AGENT" env-default:"redgrid/1.0"`
	}
	Fetcher struct {
		RefreshInterval time.Duration `env:"FETCHER_REFRESH_INTERVAL" env-default:"30s"`
		CacheTTL        time.Duration `env:"FETCHER_CACHE_TTL" env-default:"5m"`
		RequestTimeout  time.Duration `env:"FETCHER_REQUEST_TIMEOUT" env-default:"10s"`
		PostLimit       int           `env:"FETCHER_POST_LIMIT" env-default:"25"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}

// GetDSN returns the postgres connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Pass,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.Name,
		c.Postgres.SslMode,
	)
}
