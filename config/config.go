// Package config defines the application configuration, loaded from
// environment variables with github.com/caarlos0/env. Domain-specific
// sections live in their own files:
//   - database.go: Postgres and Redis configuration
//   - push.go: push delivery configuration
package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct.
type AppConfig struct {
	// IsDev controls development mode behavior. Set DEV=true or
	// APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Push     PushConfig  `envPrefix:"PUSH_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
func (c *AppConfig) Sanitize() {
	c.Push.Sanitize()
	c.detectDevMode()
}

func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}
