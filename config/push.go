package config

import "time"

// PushConfig contains push delivery configuration. Delivery is disabled when
// the endpoint is empty.
type PushConfig struct {
	Endpoint  string        `env:"ENDPOINT"   envDefault:""`
	ServerKey string        `env:"SERVER_KEY" envDefault:""`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"10s"`
}

// Enabled reports whether push delivery is configured.
func (c PushConfig) Enabled() bool {
	return c.Endpoint != "" && c.ServerKey != ""
}

// Sanitize applies guardrails to push configuration values.
func (c *PushConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}
