// internal/workers/assistant/create-plan/config.go
package createplan

import "time"

type Config struct {
	Timeout    time.Duration
	MaxRetries int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	}
}
