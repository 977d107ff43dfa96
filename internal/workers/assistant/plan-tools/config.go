// internal/workers/assistant/plan-tools/config.go
package plantools

import "time"

type Config struct {
	Timeout             time.Duration
	DefaultForecastDays int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:             90 * time.Second,
		DefaultForecastDays: 3,
	}
}
