// internal/workers/assistant/retrieve-evidence/config.go
package retrieveevidence

import "time"

type Config struct {
	Timeout             time.Duration
	DefaultForecastDays int
	DefaultPlace        string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:             30 * time.Second,
		DefaultForecastDays: 3,
		DefaultPlace:        "Château de Versailles",
	}
}
