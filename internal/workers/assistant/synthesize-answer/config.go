// internal/workers/assistant/synthesize-answer/config.go
package synthesizeanswer

import "time"

type Config struct {
	Timeout          time.Duration
	FallbackMaxRunes int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          60 * time.Second,
		FallbackMaxRunes: 500,
	}
}
