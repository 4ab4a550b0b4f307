// internal/workers/identity/resolve-representative/config.go
package resolverepresentative

import "time"

type Config struct {
	Timeout            time.Duration
	DefaultState       string
	MaxRepresentatives int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:            150 * time.Second,
		DefaultState:       "WA",
		MaxRepresentatives: 2,
	}
}
