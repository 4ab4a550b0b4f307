// internal/workers/identity/parse-owner-record/config.go
package parseownerrecord

import "time"

type Config struct {
	Timeout            time.Duration
	DefaultState       string
	MaxRepresentatives int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:            5 * time.Second,
		DefaultState:       "WA",
		MaxRepresentatives: 2,
	}
}
