// internal/workers/applicants/send-alert-digest/config.go
package sendalertdigest

import "time"

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 2 * time.Minute}
}
