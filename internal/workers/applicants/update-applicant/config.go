// internal/workers/applicants/update-applicant/config.go
package updateapplicant

import "time"

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
}
