// internal/workers/applicants/add-applicant/config.go
package addapplicant

import "time"

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
}
