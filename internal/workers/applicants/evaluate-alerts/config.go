// internal/workers/applicants/evaluate-alerts/config.go
package evaluatealerts

import "time"

type Config struct {
	Timeout time.Duration
	// MaxNames caps the student names listed per rule in the job output.
	MaxNames int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		MaxNames: 50,
	}
}
