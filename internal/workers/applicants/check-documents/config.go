// internal/workers/applicants/check-documents/config.go
package checkdocuments

import "time"

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 60 * time.Second}
}
