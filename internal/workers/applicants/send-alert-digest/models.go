// internal/workers/applicants/send-alert-digest/models.go
package sendalertdigest

import "visa-tracker/internal/notify"

type Output struct {
	DigestID   string            `json:"digestId"`
	SentAt     string            `json:"sentAt"`
	Sent       int               `json:"sent"`
	Agents     []string          `json:"agents"`
	Deliveries []notify.Delivery `json:"deliveries"`
}
