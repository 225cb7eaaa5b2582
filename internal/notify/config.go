package notify

import (
	"strings"

	"visa-tracker/internal/common/config"
)

// ConfigFromApp builds the notifier settings. Contacts on the agent table
// win; notifications.recipients fills the gaps.
func ConfigFromApp(cfg *config.Config) Config {
	out := Config{
		FromEmail:    cfg.Notifications.Email.FromEmail,
		EmailEnabled: cfg.Notifications.Email.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
		DefaultAgent: cfg.Agents.Default,
		Recipients:   map[string]Recipient{},
	}

	for name, r := range cfg.Notifications.Recipients {
		out.Recipients[strings.TrimSpace(name)] = Recipient{Email: r.Email, Phone: r.Phone}
	}
	for _, s := range cfg.Agents.Specialties {
		name := strings.TrimSpace(s.Agent)
		r := out.Recipients[name]
		if s.Email != "" {
			r.Email = s.Email
		}
		if s.Phone != "" {
			r.Phone = s.Phone
		}
		out.Recipients[name] = r
	}

	if out.DefaultAgent == "" && len(cfg.Agents.Specialties) > 0 {
		out.DefaultAgent = cfg.Agents.Specialties[0].Agent
	}
	return out
}
