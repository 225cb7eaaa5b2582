package query

import (
	"strings"

	"visa-tracker/internal/common/config"
	"visa-tracker/internal/models"
)

// Specialty maps school-name keywords to an agent.
type Specialty struct {
	Agent    string
	Keywords []string
}

// AgentTable is consulted in declaration order; the first specialty with a
// matching keyword wins.
type AgentTable struct {
	Specialties []Specialty
	Default     string
}

// DefaultAgentTable is used when no agents are configured.
var DefaultAgentTable = AgentTable{
	Specialties: []Specialty{
		{Agent: "Nadia", Keywords: []string{"ELS", "Kaplan", "EF Education"}},
		{Agent: "Yassine", Keywords: []string{"University", "College", "Institute"}},
		{Agent: "Karim", Keywords: []string{"Aviation", "Flight", "Culinary"}},
	},
	Default: "Nadia",
}

// AgentTableFromConfig builds the table from configuration, falling back to
// DefaultAgentTable when nothing is configured.
func AgentTableFromConfig(cfg config.AgentsConfig) AgentTable {
	if len(cfg.Specialties) == 0 && cfg.Default == "" {
		return DefaultAgentTable
	}
	table := AgentTable{Default: cfg.Default}
	for _, s := range cfg.Specialties {
		table.Specialties = append(table.Specialties, Specialty{Agent: s.Agent, Keywords: s.Keywords})
	}
	if table.Default == "" && len(table.Specialties) > 0 {
		table.Default = table.Specialties[0].Agent
	}
	return table
}

// Suggest picks the agent for a school name. matched is false when the
// default agent was used.
func (t AgentTable) Suggest(school string) (agent string, matched bool) {
	s := strings.ToLower(school)
	for _, sp := range t.Specialties {
		for _, kw := range sp.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(s, kw) {
				return sp.Agent, true
			}
		}
	}
	return t.Default, false
}

// Suggestion is a proposed agent for one record. Nothing is persisted.
type Suggestion struct {
	StudentName  string `json:"studentName"`
	ChosenSchool string `json:"chosenSchool"`
	Agent        string `json:"agent"`
	Default      bool   `json:"default"`
}

// AssignDefaultAgent proposes agents for records with no agent that are not
// in a terminal stage.
func AssignDefaultAgent(records []models.Applicant, table AgentTable) []Suggestion {
	out := make([]Suggestion, 0)
	for _, a := range records {
		if a.HasAgent() || models.IsTerminalStage(a.Stage) {
			continue
		}
		agent, matched := table.Suggest(a.ChosenSchool)
		out = append(out, Suggestion{
			StudentName:  a.StudentName,
			ChosenSchool: a.ChosenSchool,
			Agent:        agent,
			Default:      !matched,
		})
	}
	return out
}
