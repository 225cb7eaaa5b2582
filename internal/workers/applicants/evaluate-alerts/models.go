// internal/workers/applicants/evaluate-alerts/models.go
package evaluatealerts

type Input struct {
	// RuleID restricts the evaluation to one rule. Empty runs the battery.
	RuleID string `json:"ruleId"`
}

type RuleSummary struct {
	RuleID   string   `json:"ruleId"`
	Severity string   `json:"severity"`
	Count    int      `json:"count"`
	Names    []string `json:"names"`
}

type Output struct {
	EvaluatedAt string         `json:"evaluatedAt"`
	Total       int            `json:"total"`
	HasAlerts   bool           `json:"hasAlerts"`
	Counts      map[string]int `json:"counts"`
	Rules       []RuleSummary  `json:"rules"`
}
