// internal/rules/engine.go
package rules

import (
	"context"
	"time"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/metrics"
	"visa-tracker/internal/common/observability"
	"visa-tracker/internal/models"
)

// Result is the outcome of one rule.
type Result struct {
	RuleID   string             `json:"ruleId"`
	Title    string             `json:"title"`
	Severity Severity           `json:"severity"`
	Count    int                `json:"count"`
	Records  []models.Applicant `json:"records"`
}

// Report is one evaluation pass over the whole battery.
type Report struct {
	EvaluatedAt time.Time `json:"evaluatedAt"`
	Results     []Result  `json:"results"`
}

// Result returns the result for id, if that rule ran.
func (r Report) Result(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.RuleID == id {
			return res, true
		}
	}
	return Result{}, false
}

// Total counts flagged records across rules. A record flagged by two rules
// counts twice.
func (r Report) Total() int {
	n := 0
	for _, res := range r.Results {
		n += res.Count
	}
	return n
}

type Engine struct {
	rules []Rule
	obs   *observability.Observability
}

// NewEngine builds an engine over rules, or the default battery when none
// are given. obs may be nil.
func NewEngine(obs *observability.Observability, rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = Default()
	}
	return &Engine{rules: rules, obs: obs}
}

func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every rule against the same now.
func (e *Engine) Evaluate(ctx context.Context, records []models.Applicant, now time.Time) Report {
	start := time.Now()
	report := Report{EvaluatedAt: now, Results: make([]Result, 0, len(e.rules))}
	for _, r := range e.rules {
		res := apply(r, records, now)
		metrics.RuleMatches.WithLabelValues(r.ID).Set(float64(res.Count))
		report.Results = append(report.Results, res)
	}
	e.obs.RecordEvaluation(ctx, len(records), time.Since(start))
	return report
}

// Run evaluates a single rule by ID.
func (e *Engine) Run(id string, records []models.Applicant, now time.Time) (Result, error) {
	for _, r := range e.rules {
		if r.ID == id {
			return apply(r, records, now), nil
		}
	}
	return Result{}, apperrors.NewRuleNotFoundError(id)
}

func apply(r Rule, records []models.Applicant, now time.Time) Result {
	matched := r.Apply(records, now)
	return Result{
		RuleID:   r.ID,
		Title:    r.Title,
		Severity: r.Severity,
		Count:    len(matched),
		Records:  matched,
	}
}
