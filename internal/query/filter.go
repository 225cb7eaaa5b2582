// Package query implements the dashboard's composable record filters and
// the default-agent suggestion helper.
package query

import (
	"sort"
	"strings"

	"visa-tracker/internal/models"
)

// All disables a filter field, as does the empty string.
const All = "All"

// InvalidDateKey buckets records whose registration date did not parse.
const InvalidDateKey = "Invalid Date"

// Filter holds exact-match fields combined with AND, plus a case-insensitive
// substring search over the student name.
type Filter struct {
	Stage    string `json:"stage"`
	Agent    string `json:"agent"`
	School   string `json:"school"`
	Attempts string `json:"attempts"`
	Month    string `json:"month"`
	Search   string `json:"search"`
}

func active(v string) bool {
	return v != "" && v != All
}

// Match reports whether a passes every active field.
func (f Filter) Match(a models.Applicant) bool {
	if active(f.Stage) && a.Stage != f.Stage {
		return false
	}
	if active(f.Agent) && a.Agent != f.Agent {
		return false
	}
	if active(f.School) && a.ChosenSchool != f.School {
		return false
	}
	if active(f.Attempts) && a.Attempts != f.Attempts {
		return false
	}
	if active(f.Month) && MonthKey(a) != f.Month {
		return false
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		if !strings.Contains(strings.ToLower(a.StudentName), strings.ToLower(s)) {
			return false
		}
	}
	return true
}

// Apply returns the matching records in their original order.
func (f Filter) Apply(records []models.Applicant) []models.Applicant {
	out := make([]models.Applicant, 0, len(records))
	for _, a := range records {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

// MonthKey is the YYYY-MM of the registration date, or InvalidDateKey.
func MonthKey(a models.Applicant) string {
	if !a.RegistrationDate.Valid {
		return InvalidDateKey
	}
	return a.RegistrationDate.Time.Format("2006-01")
}

// FilterOptions lists the distinct values present for each filter field.
type FilterOptions struct {
	Stages   []string `json:"stages"`
	Agents   []string `json:"agents"`
	Schools  []string `json:"schools"`
	Attempts []string `json:"attempts"`
	Months   []string `json:"months"`
}

// Options collects dropdown values from records. Blank values are skipped.
// Stages follow the reference order first, then any others alphabetically;
// months are newest first.
func Options(records []models.Applicant) FilterOptions {
	stages := map[string]bool{}
	agents := map[string]bool{}
	schools := map[string]bool{}
	attempts := map[string]bool{}
	months := map[string]bool{}
	for _, a := range records {
		add(stages, a.Stage)
		add(agents, a.Agent)
		add(schools, a.ChosenSchool)
		add(attempts, a.Attempts)
		add(months, MonthKey(a))
	}

	var orderedStages []string
	for _, s := range models.Stages {
		if stages[s] {
			orderedStages = append(orderedStages, s)
			delete(stages, s)
		}
	}
	orderedStages = append(orderedStages, sorted(stages)...)

	monthList := sorted(months)
	sort.Sort(sort.Reverse(sort.StringSlice(monthList)))

	return FilterOptions{
		Stages:   orderedStages,
		Agents:   sorted(agents),
		Schools:  sorted(schools),
		Attempts: sorted(attempts),
		Months:   monthList,
	}
}

func add(set map[string]bool, v string) {
	if strings.TrimSpace(v) != "" {
		set[v] = true
	}
}

func sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
