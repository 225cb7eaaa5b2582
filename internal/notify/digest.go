// Package notify delivers the alert digest: one message per agent listing
// the records flagged for them, plus an SMS for interview-critical alerts.
package notify

import (
	"bytes"
	"sort"
	"strings"
	"text/template"
	"time"

	"visa-tracker/internal/models"
	"visa-tracker/internal/rules"
)

// urgentRules trigger an SMS in addition to the e-mail digest.
var urgentRules = map[string]bool{
	rules.InterviewImminent: true,
	rules.SEVISUnpaid:       true,
}

// Line is one flagged record in a digest section.
type Line struct {
	StudentName string `json:"studentName"`
	Stage       string `json:"stage"`
	Interview   string `json:"interview"`
	Entry       string `json:"entry"`
}

// Section groups the lines of one rule.
type Section struct {
	RuleID   string         `json:"ruleId"`
	Title    string         `json:"title"`
	Severity rules.Severity `json:"severity"`
	Lines    []Line         `json:"lines"`
}

// Digest is the message for one agent.
type Digest struct {
	Agent       string    `json:"agent"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
	Sections    []Section `json:"sections"`
}

// Count is the number of lines across sections.
func (d Digest) Count() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Lines)
	}
	return n
}

// Urgent counts lines from the SMS-worthy rules.
func (d Digest) Urgent() int {
	n := 0
	for _, s := range d.Sections {
		if urgentRules[s.RuleID] {
			n += len(s.Lines)
		}
	}
	return n
}

// BuildDigests splits report by agent. Records without an agent go to
// defaultAgent. Agents are returned in name order; sections keep the
// rule order of the report.
func BuildDigests(report rules.Report, defaultAgent string) []Digest {
	byAgent := map[string]*Digest{}
	for _, res := range report.Results {
		for _, rec := range res.Records {
			agent := strings.TrimSpace(rec.Agent)
			if agent == "" {
				agent = defaultAgent
			}
			d, ok := byAgent[agent]
			if !ok {
				d = &Digest{Agent: agent, EvaluatedAt: report.EvaluatedAt}
				byAgent[agent] = d
			}
			if n := len(d.Sections); n == 0 || d.Sections[n-1].RuleID != res.RuleID {
				d.Sections = append(d.Sections, Section{RuleID: res.RuleID, Title: res.Title, Severity: res.Severity})
			}
			s := &d.Sections[len(d.Sections)-1]
			s.Lines = append(s.Lines, lineFor(rec))
		}
	}

	out := make([]Digest, 0, len(byAgent))
	for _, d := range byAgent {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}

func lineFor(a models.Applicant) Line {
	return Line{
		StudentName: a.StudentName,
		Stage:       a.Stage,
		Interview:   a.EmbassyInterviewDate.Label("Not set"),
		Entry:       a.SchoolEntryDate.Label("N/A"),
	}
}

var subjectTmpl = template.Must(template.New("subject").Parse(
	`[Visa tracker] {{.Count}} applicant alert{{if ne .Count 1}}s{{end}} for {{.Agent}}`))

var bodyTmpl = template.Must(template.New("body").Parse(`Hello {{.Agent}},

Alerts as of {{.EvaluatedAt.Format "02/01/2006 15:04"}}:
{{range .Sections}}
{{.Title}} ({{len .Lines}})
{{- range .Lines}}
  - {{.StudentName}} | stage: {{.Stage}} | interview: {{.Interview}} | entry: {{.Entry}}
{{- end}}
{{end}}`))

var smsTmpl = template.Must(template.New("sms").Parse(
	`Visa tracker: {{.Urgent}} applicant{{if ne .Urgent 1}}s{{end}} with an interview within 14 days need attention.`))

// Render returns subject and plain-text body.
func (d Digest) Render() (string, string, error) {
	var subject, body bytes.Buffer
	if err := subjectTmpl.Execute(&subject, d); err != nil {
		return "", "", err
	}
	if err := bodyTmpl.Execute(&body, d); err != nil {
		return "", "", err
	}
	return subject.String(), body.String(), nil
}

// RenderSMS returns the short reminder text.
func (d Digest) RenderSMS() (string, error) {
	var buf bytes.Buffer
	if err := smsTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
