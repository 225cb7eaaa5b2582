// Package rules holds the alert rules evaluated over the applicant
// collection. Every rule is a pure function of the records and a single
// reference time.
package rules

import (
	"sort"
	"time"

	"visa-tracker/internal/models"
)

// Rule IDs.
const (
	SchoolPaymentDue     = "school-payment-due"
	DS160Due             = "ds160-due"
	InterviewImminent    = "interview-imminent"
	SEVISUnpaid          = "sevis-unpaid"
	EntryDateMissing     = "entry-date-missing"
	InterviewDateMissing = "interview-date-missing"
	VisaResultOverdue    = "visa-result-overdue"
	UnassignedAgent      = "unassigned-agent"
	DuplicateNames       = "duplicate-names"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

const (
	schoolPaymentLeadDays = 50
	ds160WindowDays       = 30
	interviewWindowDays   = 14
	entryDateGraceDays    = 7
	interviewDateGrace    = 14
	ds160StageCount       = 5
)

// Func selects and orders the records a rule flags.
type Func func(records []models.Applicant, now time.Time) []models.Applicant

// Rule is one entry of the alert battery.
type Rule struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Apply    Func     `json:"-"`
}

// Default returns the built-in battery in display order.
func Default() []Rule {
	return []Rule{
		{ID: SchoolPaymentDue, Title: "School payment due", Severity: SeverityHigh, Apply: schoolPaymentDue},
		{ID: DS160Due, Title: "DS-160 due", Severity: SeverityHigh, Apply: ds160Due},
		{ID: InterviewImminent, Title: "Interview imminent, unprepped", Severity: SeverityHigh, Apply: interviewImminent},
		{ID: SEVISUnpaid, Title: "SEVIS unpaid, interview imminent", Severity: SeverityHigh, Apply: sevisUnpaid},
		{ID: EntryDateMissing, Title: "I-20/entry-date missing", Severity: SeverityMedium, Apply: entryDateMissing},
		{ID: InterviewDateMissing, Title: "Interview date missing", Severity: SeverityMedium, Apply: interviewDateMissing},
		{ID: VisaResultOverdue, Title: "Visa result overdue", Severity: SeverityMedium, Apply: visaResultOverdue},
		{ID: UnassignedAgent, Title: "Unassigned agent", Severity: SeverityLow, Apply: unassignedAgent},
		{ID: DuplicateNames, Title: "Duplicate names", Severity: SeverityLow, Apply: duplicateNames},
	}
}

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func schoolPaymentDue(records []models.Applicant, now time.Time) []models.Applicant {
	return selectSorted(records, byRegistration, func(a models.Applicant) bool {
		return !a.SchoolPaid.IsYes() &&
			a.SchoolEntryDate.Valid &&
			a.SchoolEntryDate.Time.Add(-days(schoolPaymentLeadDays)).After(now) &&
			a.VisaResult != models.VisaDenied
	})
}

func ds160Due(records []models.Applicant, now time.Time) []models.Applicant {
	early := make(map[string]bool, ds160StageCount)
	for _, s := range models.Stages[:ds160StageCount] {
		early[s] = true
	}
	return selectSorted(records, byInterview, func(a models.Applicant) bool {
		return early[a.Stage] && a.EmbassyInterviewDate.Within(now, now.Add(days(ds160WindowDays)))
	})
}

func interviewImminent(records []models.Applicant, now time.Time) []models.Applicant {
	return selectSorted(records, byInterview, func(a models.Applicant) bool {
		return a.EmbassyInterviewDate.Within(now, now.Add(days(interviewWindowDays))) &&
			!models.IsTerminalStage(a.Stage)
	})
}

func sevisUnpaid(records []models.Applicant, now time.Time) []models.Applicant {
	return selectSorted(records, byInterview, func(a models.Applicant) bool {
		return a.EmbassyInterviewDate.Within(now, now.Add(days(interviewWindowDays))) &&
			a.SEVISPaid.IsNo()
	})
}

func entryDateMissing(records []models.Applicant, now time.Time) []models.Applicant {
	cutoff := now.Add(-days(entryDateGraceDays))
	return selectSorted(records, byRegistration, func(a models.Applicant) bool {
		return a.RegistrationDate.Valid && !a.RegistrationDate.Time.After(cutoff) &&
			!a.SchoolEntryDate.Valid &&
			a.Stage != models.StageClients
	})
}

func interviewDateMissing(records []models.Applicant, now time.Time) []models.Applicant {
	cutoff := now.Add(-days(interviewDateGrace))
	return selectSorted(records, byRegistration, func(a models.Applicant) bool {
		return a.RegistrationDate.Valid && !a.RegistrationDate.Time.After(cutoff) &&
			!a.EmbassyInterviewDate.Valid &&
			a.Stage != models.StageClients
	})
}

func visaResultOverdue(records []models.Applicant, now time.Time) []models.Applicant {
	return selectSorted(records, byInterview, func(a models.Applicant) bool {
		return a.EmbassyInterviewDate.Before(now) && !a.HasVisaResult()
	})
}

func unassignedAgent(records []models.Applicant, _ time.Time) []models.Applicant {
	return selectSorted(records, byRegistration, func(a models.Applicant) bool {
		return !a.HasAgent() && !models.IsTerminalStage(a.Stage)
	})
}

func duplicateNames(records []models.Applicant, _ time.Time) []models.Applicant {
	counts := make(map[string]int, len(records))
	for _, a := range records {
		counts[a.StudentName]++
	}
	return selectSorted(records, byRegistration, func(a models.Applicant) bool {
		return counts[a.StudentName] > 1
	})
}

func byRegistration(a models.Applicant) models.Date { return a.RegistrationDate }

func byInterview(a models.Applicant) models.Date { return a.EmbassyInterviewDate }

// selectSorted keeps the records matching keep, stable-sorted ascending by
// key with absent keys last.
func selectSorted(records []models.Applicant, key func(models.Applicant) models.Date, keep func(models.Applicant) bool) []models.Applicant {
	out := make([]models.Applicant, 0)
	for _, a := range records {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := key(out[i]), key(out[j])
		switch {
		case !di.Valid:
			return false
		case !dj.Valid:
			return true
		default:
			return di.Time.Before(dj.Time)
		}
	})
	return out
}
