// internal/models/applicant.go
package models

import (
	"strconv"
	"strings"
	"time"
)

// Applicant is one student row of the tracking spreadsheet.
type Applicant struct {
	// StudentName is FirstName + " " + LastName. It is recomputed on every
	// parse and serialize and is the identity key for lookups and dedup.
	StudentName string `json:"studentName"`

	// Table is the store table the record was loaded from or saved to. It
	// is not a wire column.
	Table string `json:"table,omitempty"`

	// Personal
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Age              string `json:"age"`
	Gender           string `json:"gender"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	EmergencyContact string `json:"emergencyContact"`
	Address          string `json:"address"`

	// Program
	ChosenSchool    string `json:"chosenSchool"`
	Specialite      string `json:"specialite"`
	Duration        string `json:"duration"`
	SchoolEntryDate Date   `json:"schoolEntryDate"`
	USEntryDate     Date   `json:"usEntryDate"`
	SchoolPaid      YesNo  `json:"schoolPaid"`

	// Embassy
	USAddress            string `json:"usAddress"`
	RDVEmail             string `json:"rdvEmail"`
	RDVPassword          string `json:"rdvPassword"`
	EmbassyInterviewDate Date   `json:"embassyInterviewDate"`
	DS160Maker           string `json:"ds160Maker"`
	DS160Password        string `json:"ds160Password"`
	SecretQuestion       string `json:"secretQuestion"`
	InterviewPrepDone    YesNo  `json:"interviewPrepDone"`

	// Payment
	RegistrationDate Date   `json:"registrationDate"`
	PaymentAmount    string `json:"paymentAmount"`
	PaymentType      string `json:"paymentType"`
	Account          string `json:"account"`
	SEVISPaid        YesNo  `json:"sevisPaid"`
	ApplicationPaid  YesNo  `json:"applicationPaid"`

	// Process
	Stage      string `json:"stage"`
	Agent      string `json:"agent"`
	Attempts   string `json:"attempts"`
	VisaResult string `json:"visaResult"`
	Notes      string `json:"notes"`
}

// FullName joins the name parts the way the identity key is built.
func FullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// ComputeName refreshes StudentName from the name parts.
func (a *Applicant) ComputeName() {
	a.StudentName = FullName(a.FirstName, a.LastName)
}

// AgeYears parses Age softly.
func (a Applicant) AgeYears() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(a.Age))
	if err != nil {
		return 0, false
	}
	return n, true
}

// HasAgent reports a non-blank agent.
func (a Applicant) HasAgent() bool {
	return strings.TrimSpace(a.Agent) != ""
}

// HasVisaResult reports a non-blank visa result.
func (a Applicant) HasVisaResult() bool {
	return strings.TrimSpace(a.VisaResult) != ""
}

// NewApplicant builds the record created by the "add applicant" action:
// first stage, every yes/no field NO, first attempt, registered now.
func NewApplicant(first, last, school string, now time.Time) Applicant {
	a := Applicant{
		FirstName:         strings.TrimSpace(first),
		LastName:          strings.TrimSpace(last),
		ChosenSchool:      strings.TrimSpace(school),
		SchoolPaid:        No,
		InterviewPrepDone: No,
		SEVISPaid:         No,
		ApplicationPaid:   No,
		Stage:             Stages[0],
		Attempts:          FirstTry,
		RegistrationDate:  NewDate(now),
	}
	a.ComputeName()
	return a
}

// Summary is the derived, display-ready view of an applicant.
type Summary struct {
	StudentName        string  `json:"studentName"`
	Stage              string  `json:"stage"`
	StageIndex         int     `json:"stageIndex"`
	Progress           float64 `json:"progress"`
	DaysUntilInterview *int    `json:"daysUntilInterview"`
	InterviewLabel     string  `json:"interviewLabel"`
	EntryLabel         string  `json:"entryLabel"`
	RegistrationLabel  string  `json:"registrationLabel"`
	VisaLabel          string  `json:"visaLabel"`
}

// Summarize derives the display fields as of now.
func (a Applicant) Summarize(now time.Time) Summary {
	s := Summary{
		StudentName:       a.StudentName,
		Stage:             a.Stage,
		StageIndex:        StageIndex(a.Stage, Stages),
		Progress:          ProgressFraction(a.Stage, Stages),
		InterviewLabel:    a.EmbassyInterviewDate.Label("Not set"),
		EntryLabel:        a.SchoolEntryDate.Label("N/A"),
		RegistrationLabel: a.RegistrationDate.Label("N/A"),
		VisaLabel:         VisaStatusLabel(a.VisaResult),
	}
	if days, ok := DaysUntil(a.EmbassyInterviewDate, now); ok {
		s.DaysUntilInterview = &days
	}
	return s
}
