// internal/models/columns.go
package models

import (
	"sort"
	"strings"
)

// Wire column headers.
const (
	ColFirstName            = "First Name"
	ColLastName             = "Last Name"
	ColAge                  = "Age"
	ColGender               = "Gender"
	ColPhone                = "Phone N°"
	ColEmail                = "E-mail"
	ColEmergencyContact     = "Emergency contact N°"
	ColAddress              = "Address"
	ColChosenSchool         = "Chosen School"
	ColSpecialite           = "Specialite"
	ColDuration             = "Duration"
	ColSchoolEntryDate      = "School Entry Date"
	ColUSEntryDate          = "Entry Date in the US"
	ColSchoolPaid           = "School Paid"
	ColUSAddress            = "Address in the U.S"
	ColRDVEmail             = "E-mail RDV"
	ColRDVPassword          = "Password RDV"
	ColEmbassyInterviewDate = "EMBASSY ITW. DATE"
	ColDS160Maker           = "DS-160 maker"
	ColDS160Password        = "Password DS-160"
	ColSecretQuestion       = "Secret Q."
	ColInterviewPrep        = "Prep ITW"
	ColRegistrationDate     = "DATE"
	ColPaymentAmount        = "Payment Amount"
	ColPaymentType          = "Payment Type"
	ColAccount              = "Compte"
	ColSEVISPaid            = "Sevis payment ?"
	ColApplicationPaid      = "Application payment ?"
	ColStage                = "Stage"
	ColAgent                = "Agent"
	ColAttempts             = "Attempts"
	ColVisaResult           = "Visa Result"
	ColNotes                = "Note"
)

type column struct {
	name string
	get  func(a *Applicant) string
	set  func(a *Applicant, v string)
}

func textCol(name string, f func(a *Applicant) *string) column {
	return column{
		name: name,
		get:  func(a *Applicant) string { return *f(a) },
		set:  func(a *Applicant, v string) { *f(a) = strings.TrimSpace(v) },
	}
}

func dateCol(name string, f func(a *Applicant) *Date) column {
	return column{
		name: name,
		get:  func(a *Applicant) string { return f(a).Wire() },
		set:  func(a *Applicant, v string) { *f(a) = ParseDate(v) },
	}
}

func yesNoCol(name string, f func(a *Applicant) *YesNo) column {
	return column{
		name: name,
		get:  func(a *Applicant) string { return string(*f(a)) },
		set:  func(a *Applicant, v string) { *f(a) = ParseYesNo(v) },
	}
}

var columns = []column{
	textCol(ColFirstName, func(a *Applicant) *string { return &a.FirstName }),
	textCol(ColLastName, func(a *Applicant) *string { return &a.LastName }),
	textCol(ColAge, func(a *Applicant) *string { return &a.Age }),
	textCol(ColGender, func(a *Applicant) *string { return &a.Gender }),
	textCol(ColPhone, func(a *Applicant) *string { return &a.Phone }),
	textCol(ColEmail, func(a *Applicant) *string { return &a.Email }),
	textCol(ColEmergencyContact, func(a *Applicant) *string { return &a.EmergencyContact }),
	textCol(ColAddress, func(a *Applicant) *string { return &a.Address }),
	textCol(ColChosenSchool, func(a *Applicant) *string { return &a.ChosenSchool }),
	textCol(ColSpecialite, func(a *Applicant) *string { return &a.Specialite }),
	textCol(ColDuration, func(a *Applicant) *string { return &a.Duration }),
	dateCol(ColSchoolEntryDate, func(a *Applicant) *Date { return &a.SchoolEntryDate }),
	dateCol(ColUSEntryDate, func(a *Applicant) *Date { return &a.USEntryDate }),
	yesNoCol(ColSchoolPaid, func(a *Applicant) *YesNo { return &a.SchoolPaid }),
	textCol(ColUSAddress, func(a *Applicant) *string { return &a.USAddress }),
	textCol(ColRDVEmail, func(a *Applicant) *string { return &a.RDVEmail }),
	textCol(ColRDVPassword, func(a *Applicant) *string { return &a.RDVPassword }),
	dateCol(ColEmbassyInterviewDate, func(a *Applicant) *Date { return &a.EmbassyInterviewDate }),
	textCol(ColDS160Maker, func(a *Applicant) *string { return &a.DS160Maker }),
	textCol(ColDS160Password, func(a *Applicant) *string { return &a.DS160Password }),
	textCol(ColSecretQuestion, func(a *Applicant) *string { return &a.SecretQuestion }),
	yesNoCol(ColInterviewPrep, func(a *Applicant) *YesNo { return &a.InterviewPrepDone }),
	dateCol(ColRegistrationDate, func(a *Applicant) *Date { return &a.RegistrationDate }),
	textCol(ColPaymentAmount, func(a *Applicant) *string { return &a.PaymentAmount }),
	textCol(ColPaymentType, func(a *Applicant) *string { return &a.PaymentType }),
	textCol(ColAccount, func(a *Applicant) *string { return &a.Account }),
	yesNoCol(ColSEVISPaid, func(a *Applicant) *YesNo { return &a.SEVISPaid }),
	yesNoCol(ColApplicationPaid, func(a *Applicant) *YesNo { return &a.ApplicationPaid }),
	textCol(ColStage, func(a *Applicant) *string { return &a.Stage }),
	textCol(ColAgent, func(a *Applicant) *string { return &a.Agent }),
	textCol(ColAttempts, func(a *Applicant) *string { return &a.Attempts }),
	textCol(ColVisaResult, func(a *Applicant) *string { return &a.VisaResult }),
	textCol(ColNotes, func(a *Applicant) *string { return &a.Notes }),
}

// Columns returns the canonical header row.
func Columns() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.name
	}
	return out
}

// NormalizeHeader folds header spelling differences (case, spacing) so
// sheets with slightly different headers map onto the same columns.
func NormalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// ParseRecord coerces a raw header-keyed row into an Applicant. It never
// fails: unknown columns are ignored and bad values become absent.
func ParseRecord(row map[string]string) Applicant {
	var a Applicant
	for _, c := range columns {
		if v, ok := LookupCell(row, c.name); ok {
			c.set(&a, v)
		}
	}
	a.ComputeName()
	return a
}

// LookupCell finds the cell for header in row. The exact spelling wins;
// otherwise keys that normalize alike are taken in sorted order and the first
// non-empty value is used.
func LookupCell(row map[string]string, header string) (string, bool) {
	if v, ok := row[header]; ok {
		return v, true
	}
	want := NormalizeHeader(header)
	var keys []string
	for k := range row {
		if NormalizeHeader(k) == want {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return "", false
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.TrimSpace(row[k]) != "" {
			return row[k], true
		}
	}
	return row[keys[0]], true
}

// SerializeRecord renders a into its wire row. StudentName is not a wire
// column; it is derived from the name parts on the way back in.
func SerializeRecord(a Applicant) map[string]string {
	row := make(map[string]string, len(columns))
	for _, c := range columns {
		row[c.name] = c.get(&a)
	}
	return row
}

// SerializeValues renders a in the order of header. Columns the model does
// not know are left empty.
func SerializeValues(a Applicant, header []string) []string {
	row := SerializeRecord(a)
	byNorm := make(map[string]string, len(row))
	for k, v := range row {
		byNorm[NormalizeHeader(k)] = v
	}
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = byNorm[NormalizeHeader(h)]
	}
	return out
}

// IsBlankRow reports a row whose every cell is empty after trimming.
func IsBlankRow(row map[string]string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
