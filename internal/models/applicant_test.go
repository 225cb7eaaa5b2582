package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestRow() map[string]string {
	return map[string]string{
		ColFirstName:            "  Amina ",
		ColLastName:             "Benali",
		ColAge:                  "21",
		ColChosenSchool:         "ELS Language Centers",
		ColSchoolEntryDate:      "01/04/2024",
		ColEmbassyInterviewDate: "15/01/2024 09:30:00",
		ColRegistrationDate:     "03/11/2023 14:05:10",
		ColSchoolPaid:           "yes",
		ColSEVISPaid:            " no ",
		ColApplicationPaid:      "",
		ColStage:                " DS-160 ",
		ColAgent:                "Yassine",
		ColAttempts:             FirstTry,
		ColVisaResult:           "",
		"Unrelated Column":      "ignored",
	}
}

// ==========================
// ParseRecord
// ==========================

func TestParseRecord_NormalizesFields(t *testing.T) {
	a := ParseRecord(createTestRow())

	assert.Equal(t, "Amina Benali", a.StudentName)
	assert.Equal(t, "Amina", a.FirstName)
	assert.Equal(t, "DS-160", a.Stage)
	assert.Equal(t, Yes, a.SchoolPaid)
	assert.Equal(t, No, a.SEVISPaid)
	assert.Equal(t, YesNo(""), a.ApplicationPaid)

	require.True(t, a.SchoolEntryDate.Valid)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), a.SchoolEntryDate.Time)
	require.True(t, a.EmbassyInterviewDate.Valid)
	assert.Equal(t, time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC), a.EmbassyInterviewDate.Time)

	age, ok := a.AgeYears()
	assert.True(t, ok)
	assert.Equal(t, 21, age)
}

func TestParseRecord_HeaderSpellingIsTolerated(t *testing.T) {
	a := ParseRecord(map[string]string{
		"first  name": "John",
		"LAST NAME":   "Smith",
		"stage":       "SEVIS",
	})

	assert.Equal(t, "John Smith", a.StudentName)
	assert.Equal(t, "SEVIS", a.Stage)
}

func TestParseRecord_CollidingSpellings(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]string
		want string
	}{
		{
			name: "exact spelling wins over blank variant",
			row:  map[string]string{"First Name": "John", "first name": "", "Last Name": "Smith"},
			want: "John Smith",
		},
		{
			name: "exact spelling wins over filled variant",
			row:  map[string]string{"First Name": "John", "FIRST NAME": "Jon", "Last Name": "Smith"},
			want: "John Smith",
		},
		{
			name: "first non-empty variant in sorted order",
			row:  map[string]string{"first name": "", "FIRST NAME": "John", "first  name": "Jon", "Last Name": "Smith"},
			want: "John Smith",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				require.Equal(t, tt.want, ParseRecord(tt.row).StudentName)
			}
		})
	}
}

func TestParseRecord_BadValuesAreSoft(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "garbage", value: "not a date"},
		{name: "month first", value: "12/31/2024"},
		{name: "empty", value: ""},
		{name: "sentinel", value: "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ParseRecord(map[string]string{
				ColFirstName:            "A",
				ColLastName:             "B",
				ColEmbassyInterviewDate: tt.value,
				ColAge:                  "twenty",
			})

			assert.False(t, a.EmbassyInterviewDate.Valid)
			_, ok := DaysUntil(a.EmbassyInterviewDate, time.Now())
			assert.False(t, ok)
			_, ok = a.AgeYears()
			assert.False(t, ok)
			assert.Equal(t, "Not set", a.Summarize(time.Now()).InterviewLabel)
		})
	}
}

func TestSerializeRecord_WireFormat(t *testing.T) {
	a := ParseRecord(createTestRow())
	row := SerializeRecord(a)

	assert.Equal(t, "01/04/2024 00:00:00", row[ColSchoolEntryDate])
	assert.Equal(t, "15/01/2024 09:30:00", row[ColEmbassyInterviewDate])
	assert.Equal(t, "", row[ColUSEntryDate])
	assert.Equal(t, "YES", row[ColSchoolPaid])
	assert.Equal(t, "NO", row[ColSEVISPaid])
	assert.NotContains(t, row, "Student Name")
	assert.Len(t, row, len(Columns()))
}

func TestSerializeValues_FollowsHeaderOrder(t *testing.T) {
	a := NewApplicant("John", "Smith", "Kaplan", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	values := SerializeValues(a, []string{"stage", "Extra", ColFirstName, ColRegistrationDate})

	assert.Equal(t, []string{StagePaymentAndMail, "", "John", "02/01/2024 03:04:05"}, values)
}

func TestIsBlankRow(t *testing.T) {
	assert.True(t, IsBlankRow(map[string]string{"a": " ", "b": ""}))
	assert.True(t, IsBlankRow(map[string]string{}))
	assert.False(t, IsBlankRow(map[string]string{"a": "x"}))
}

// ==========================
// Derivations
// ==========================

func TestNewApplicant_Defaults(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	a := NewApplicant(" John ", "Smith", "ELS", now)

	assert.Equal(t, "John Smith", a.StudentName)
	assert.Equal(t, StagePaymentAndMail, a.Stage)
	assert.Equal(t, FirstTry, a.Attempts)
	assert.Equal(t, No, a.SchoolPaid)
	assert.Equal(t, No, a.SEVISPaid)
	assert.Equal(t, No, a.ApplicationPaid)
	assert.Equal(t, No, a.InterviewPrepDone)
	assert.Equal(t, NewDate(now), a.RegistrationDate)
}

func TestProgressFraction(t *testing.T) {
	tests := []struct {
		stage    string
		expected float64
	}{
		{stage: StagePaymentAndMail, expected: 1.0 / 8},
		{stage: StageDS160, expected: 5.0 / 8},
		{stage: StageInterviewPrep, expected: 6.0 / 8},
		{stage: StageClients, expected: 1.0},
		{stage: "clients", expected: 1.0 / 8},
		{stage: "UNKNOWN", expected: 1.0 / 8},
		{stage: "", expected: 1.0 / 8},
	}

	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			got := ProgressFraction(tt.stage, Stages)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.Greater(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}

	assert.Equal(t, 0.0, ProgressFraction("X", nil))
}

func TestVisaStatusLabel(t *testing.T) {
	assert.Equal(t, "Approved", VisaStatusLabel("Approved"))
	assert.Equal(t, "Denied", VisaStatusLabel("Denied"))
	assert.Equal(t, "Not our school partner", VisaStatusLabel("Not our school partner"))
	assert.Equal(t, "Unknown", VisaStatusLabel(""))
	assert.Equal(t, "Unknown", VisaStatusLabel("approved"))
	assert.Equal(t, "Unknown", VisaStatusLabel("Pending"))
}

func TestIsTerminalStage(t *testing.T) {
	assert.True(t, IsTerminalStage("CLIENTS"))
	assert.True(t, IsTerminalStage(" client "))
	assert.True(t, IsTerminalStage("Clients"))
	assert.False(t, IsTerminalStage("SEVIS"))
	assert.False(t, IsTerminalStage(""))
}

func TestParseYesNo(t *testing.T) {
	assert.Equal(t, Yes, ParseYesNo("Yes"))
	assert.Equal(t, Yes, ParseYesNo(" TRUE"))
	assert.Equal(t, No, ParseYesNo("non"))
	assert.Equal(t, No, ParseYesNo("0"))
	assert.Equal(t, YesNo(""), ParseYesNo("  "))
	assert.Equal(t, YesNo("PARTIAL"), ParseYesNo("partial"))
}

func TestSummarize(t *testing.T) {
	now := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	a := ParseRecord(createTestRow())

	s := a.Summarize(now)

	require.NotNil(t, s.DaysUntilInterview)
	assert.Equal(t, 14, *s.DaysUntilInterview)
	assert.Equal(t, "15/01/2024", s.InterviewLabel)
	assert.Equal(t, "01/04/2024", s.EntryLabel)
	assert.Equal(t, "Unknown", s.VisaLabel)
	assert.Equal(t, 4, s.StageIndex)
}
