package query

import (
	"testing"
	"time"

	"visa-tracker/internal/common/config"
	"visa-tracker/internal/models"

	"github.com/stretchr/testify/assert"
)

func createTestApplicant(first, last string, mutate func(a *models.Applicant)) models.Applicant {
	a := models.NewApplicant(first, last, "ELS Boston", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	if mutate != nil {
		mutate(&a)
	}
	a.ComputeName()
	return a
}

func createTestRecords() []models.Applicant {
	return []models.Applicant{
		createTestApplicant("John", "Smith", func(a *models.Applicant) {
			a.Stage = models.StageDS160
			a.Agent = "Nadia"
		}),
		createTestApplicant("Sara", "Haddad", func(a *models.Applicant) {
			a.Stage = models.StageDS160
			a.Agent = "Yassine"
			a.ChosenSchool = "Kent State University"
			a.Attempts = models.SecondTry
		}),
		createTestApplicant("Amina", "Benali", func(a *models.Applicant) {
			a.RegistrationDate = models.Date{}
		}),
		createTestApplicant("Karim", "Smithson", func(a *models.Applicant) {
			a.Stage = models.StageClients
			a.RegistrationDate = models.NewDate(time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC))
		}),
	}
}

func studentNames(recs []models.Applicant) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.StudentName
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	recs := createTestRecords()

	tests := []struct {
		name     string
		filter   Filter
		expected []string
	}{
		{name: "zero filter", filter: Filter{}, expected: []string{"John Smith", "Sara Haddad", "Amina Benali", "Karim Smithson"}},
		{name: "All everywhere", filter: Filter{Stage: All, Agent: All, School: All, Attempts: All, Month: All}, expected: []string{"John Smith", "Sara Haddad", "Amina Benali", "Karim Smithson"}},
		{name: "stage", filter: Filter{Stage: models.StageDS160}, expected: []string{"John Smith", "Sara Haddad"}},
		{name: "stage and agent", filter: Filter{Stage: models.StageDS160, Agent: "Yassine"}, expected: []string{"Sara Haddad"}},
		{name: "attempts", filter: Filter{Attempts: models.SecondTry}, expected: []string{"Sara Haddad"}},
		{name: "school", filter: Filter{School: "ELS Boston"}, expected: []string{"John Smith", "Amina Benali", "Karim Smithson"}},
		{name: "month", filter: Filter{Month: "2023-11"}, expected: []string{"Karim Smithson"}},
		{name: "invalid date bucket", filter: Filter{Month: InvalidDateKey}, expected: []string{"Amina Benali"}},
		{name: "search is case-insensitive substring", filter: Filter{Search: "SMITH"}, expected: []string{"John Smith", "Karim Smithson"}},
		{name: "search and stage", filter: Filter{Search: "smith", Stage: models.StageClients}, expected: []string{"Karim Smithson"}},
		{name: "no match", filter: Filter{Agent: "Nobody"}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, studentNames(tt.filter.Apply(recs)))
		})
	}
}

func TestFilter_OrderIndependent(t *testing.T) {
	recs := createTestRecords()
	f := Filter{Stage: models.StageDS160, Search: "a"}

	once := f.Apply(recs)
	stageOnly := Filter{Stage: models.StageDS160}.Apply(recs)
	searchThenStage := Filter{Stage: models.StageDS160}.Apply(Filter{Search: "a"}.Apply(recs))

	assert.Equal(t, studentNames(once), studentNames(searchThenStage))
	assert.Equal(t, studentNames(once), studentNames(Filter{Search: "a"}.Apply(stageOnly)))
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2024-03", MonthKey(createTestApplicant("A", "B", nil)))
	assert.Equal(t, InvalidDateKey, MonthKey(models.Applicant{}))
}

func TestOptions(t *testing.T) {
	opts := Options(createTestRecords())

	assert.Equal(t, []string{models.StagePaymentAndMail, models.StageDS160, models.StageClients}, opts.Stages)
	assert.Equal(t, []string{"Nadia", "Yassine"}, opts.Agents)
	assert.Equal(t, []string{"ELS Boston", "Kent State University"}, opts.Schools)
	assert.Equal(t, []string{models.FirstTry, models.SecondTry}, opts.Attempts)
	assert.Equal(t, []string{InvalidDateKey, "2024-03", "2023-11"}, opts.Months)
}

func TestAssignDefaultAgent(t *testing.T) {
	table := AgentTable{
		Specialties: []Specialty{
			{Agent: "Nadia", Keywords: []string{"els"}},
			{Agent: "Yassine", Keywords: []string{"university", "els"}},
		},
		Default: "Karim",
	}
	recs := []models.Applicant{
		createTestApplicant("First", "Match", func(a *models.Applicant) { a.ChosenSchool = "ELS University" }),
		createTestApplicant("Second", "Match", func(a *models.Applicant) { a.ChosenSchool = "Boston UNIVERSITY" }),
		createTestApplicant("Falls", "Back", func(a *models.Applicant) { a.ChosenSchool = "Community School" }),
		createTestApplicant("Has", "Agent", func(a *models.Applicant) { a.Agent = "Nadia" }),
		createTestApplicant("Terminal", "Stage", func(a *models.Applicant) { a.Stage = "client " }),
	}

	got := AssignDefaultAgent(recs, table)

	assert.Equal(t, []Suggestion{
		{StudentName: "First Match", ChosenSchool: "ELS University", Agent: "Nadia"},
		{StudentName: "Second Match", ChosenSchool: "Boston UNIVERSITY", Agent: "Yassine"},
		{StudentName: "Falls Back", ChosenSchool: "Community School", Agent: "Karim", Default: true},
	}, got)
	assert.Empty(t, recs[0].Agent)
}

func TestAgentTableFromConfig(t *testing.T) {
	assert.Equal(t, DefaultAgentTable, AgentTableFromConfig(config.AgentsConfig{}))

	table := AgentTableFromConfig(config.AgentsConfig{
		Specialties: []config.AgentSpecialty{{Agent: "Leila", Keywords: []string{"Harvard"}}},
	})
	assert.Equal(t, "Leila", table.Default)
	agent, matched := table.Suggest("harvard extension")
	assert.Equal(t, "Leila", agent)
	assert.True(t, matched)
}
