// internal/workers/applicants/add-applicant/models.go
package addapplicant

type Input struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ChosenSchool string `json:"chosenSchool"`
	Table        string `json:"table"`
}

type Output struct {
	StudentName  string `json:"studentName"`
	Stage        string `json:"stage"`
	Duplicate    bool   `json:"duplicate"`
	RegisteredAt string `json:"registeredAt"`
}
