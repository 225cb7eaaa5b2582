// internal/workers/applicants/update-applicant/models.go
package updateapplicant

// Input patches one applicant. Fields are keyed by column header, e.g.
// {"Stage": "SEVIS", "Agent": "Nadia"}; header spelling is matched loosely.
type Input struct {
	StudentName string            `json:"studentName"`
	Table       string            `json:"table"`
	Fields      map[string]string `json:"fields"`
}

type Output struct {
	StudentName string `json:"studentName"`
	Table       string `json:"table"`
	Renamed     bool   `json:"renamed"`
	Stage       string `json:"stage"`
	UpdatedAt   string `json:"updatedAt"`
}
