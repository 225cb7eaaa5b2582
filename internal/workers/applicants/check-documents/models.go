// internal/workers/applicants/check-documents/models.go
package checkdocuments

import "visa-tracker/internal/documents"

type Input struct {
	StudentName string `json:"studentName"`
}

type Output struct {
	StudentName string           `json:"studentName"`
	Complete    bool             `json:"complete"`
	Present     []string         `json:"present"`
	Missing     []string         `json:"missing"`
	Unknown     []string         `json:"unknown"`
	Items       []documents.Item `json:"items"`
}
