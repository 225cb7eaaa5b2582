// Package store bridges the row-oriented tabular store and the typed
// applicant model. The Adapter is the only component that turns raw rows
// into models.Applicant values and back.
package store

import (
	"context"

	"visa-tracker/internal/models"
)

// Row is one data row keyed by header text. Cell values are always strings.
type Row map[string]string

// TabularStore is the remote spreadsheet capability the adapter depends on.
// Row indexes are 0-based over data rows (the header is not counted) and
// include blank rows, so an index from ReadRows is valid for WriteRow.
type TabularStore interface {
	ListTables(ctx context.Context) ([]string, error)
	ReadRows(ctx context.Context, table string) ([]Row, error)
	WriteRow(ctx context.Context, table string, rowIndex int, values Row) error
	AppendRow(ctx context.Context, table string, values Row) error
	ReplaceAll(ctx context.Context, table string, header []string, rows [][]string) error
}

// HeaderKey returns the spelling header already uses for key, or key itself
// when no header normalizes to the same text.
func HeaderKey(header []string, key string) string {
	want := models.NormalizeHeader(key)
	for _, h := range header {
		if h == key {
			return h
		}
	}
	for _, h := range header {
		if models.NormalizeHeader(h) == want {
			return h
		}
	}
	return key
}
