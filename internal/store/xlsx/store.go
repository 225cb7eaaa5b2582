// Package xlsx is a TabularStore over a spreadsheet workbook on disk. Each
// sheet is a table and its first row is the header.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/models"
	"visa-tracker/internal/store"

	"github.com/xuri/excelize/v2"
)

// Store serializes all workbook access and saves the file after every write.
type Store struct {
	mu   sync.Mutex
	path string
	file *excelize.File
}

// Open loads the workbook at path, creating an empty one if it does not
// exist yet.
func Open(path string) (*Store, error) {
	f, err := excelize.OpenFile(path)
	if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("create workbook %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Store{path: path, file: f}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *Store) ListTables(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.GetSheetList(), nil
}

func (s *Store) ReadRows(_ context.Context, table string) ([]store.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, data, err := s.sheet(table)
	if err != nil {
		return nil, err
	}

	rows := make([]store.Row, len(data))
	for i, cells := range data {
		row := make(store.Row, len(header))
		for c, h := range header {
			if h == "" {
				continue
			}
			if c < len(cells) {
				row[h] = cells[c]
			} else {
				row[h] = ""
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// WriteRow rewrites one data row. Columns absent from values keep their
// current cells; keys with no matching header become new columns.
func (s *Store) WriteRow(_ context.Context, table string, rowIndex int, values store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, data, err := s.sheet(table)
	if err != nil {
		return err
	}
	if rowIndex < 0 || rowIndex >= len(data) {
		return fmt.Errorf("row %d out of range for sheet %q (%d rows)", rowIndex, table, len(data))
	}

	header, err = s.extendHeader(table, header, values)
	if err != nil {
		return s.discard(err)
	}

	cells := make([]interface{}, len(header))
	current := data[rowIndex]
	for c, h := range header {
		if v, ok := models.LookupCell(values, h); ok {
			cells[c] = v
		} else if c < len(current) {
			cells[c] = current[c]
		} else {
			cells[c] = ""
		}
	}
	if err := s.setRow(table, rowIndex+2, cells); err != nil {
		return s.discard(err)
	}
	return s.file.SaveAs(s.path)
}

func (s *Store) AppendRow(_ context.Context, table string, values store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, data, err := s.sheet(table)
	if err != nil {
		return err
	}
	header, err = s.extendHeader(table, header, values)
	if err != nil {
		return s.discard(err)
	}

	cells := make([]interface{}, len(header))
	for c, h := range header {
		v, _ := models.LookupCell(values, h)
		cells[c] = v
	}
	if err := s.setRow(table, len(data)+2, cells); err != nil {
		return s.discard(err)
	}
	return s.file.SaveAs(s.path)
}

// ReplaceAll clears the sheet, creating it if needed, and writes header and
// rows. On failure the in-memory workbook is reloaded from disk, so a
// half-written sheet is never served.
func (s *Store) ReplaceAll(_ context.Context, table string, header []string, rows [][]string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if err != nil {
			err = s.discard(err)
		}
	}()

	idx, err := s.file.GetSheetIndex(table)
	if err != nil {
		return err
	}
	if idx == -1 {
		if _, err := s.file.NewSheet(table); err != nil {
			return fmt.Errorf("create sheet %q: %w", table, err)
		}
	} else {
		existing, err := s.file.GetRows(table)
		if err != nil {
			return err
		}
		for r := len(existing); r >= 1; r-- {
			if err := s.file.RemoveRow(table, r); err != nil {
				return fmt.Errorf("clear sheet %q: %w", table, err)
			}
		}
	}

	if err := s.setRow(table, 1, toCells(header)); err != nil {
		return err
	}
	for i, row := range rows {
		if err := s.setRow(table, i+2, toCells(row)); err != nil {
			return err
		}
	}
	return s.file.SaveAs(s.path)
}

// discard drops unsaved edits by reopening the workbook from disk and
// returns cause, joined with any reload failure.
func (s *Store) discard(cause error) error {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return errors.Join(cause, fmt.Errorf("reload workbook %s: %w", s.path, err))
	}
	_ = s.file.Close()
	s.file = f
	return cause
}

// sheet returns the header and data rows of table.
func (s *Store) sheet(table string) ([]string, [][]string, error) {
	idx, err := s.file.GetSheetIndex(table)
	if err != nil {
		return nil, nil, err
	}
	if idx == -1 {
		return nil, nil, apperrors.NewTableNotFoundError(table)
	}
	all, err := s.file.GetRows(table)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", table, err)
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

func (s *Store) extendHeader(table string, header []string, values store.Row) ([]string, error) {
	known := make(map[string]bool, len(header))
	for _, h := range header {
		known[models.NormalizeHeader(h)] = true
	}
	extended := header
	for k := range values {
		if !known[models.NormalizeHeader(k)] {
			extended = append(extended, k)
			known[models.NormalizeHeader(k)] = true
		}
	}
	if len(extended) == len(header) {
		return header, nil
	}
	if err := s.setRow(table, 1, toCells(extended)); err != nil {
		return nil, err
	}
	return extended, nil
}

func (s *Store) setRow(table string, sheetRow int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, sheetRow)
	if err != nil {
		return err
	}
	if err := s.file.SetSheetRow(table, cell, &cells); err != nil {
		return fmt.Errorf("write row %d of sheet %q: %w", sheetRow, table, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
