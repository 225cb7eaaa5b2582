// Package memory is a TabularStore held in process memory. It backs the
// "memory" store driver used for local runs and as the store in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/store"
)

type table struct {
	header []string
	rows   []store.Row
}

type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
	order  []string
}

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// Seed creates or replaces a table with the given rows. The header is the
// union of the row keys in first-seen order.
func (s *Store) Seed(name string, rows ...store.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ensure(name)
	t.header = nil
	t.rows = nil
	for _, r := range rows {
		for k := range r {
			if !contains(t.header, k) {
				t.header = append(t.header, k)
			}
		}
		t.rows = append(t.rows, clone(r))
	}
}

func (s *Store) ListTables(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

func (s *Store) ReadRows(_ context.Context, name string) ([]store.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[name]
	if !ok {
		return nil, apperrors.NewTableNotFoundError(name)
	}
	out := make([]store.Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = clone(r)
	}
	return out, nil
}

// WriteRow merges values into the row; cells not in values are kept.
func (s *Store) WriteRow(_ context.Context, name string, rowIndex int, values store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return apperrors.NewTableNotFoundError(name)
	}
	if rowIndex < 0 || rowIndex >= len(t.rows) {
		return fmt.Errorf("row %d out of range for table %q", rowIndex, name)
	}
	for k, v := range values {
		k = store.HeaderKey(t.header, k)
		t.rows[rowIndex][k] = v
		if !contains(t.header, k) {
			t.header = append(t.header, k)
		}
	}
	return nil
}

func (s *Store) AppendRow(_ context.Context, name string, values store.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		return apperrors.NewTableNotFoundError(name)
	}
	row := make(store.Row, len(values))
	for k, v := range values {
		k = store.HeaderKey(t.header, k)
		row[k] = v
		if !contains(t.header, k) {
			t.header = append(t.header, k)
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

func (s *Store) ReplaceAll(_ context.Context, name string, header []string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ensure(name)
	t.header = append([]string(nil), header...)
	t.rows = make([]store.Row, 0, len(rows))
	for _, values := range rows {
		r := make(store.Row, len(header))
		for i, h := range header {
			if i < len(values) {
				r[h] = values[i]
			} else {
				r[h] = ""
			}
		}
		t.rows = append(t.rows, r)
	}
	return nil
}

func (s *Store) ensure(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{}
		s.tables[name] = t
		s.order = append(s.order, name)
	}
	return t
}

func clone(r store.Row) store.Row {
	out := make(store.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
