// Package postgres is a TabularStore that keeps each sheet as JSONB rows in
// PostgreSQL, for deployments that outgrow a shared workbook.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sheet_headers (
	sheet  TEXT PRIMARY KEY,
	header JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS sheet_rows (
	sheet     TEXT NOT NULL REFERENCES sheet_headers(sheet) ON DELETE CASCADE,
	row_index INT  NOT NULL,
	data      JSONB NOT NULL,
	PRIMARY KEY (sheet, row_index)
);`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the backing tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create sheet schema: %w", err)
	}
	return nil
}

func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sheet FROM sheet_headers ORDER BY sheet`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// ReadRows returns one Row per index from 0 to the highest stored index.
// Gaps read as blank rows so indexes stay valid for WriteRow.
func (s *Store) ReadRows(ctx context.Context, table string) ([]store.Row, error) {
	header, err := s.header(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT row_index, data FROM sheet_rows WHERE sheet = $1 ORDER BY row_index`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Row
	for rows.Next() {
		var (
			idx  int
			data []byte
		)
		if err := rows.Scan(&idx, &data); err != nil {
			return nil, err
		}
		values := map[string]string{}
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("decode row %d of %q: %w", idx, table, err)
		}
		for len(out) < idx {
			out = append(out, blankRow(header))
		}
		row := blankRow(header)
		for k, v := range values {
			row[k] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// WriteRow merges values into the stored row in one statement. Keys are
// written under the header's spelling.
func (s *Store) WriteRow(ctx context.Context, table string, rowIndex int, values store.Row) error {
	header, err := s.header(ctx, table)
	if err != nil {
		return err
	}
	data, err := json.Marshal(respell(header, values))
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sheet_rows SET data = data || $3::jsonb WHERE sheet = $1 AND row_index = $2`,
		table, rowIndex, string(data))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("row %d of %q does not exist", rowIndex, table)
	}
	return nil
}

func (s *Store) AppendRow(ctx context.Context, table string, values store.Row) error {
	header, err := s.header(ctx, table)
	if err != nil {
		return err
	}
	data, err := json.Marshal(respell(header, values))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sheet_rows (sheet, row_index, data)
		 SELECT $1, COALESCE(MAX(row_index) + 1, 0), $2::jsonb FROM sheet_rows WHERE sheet = $1`,
		table, string(data))
	return err
}

// ReplaceAll swaps header and rows inside one transaction.
func (s *Store) ReplaceAll(ctx context.Context, table string, header []string, rows [][]string) (err error) {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO sheet_headers (sheet, header) VALUES ($1, $2::jsonb)
		 ON CONFLICT (sheet) DO UPDATE SET header = EXCLUDED.header`,
		table, string(headerJSON)); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM sheet_rows WHERE sheet = $1`, table); err != nil {
		return err
	}
	for i, values := range rows {
		row := make(map[string]string, len(header))
		for c, h := range header {
			if c < len(values) {
				row[h] = values[c]
			}
		}
		data, mErr := json.Marshal(row)
		if mErr != nil {
			err = mErr
			return err
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (sheet, row_index, data) VALUES ($1, $2, $3::jsonb)`,
			table, i, string(data)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) header(ctx context.Context, table string) ([]string, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT header FROM sheet_headers WHERE sheet = $1`, table).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewTableNotFoundError(table)
	}
	if err != nil {
		return nil, err
	}
	var header []string
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decode header of %q: %w", table, err)
	}
	return header, nil
}

func blankRow(header []string) store.Row {
	row := make(store.Row, len(header))
	for _, h := range header {
		row[h] = ""
	}
	return row
}

func respell(header []string, values store.Row) store.Row {
	out := make(store.Row, len(values))
	for k, v := range values {
		h := store.HeaderKey(header, k)
		if _, seen := out[h]; seen && k != h {
			continue
		}
		out[h] = v
	}
	return out
}
