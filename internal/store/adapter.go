// internal/store/adapter.go
package store

import (
	"context"
	"time"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/common/metrics"
	"visa-tracker/internal/models"
)

// Adapter loads and persists applicant records through a TabularStore. It
// holds no record state of its own; callers reload to observe what was
// written.
type Adapter struct {
	store  TabularStore
	logger logger.Logger
}

// AppendResult reports the outcome of AppendRecord.
type AppendResult struct {
	Record models.Applicant `json:"record"`
	// Duplicate is set when the name already existed in the table. The row
	// was still appended.
	Duplicate bool `json:"duplicate"`
}

func NewAdapter(store TabularStore, log logger.Logger) *Adapter {
	return &Adapter{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "store-adapter"}),
	}
}

// Tables lists the tables available in the underlying store.
func (a *Adapter) Tables(ctx context.Context) ([]string, error) {
	var tables []string
	err := a.observe("list_tables", "", func() error {
		var err error
		tables, err = a.store.ListTables(ctx)
		return err
	})
	return tables, err
}

// LoadAll reads every table in order and merges them, keeping the last
// occurrence of each StudentName at that occurrence's position. On any store
// error it returns no records at all.
func (a *Adapter) LoadAll(ctx context.Context, tables []string) ([]models.Applicant, error) {
	raw, err := a.LoadRaw(ctx, tables)
	if err != nil {
		return nil, err
	}

	deduped, dupes := DedupKeepLast(raw)
	if len(dupes) > 0 {
		warn := apperrors.NewIdentityCollisionWarning("", dupes)
		a.logger.Warn(warn.Message, map[string]interface{}{
			"code":   warn.Code,
			"names":  dupes,
			"tables": tables,
		})
	}
	return deduped, nil
}

// LoadRaw is LoadAll without the dedup step. Blank rows and rows with no
// name are still dropped.
func (a *Adapter) LoadRaw(ctx context.Context, tables []string) ([]models.Applicant, error) {
	var out []models.Applicant
	for _, table := range tables {
		rows, err := a.readRows(ctx, table)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if models.IsBlankRow(row) {
				continue
			}
			rec := models.ParseRecord(row)
			if rec.StudentName == "" {
				continue
			}
			rec.Table = table
			out = append(out, rec)
		}
	}
	return out, nil
}

// SaveRecord overwrites the row whose name matches rec. The row is located by
// rec.StudentName as it was loaded, falling back to the name recomputed from
// the name fields, so a rename is saved onto the original row. The whole
// row is written in a single call. The returned record carries the
// recomputed StudentName.
func (a *Adapter) SaveRecord(ctx context.Context, table string, rec models.Applicant) (models.Applicant, error) {
	rows, err := a.readRows(ctx, table)
	if err != nil {
		return models.Applicant{}, err
	}

	out := rec
	out.ComputeName()
	out.Table = table

	idx := findRow(rows, rec.StudentName)
	if idx < 0 && out.StudentName != rec.StudentName {
		idx = findRow(rows, out.StudentName)
	}
	if idx < 0 {
		key := rec.StudentName
		if key == "" {
			key = out.StudentName
		}
		return models.Applicant{}, apperrors.NewRecordNotFoundError(table, key)
	}

	err = a.observe("write_row", table, func() error {
		return a.store.WriteRow(ctx, table, idx, Row(models.SerializeRecord(out)))
	})
	if err != nil {
		return models.Applicant{}, err
	}

	a.logger.Info("record saved", map[string]interface{}{
		"table":       table,
		"row":         idx,
		"studentName": out.StudentName,
	})
	return out, nil
}

// AppendRecord adds rec as a new row. A name that already exists in the
// table is reported through AppendResult.Duplicate but does not block.
func (a *Adapter) AppendRecord(ctx context.Context, table string, rec models.Applicant) (AppendResult, error) {
	rec.ComputeName()
	if rec.StudentName == "" {
		return AppendResult{}, apperrors.NewInvalidInputError("first or last name is required")
	}
	rec.Table = table

	rows, err := a.readRows(ctx, table)
	if err != nil {
		return AppendResult{}, err
	}
	duplicate := findRow(rows, rec.StudentName) >= 0

	err = a.observe("append_row", table, func() error {
		return a.store.AppendRow(ctx, table, Row(models.SerializeRecord(rec)))
	})
	if err != nil {
		return AppendResult{}, err
	}

	if duplicate {
		warn := apperrors.NewIdentityCollisionWarning(table, []string{rec.StudentName})
		a.logger.Warn(warn.Message, map[string]interface{}{
			"code":        warn.Code,
			"table":       table,
			"studentName": rec.StudentName,
		})
	}
	return AppendResult{Record: rec, Duplicate: duplicate}, nil
}

// SaveBulk replaces the whole table with recs under the canonical header.
// Concurrent external edits are overwritten.
func (a *Adapter) SaveBulk(ctx context.Context, table string, recs []models.Applicant) error {
	header := models.Columns()
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, models.SerializeValues(rec, header))
	}

	err := a.observe("replace_all", table, func() error {
		return a.store.ReplaceAll(ctx, table, header, rows)
	})
	if err != nil {
		return err
	}

	a.logger.Info("table replaced", map[string]interface{}{
		"table": table,
		"rows":  len(rows),
	})
	return nil
}

func (a *Adapter) readRows(ctx context.Context, table string) ([]Row, error) {
	var rows []Row
	err := a.observe("read_rows", table, func() error {
		var err error
		rows, err = a.store.ReadRows(ctx, table)
		return err
	})
	return rows, err
}

// observe times one store call and normalizes its error. Typed errors from
// the driver (TABLE_NOT_FOUND) pass through; anything else is a transient
// store failure.
func (a *Adapter) observe(operation, table string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err == nil {
		metrics.StoreOperations.WithLabelValues(operation, "success").Inc()
		return nil
	}
	metrics.StoreOperations.WithLabelValues(operation, "failed").Inc()

	stdErr, ok := apperrors.AsStandard(err)
	if !ok {
		stdErr = apperrors.NewStoreUnavailableError(operation, table, err)
	}
	a.logger.Error("store operation failed", map[string]interface{}{
		"operation": operation,
		"table":     table,
		"code":      stdErr.Code,
		"error":     err,
	})
	return stdErr
}

// findRow returns the index of the last row whose name matches, or -1.
func findRow(rows []Row, name string) int {
	if name == "" {
		return -1
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if models.IsBlankRow(rows[i]) {
			continue
		}
		if models.ParseRecord(rows[i]).StudentName == name {
			return i
		}
	}
	return -1
}

// DedupKeepLast keeps the last occurrence of each name, in the position of
// that occurrence, and returns the names that occurred more than once.
func DedupKeepLast(recs []models.Applicant) ([]models.Applicant, []string) {
	last := make(map[string]int, len(recs))
	counts := make(map[string]int, len(recs))
	for i, r := range recs {
		last[r.StudentName] = i
		counts[r.StudentName]++
	}

	out := make([]models.Applicant, 0, len(last))
	var dupes []string
	for i, r := range recs {
		if last[r.StudentName] != i {
			continue
		}
		out = append(out, r)
		if counts[r.StudentName] > 1 {
			dupes = append(dupes, r.StudentName)
		}
	}
	return out, dupes
}
