package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/models"
	"visa-tracker/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func createTestWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracker.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "2024"))
	require.NoError(t, f.SetSheetRow("2024", "A1", &[]interface{}{"First Name", "Last Name", "Stage", "Agent"}))
	require.NoError(t, f.SetSheetRow("2024", "A2", &[]interface{}{"John", "Smith", "SEVIS", "Nadia"}))
	require.NoError(t, f.SetSheetRow("2024", "A4", &[]interface{}{"Sara", "Haddad", "DS-160"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestReadRows_KeepsBlankRowPositions(t *testing.T) {
	s, err := Open(createTestWorkbook(t))
	require.NoError(t, err)
	defer s.Close()

	rows, err := s.ReadRows(context.Background(), "2024")
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "John", rows[0]["First Name"])
	assert.True(t, models.IsBlankRow(rows[1]))
	assert.Equal(t, "Sara", rows[2]["First Name"])
	assert.Equal(t, "", rows[2]["Agent"])
}

func TestReadRows_UnknownSheet(t *testing.T) {
	s, err := Open(createTestWorkbook(t))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadRows(context.Background(), "2019")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTableNotFound))
}

func TestWriteRow_PersistsAndExtendsHeader(t *testing.T) {
	path := createTestWorkbook(t)
	s, err := Open(path)
	require.NoError(t, err)

	err = s.WriteRow(context.Background(), "2024", 2, store.Row{
		"stage": "SEVIS",
		"Note":  "called embassy",
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.ReadRows(context.Background(), "2024")
	require.NoError(t, err)
	assert.Equal(t, "Sara", rows[2]["First Name"])
	assert.Equal(t, "SEVIS", rows[2]["Stage"])
	assert.Equal(t, "called embassy", rows[2]["Note"])
	assert.Equal(t, "", rows[0]["Note"])
}

func TestWriteRow_OutOfRange(t *testing.T) {
	s, err := Open(createTestWorkbook(t))
	require.NoError(t, err)
	defer s.Close()

	assert.Error(t, s.WriteRow(context.Background(), "2024", 10, store.Row{"Stage": "X"}))
}

func TestAppendRow(t *testing.T) {
	s, err := Open(createTestWorkbook(t))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.AppendRow(ctx, "2024", store.Row{"First Name": "Amina", "Last Name": "Benali"}))

	rows, err := s.ReadRows(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Amina", rows[3]["First Name"])
}

func TestReplaceAll_NewAndExistingSheets(t *testing.T) {
	s, err := Open(createTestWorkbook(t))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	header := []string{"First Name", "Last Name"}
	require.NoError(t, s.ReplaceAll(ctx, "2024", header, [][]string{{"Only", "One"}}))
	require.NoError(t, s.ReplaceAll(ctx, "2025", header, [][]string{{"A", "B"}, {"C", "D"}}))

	rows, err := s.ReadRows(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Only", rows[0]["First Name"])
	_, hasStage := rows[0]["Stage"]
	assert.False(t, hasStage)

	rows, err = s.ReadRows(ctx, "2025")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	tables, err := s.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024", "2025"}, tables)
}

func TestReplaceAll_FailureKeepsSavedWorkbook(t *testing.T) {
	s, err := Open(createTestWorkbook(t))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	tooWide := make([]string, excelize.MaxColumns+1)
	header := []string{"First Name", "Last Name"}

	err = s.ReplaceAll(ctx, "2024", header, [][]string{{"Only", "One"}, tooWide})
	require.Error(t, err)
	err = s.ReplaceAll(ctx, "2026", header, [][]string{tooWide})
	require.Error(t, err)

	rows, err := s.ReadRows(ctx, "2024")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "John", rows[0]["First Name"])
	assert.Equal(t, "SEVIS", rows[0]["Stage"])
	assert.Equal(t, "Haddad", rows[2]["Last Name"])

	tables, err := s.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024"}, tables)

	// the reloaded workbook still accepts writes
	require.NoError(t, s.WriteRow(ctx, "2024", 0, store.Row{"Stage": "CLIENTS"}))
	rows, err = s.ReadRows(ctx, "2024")
	require.NoError(t, err)
	assert.Equal(t, "CLIENTS", rows[0]["Stage"])
}

func TestAdapterOverWorkbook(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "fresh.xlsx"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, "2024", models.Columns(), nil))

	var _ store.TabularStore = s
	rows, err := s.ReadRows(ctx, "2024")
	require.NoError(t, err)
	assert.Empty(t, rows)
}
