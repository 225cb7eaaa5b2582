package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/models"
	"visa-tracker/internal/store"
)

func createTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestListTables(t *testing.T) {
	s, mock := createTestStore(t)
	mock.ExpectQuery(`SELECT sheet FROM sheet_headers ORDER BY sheet`).
		WillReturnRows(sqlmock.NewRows([]string{"sheet"}).AddRow("2023").AddRow("2024"))

	tables, err := s.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2023", "2024"}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadRows_FillsGaps(t *testing.T) {
	s, mock := createTestStore(t)
	mock.ExpectQuery(`SELECT header FROM sheet_headers WHERE sheet = \$1`).
		WithArgs("2024").
		WillReturnRows(sqlmock.NewRows([]string{"header"}).AddRow(`["First Name","Last Name"]`))
	mock.ExpectQuery(`SELECT row_index, data FROM sheet_rows WHERE sheet = \$1 ORDER BY row_index`).
		WithArgs("2024").
		WillReturnRows(sqlmock.NewRows([]string{"row_index", "data"}).
			AddRow(0, `{"First Name":"John","Last Name":"Smith"}`).
			AddRow(2, `{"First Name":"Sara"}`))

	rows, err := s.ReadRows(context.Background(), "2024")
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "Smith", rows[0]["Last Name"])
	assert.Equal(t, store.Row{"First Name": "", "Last Name": ""}, rows[1])
	assert.Equal(t, store.Row{"First Name": "Sara", "Last Name": ""}, rows[2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadRows_UnknownTable(t *testing.T) {
	s, mock := createTestStore(t)
	mock.ExpectQuery(`SELECT header FROM sheet_headers WHERE sheet = \$1`).
		WithArgs("2019").
		WillReturnRows(sqlmock.NewRows([]string{"header"}))

	_, err := s.ReadRows(context.Background(), "2019")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTableNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteRow(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  bool
	}{
		{name: "updated", affected: 1},
		{name: "missing row", affected: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := createTestStore(t)
			mock.ExpectQuery(`SELECT header FROM sheet_headers WHERE sheet = \$1`).
				WithArgs("2024").
				WillReturnRows(sqlmock.NewRows([]string{"header"}).AddRow(`["First Name","Stage"]`))
			mock.ExpectExec(`UPDATE sheet_rows SET data = data \|\| \$3::jsonb WHERE sheet = \$1 AND row_index = \$2`).
				WithArgs("2024", 4, `{"Stage":"SEVIS"}`).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := s.WriteRow(context.Background(), "2024", 4, store.Row{"Stage": "SEVIS"})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWriteRow_UsesHeaderSpelling(t *testing.T) {
	s, mock := createTestStore(t)
	mock.ExpectQuery(`SELECT header FROM sheet_headers WHERE sheet = \$1`).
		WithArgs("2024").
		WillReturnRows(sqlmock.NewRows([]string{"header"}).AddRow(`["first name","STAGE"]`))
	mock.ExpectExec(`UPDATE sheet_rows`).
		WithArgs("2024", 0, `{"STAGE":"SEVIS","first name":"John"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.WriteRow(context.Background(), "2024", 0, store.Row{"First Name": "John", "Stage": "SEVIS"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadRows_CollidingSpellings(t *testing.T) {
	for i := 0; i < 20; i++ {
		s, mock := createTestStore(t)
		mock.ExpectQuery(`SELECT header FROM sheet_headers WHERE sheet = \$1`).
			WithArgs("2024").
			WillReturnRows(sqlmock.NewRows([]string{"header"}).AddRow(`["first name","Last Name"]`))
		mock.ExpectQuery(`SELECT row_index, data FROM sheet_rows WHERE sheet = \$1 ORDER BY row_index`).
			WithArgs("2024").
			WillReturnRows(sqlmock.NewRows([]string{"row_index", "data"}).
				AddRow(0, `{"first name":"","First Name":"John","Last Name":"Smith"}`))

		rows, err := s.ReadRows(context.Background(), "2024")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "John Smith", models.ParseRecord(rows[0]).StudentName)
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestAppendRow(t *testing.T) {
	s, mock := createTestStore(t)
	mock.ExpectQuery(`SELECT header FROM sheet_headers WHERE sheet = \$1`).
		WithArgs("2024").
		WillReturnRows(sqlmock.NewRows([]string{"header"}).AddRow(`["First Name"]`))
	mock.ExpectExec(`INSERT INTO sheet_rows`).
		WithArgs("2024", `{"First Name":"Amina"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.AppendRow(context.Background(), "2024", store.Row{"First Name": "Amina"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAll_Commits(t *testing.T) {
	s, mock := createTestStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sheet_headers`).
		WithArgs("2024", `["First Name","Last Name"]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM sheet_rows WHERE sheet = \$1`).
		WithArgs("2024").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(`INSERT INTO sheet_rows \(sheet, row_index, data\) VALUES`).
		WithArgs("2024", 0, `{"First Name":"A","Last Name":"B"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.ReplaceAll(context.Background(), "2024",
		[]string{"First Name", "Last Name"}, [][]string{{"A", "B"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceAll_RollsBackOnFailure(t *testing.T) {
	s, mock := createTestStore(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sheet_headers`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM sheet_rows`).
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := s.ReplaceAll(context.Background(), "2024", []string{"First Name"}, [][]string{{"A"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
