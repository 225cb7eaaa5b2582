package store

import (
	"context"
	"errors"
	"testing"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/logger"
	"visa-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test doubles
// ==========================

type MockTabularStore struct {
	mock.Mock
}

func (m *MockTabularStore) ListTables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tables, _ := args.Get(0).([]string)
	return tables, args.Error(1)
}

func (m *MockTabularStore) ReadRows(ctx context.Context, table string) ([]Row, error) {
	args := m.Called(ctx, table)
	rows, _ := args.Get(0).([]Row)
	return rows, args.Error(1)
}

func (m *MockTabularStore) WriteRow(ctx context.Context, table string, rowIndex int, values Row) error {
	return m.Called(ctx, table, rowIndex, values).Error(0)
}

func (m *MockTabularStore) AppendRow(ctx context.Context, table string, values Row) error {
	return m.Called(ctx, table, values).Error(0)
}

func (m *MockTabularStore) ReplaceAll(ctx context.Context, table string, header []string, rows [][]string) error {
	return m.Called(ctx, table, header, rows).Error(0)
}

// memoryStore is an in-memory TabularStore keyed by table name.
type memoryStore struct {
	tables map[string][]Row
	order  []string
	writes int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tables: make(map[string][]Row)}
}

func (s *memoryStore) put(table string, rows ...Row) {
	if _, ok := s.tables[table]; !ok {
		s.order = append(s.order, table)
	}
	s.tables[table] = append(s.tables[table], rows...)
}

func (s *memoryStore) ListTables(context.Context) ([]string, error) {
	return append([]string(nil), s.order...), nil
}

func (s *memoryStore) ReadRows(_ context.Context, table string) ([]Row, error) {
	rows, ok := s.tables[table]
	if !ok {
		return nil, apperrors.NewTableNotFoundError(table)
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		cp := Row{}
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out, nil
}

func (s *memoryStore) WriteRow(_ context.Context, table string, rowIndex int, values Row) error {
	s.writes++
	s.tables[table][rowIndex] = values
	return nil
}

func (s *memoryStore) AppendRow(_ context.Context, table string, values Row) error {
	s.writes++
	s.put(table, values)
	return nil
}

func (s *memoryStore) ReplaceAll(_ context.Context, table string, header []string, rows [][]string) error {
	s.writes++
	out := make([]Row, 0, len(rows))
	for _, values := range rows {
		r := Row{}
		for i, h := range header {
			r[h] = values[i]
		}
		out = append(out, r)
	}
	if _, ok := s.tables[table]; !ok {
		s.order = append(s.order, table)
	}
	s.tables[table] = out
	return nil
}

// ==========================
// Test Helper Functions
// ==========================

func createTestRow(first, last string, extra map[string]string) Row {
	r := Row{
		models.ColFirstName: first,
		models.ColLastName:  last,
		models.ColStage:     models.StagePaymentAndMail,
	}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

func createTestAdapter(t *testing.T, s TabularStore) *Adapter {
	return NewAdapter(s, logger.NewTestLogger(t))
}

// ==========================
// LoadAll / LoadRaw
// ==========================

func TestLoadAll_LaterTableWins(t *testing.T) {
	s := newMemoryStore()
	s.put("2023",
		createTestRow("John", "Smith", map[string]string{models.ColEmail: "old@example.com"}),
		createTestRow("Sara", "Haddad", nil),
	)
	s.put("2024",
		createTestRow("John", "Smith", map[string]string{models.ColEmail: "new@example.com"}),
	)
	adapter := createTestAdapter(t, s)

	recs, err := adapter.LoadAll(context.Background(), []string{"2023", "2024"})
	require.NoError(t, err)

	require.Len(t, recs, 2)
	assert.Equal(t, "Sara Haddad", recs[0].StudentName)
	assert.Equal(t, "John Smith", recs[1].StudentName)
	assert.Equal(t, "new@example.com", recs[1].Email)
}

func TestLoadRaw_KeepsDuplicates(t *testing.T) {
	s := newMemoryStore()
	s.put("2023", createTestRow("John", "Smith", map[string]string{models.ColEmail: "a@example.com"}))
	s.put("2024", createTestRow("John", "Smith", map[string]string{models.ColEmail: "b@example.com"}))
	adapter := createTestAdapter(t, s)

	recs, err := adapter.LoadRaw(context.Background(), []string{"2023", "2024"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestLoadAll_DropsBlankAndNamelessRows(t *testing.T) {
	s := newMemoryStore()
	s.put("2024",
		Row{models.ColFirstName: " ", models.ColLastName: ""},
		Row{models.ColFirstName: "", models.ColLastName: "", models.ColNotes: "stray note"},
		createTestRow("Amina", "Benali", nil),
	)
	adapter := createTestAdapter(t, s)

	recs, err := adapter.LoadAll(context.Background(), []string{"2024"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Amina Benali", recs[0].StudentName)
}

func TestLoadAll_StoreFailureReturnsNothing(t *testing.T) {
	m := new(MockTabularStore)
	m.On("ReadRows", mock.Anything, "2023").Return([]Row{createTestRow("A", "B", nil)}, nil)
	m.On("ReadRows", mock.Anything, "2024").Return(nil, errors.New("quota exceeded"))
	adapter := createTestAdapter(t, m)

	recs, err := adapter.LoadAll(context.Background(), []string{"2023", "2024"})

	require.Error(t, err)
	assert.Nil(t, recs)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStoreUnavailable))
	assert.Contains(t, err.Error(), "read_rows")
	assert.Contains(t, err.Error(), "2024")
}

func TestLoadAll_UnknownTable(t *testing.T) {
	adapter := createTestAdapter(t, newMemoryStore())

	_, err := adapter.LoadAll(context.Background(), []string{"missing"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTableNotFound))
}

// ==========================
// SaveRecord
// ==========================

func TestSaveRecord_NotFoundPerformsNoWrite(t *testing.T) {
	m := new(MockTabularStore)
	m.On("ReadRows", mock.Anything, "2024").Return([]Row{createTestRow("Sara", "Haddad", nil)}, nil)
	adapter := createTestAdapter(t, m)

	rec := models.NewApplicant("John", "Smith", "ELS", testNow)
	_, err := adapter.SaveRecord(context.Background(), "2024", rec)

	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRecordNotFound))
	m.AssertNotCalled(t, "WriteRow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveRecord_WritesWholeRowOnce(t *testing.T) {
	m := new(MockTabularStore)
	m.On("ReadRows", mock.Anything, "2024").Return([]Row{
		createTestRow("Sara", "Haddad", nil),
		createTestRow("John", "Smith", nil),
	}, nil)
	m.On("WriteRow", mock.Anything, "2024", 1, mock.MatchedBy(func(r Row) bool {
		return r[models.ColStage] == models.StageDS160 &&
			r[models.ColEmbassyInterviewDate] == "15/01/2024 00:00:00" &&
			len(r) == len(models.Columns())
	})).Return(nil).Once()
	adapter := createTestAdapter(t, m)

	rec := models.ParseRecord(createTestRow("John", "Smith", map[string]string{
		models.ColEmbassyInterviewDate: "15/01/2024",
	}))
	rec.Stage = models.StageDS160

	saved, err := adapter.SaveRecord(context.Background(), "2024", rec)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", saved.StudentName)
	m.AssertNumberOfCalls(t, "WriteRow", 1)
	m.AssertExpectations(t)
}

func TestSaveRecord_RenameLocatesOriginalRow(t *testing.T) {
	s := newMemoryStore()
	s.put("2024", createTestRow("Jon", "Smith", nil))
	adapter := createTestAdapter(t, s)

	recs, err := adapter.LoadAll(context.Background(), []string{"2024"})
	require.NoError(t, err)

	rec := recs[0]
	rec.FirstName = "John"

	saved, err := adapter.SaveRecord(context.Background(), "2024", rec)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", saved.StudentName)
	assert.Equal(t, "John", s.tables["2024"][0][models.ColFirstName])
	assert.Equal(t, 1, s.writes)
}

func TestSaveRecord_WriteFailureIsTransient(t *testing.T) {
	m := new(MockTabularStore)
	m.On("ReadRows", mock.Anything, "2024").Return([]Row{createTestRow("John", "Smith", nil)}, nil)
	m.On("WriteRow", mock.Anything, "2024", 0, mock.Anything).Return(errors.New("503 backend error"))
	adapter := createTestAdapter(t, m)

	rec := models.ParseRecord(createTestRow("John", "Smith", nil))
	_, err := adapter.SaveRecord(context.Background(), "2024", rec)

	require.Error(t, err)
	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeStoreUnavailable, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, 0, apperrors.GetRetryCount(stdErr.Code))
}

// ==========================
// AppendRecord / SaveBulk
// ==========================

func TestAppendRecord_FlagsDuplicateButAppends(t *testing.T) {
	s := newMemoryStore()
	s.put("2024", createTestRow("John", "Smith", nil))
	adapter := createTestAdapter(t, s)

	res, err := adapter.AppendRecord(context.Background(), "2024", models.NewApplicant("John", "Smith", "ELS", testNow))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Len(t, s.tables["2024"], 2)

	res, err = adapter.AppendRecord(context.Background(), "2024", models.NewApplicant("Sara", "Haddad", "ELS", testNow))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, "Sara Haddad", res.Record.StudentName)
	assert.Len(t, s.tables["2024"], 3)
}

func TestAppendRecord_RequiresName(t *testing.T) {
	m := new(MockTabularStore)
	adapter := createTestAdapter(t, m)

	_, err := adapter.AppendRecord(context.Background(), "2024", models.Applicant{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidInput))
	m.AssertNotCalled(t, "AppendRow", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveBulk_SingleReplaceWithCanonicalHeader(t *testing.T) {
	m := new(MockTabularStore)
	m.On("ReplaceAll", mock.Anything, "2024", models.Columns(), mock.MatchedBy(func(rows [][]string) bool {
		return len(rows) == 2 && len(rows[0]) == len(models.Columns())
	})).Return(nil).Once()
	adapter := createTestAdapter(t, m)

	err := adapter.SaveBulk(context.Background(), "2024", []models.Applicant{
		models.NewApplicant("A", "One", "ELS", testNow),
		models.NewApplicant("B", "Two", "ELS", testNow),
	})
	require.NoError(t, err)
	m.AssertExpectations(t)
}

// Two tables "A" and "B" sharing one name: load keeps B's copy, saving the
// edited copy back into B then reloading yields the edit, and table A is
// untouched.
func TestEndToEnd_TwoTables(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore()
	s.put("A", createTestRow("John", "Smith", map[string]string{models.ColAgent: "Nadia"}))
	s.put("B", createTestRow("John", "Smith", map[string]string{models.ColAgent: "Yassine"}))
	adapter := createTestAdapter(t, s)

	recs, err := adapter.LoadAll(ctx, []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Yassine", recs[0].Agent)

	rec := recs[0]
	rec.Stage = models.StageSEVIS
	_, err = adapter.SaveRecord(ctx, "B", rec)
	require.NoError(t, err)

	recs, err = adapter.LoadAll(ctx, []string{"A", "B"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.StageSEVIS, recs[0].Stage)
	assert.Equal(t, models.StagePaymentAndMail, s.tables["A"][0][models.ColStage])
}
