package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "visa-tracker/internal/common/errors"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "rows:2024", []byte("payload"), time.Minute))

	val, ok, err := m.Get(ctx, "rows:2024")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "payload", string(val))

	now = now.Add(time.Minute)
	_, ok, err = m.Get(ctx, "rows:2024")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ZeroTTLStoresNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))

	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemory_Delete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, m.Set(ctx, "b", []byte("2"), time.Hour))

	require.NoError(t, m.Delete(ctx, "a", "missing"))

	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	src := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", src, time.Hour))
	src[0] = 'z'

	val, _, _ := m.Get(ctx, "k")
	val[1] = 'z'

	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var c Cache = Noop{}

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))
	_, ok, err := c.Get(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestRedis_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "vt:")

	mock.ExpectGet("vt:tables").SetVal(`["2023","2024"]`)

	val, ok, err := c.Get(context.Background(), "tables")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["2023","2024"]`, string(val))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_Miss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "vt:")

	mock.ExpectGet("vt:tables").RedisNil()

	val, ok, err := c.Get(context.Background(), "tables")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "vt:")

	mock.ExpectGet("vt:tables").SetErr(errors.New("connection refused"))

	_, ok, err := c.Get(context.Background(), "tables")
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCacheFailure))
}

func TestRedis_SetAndDelete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "vt:")

	mock.ExpectSet("vt:rows:2024", "[]", 5*time.Minute).SetVal("OK")
	mock.ExpectDel("vt:rows:2024", "vt:tables").SetVal(2)

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "rows:2024", []byte("[]"), 5*time.Minute))
	require.NoError(t, c.Delete(ctx, "rows:2024", "tables"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedis_ZeroTTLSkipsWrite(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedis(db, "vt:")

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}
