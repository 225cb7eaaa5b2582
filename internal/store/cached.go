// internal/store/cached.go
package store

import (
	"context"
	"encoding/json"
	"time"

	"visa-tracker/internal/cache"
	"visa-tracker/internal/common/logger"
)

const tablesKey = "tables"

func rowsKey(table string) string { return "rows:" + table }

// CachedStore memoizes ListTables and ReadRows for ttl. Every write drops the
// affected keys after the write returns, whether or not it succeeded.
type CachedStore struct {
	next   TabularStore
	cache  cache.Cache
	ttl    time.Duration
	logger logger.Logger
}

// NewCachedStore wraps next. A ttl of zero or less returns next unchanged.
func NewCachedStore(next TabularStore, c cache.Cache, ttl time.Duration, log logger.Logger) TabularStore {
	if ttl <= 0 || c == nil {
		return next
	}
	return &CachedStore{
		next:   next,
		cache:  c,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "store-cache"}),
	}
}

func (s *CachedStore) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	if s.lookup(ctx, tablesKey, &tables) {
		return tables, nil
	}

	tables, err := s.next.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, tablesKey, tables)
	return tables, nil
}

func (s *CachedStore) ReadRows(ctx context.Context, table string) ([]Row, error) {
	var rows []Row
	if s.lookup(ctx, rowsKey(table), &rows) {
		return rows, nil
	}

	rows, err := s.next.ReadRows(ctx, table)
	if err != nil {
		return nil, err
	}
	s.store(ctx, rowsKey(table), rows)
	return rows, nil
}

func (s *CachedStore) WriteRow(ctx context.Context, table string, rowIndex int, values Row) error {
	err := s.next.WriteRow(ctx, table, rowIndex, values)
	s.invalidate(ctx, rowsKey(table))
	return err
}

func (s *CachedStore) AppendRow(ctx context.Context, table string, values Row) error {
	err := s.next.AppendRow(ctx, table, values)
	s.invalidate(ctx, rowsKey(table), tablesKey)
	return err
}

func (s *CachedStore) ReplaceAll(ctx context.Context, table string, header []string, rows [][]string) error {
	err := s.next.ReplaceAll(ctx, table, header, rows)
	s.invalidate(ctx, rowsKey(table), tablesKey)
	return err
}

// lookup decodes a cached value into dst. Cache failures read as misses.
func (s *CachedStore) lookup(ctx context.Context, key string, dst interface{}) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", map[string]interface{}{"key": key, "error": err})
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("discarding undecodable cache entry", map[string]interface{}{"key": key, "error": err})
		return false
	}
	return true
}

func (s *CachedStore) store(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.Warn("cache write failed", map[string]interface{}{"key": key, "error": err})
	}
}

func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Error("cache invalidation failed", map[string]interface{}{"keys": keys, "error": err})
	}
}
