package documents

import (
	"context"
	"time"

	"visa-tracker/internal/cache"
)

// CachedFileStore memoizes successful FindFolder lookups. Misses are not
// cached so a folder created elsewhere shows up on the next lookup.
type CachedFileStore struct {
	FileStore
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedFileStore(next FileStore, c cache.Cache, ttl time.Duration) FileStore {
	if ttl <= 0 || c == nil {
		return next
	}
	return &CachedFileStore{FileStore: next, cache: c, ttl: ttl}
}

func folderKey(name, parentID string) string {
	return "folder:" + parentID + "|" + name
}

func (s *CachedFileStore) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	key := folderKey(name, parentID)
	if id, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return string(id), true, nil
	}

	id, found, err := s.FileStore.FindFolder(ctx, name, parentID)
	if err != nil || !found {
		return id, found, err
	}
	_ = s.cache.Set(ctx, key, []byte(id), s.ttl)
	return id, true, nil
}

func (s *CachedFileStore) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	key := folderKey(name, parentID)
	id, err := s.FileStore.CreateFolder(ctx, name, parentID)
	_ = s.cache.Delete(ctx, key)
	if err != nil {
		return "", err
	}
	return id, nil
}
