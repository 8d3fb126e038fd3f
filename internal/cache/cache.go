package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the cache interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ReportURLKey builds the namespaced key under which a resolved report URL
// is stored for a query identity (e.g. "patient:42"). Entries are written
// deliberately by the pipeline on success, never discovered by scanning.
func ReportURLKey(identity string) string {
	return "report:url:" + identity
}

// Entry is the cached record for a resolved report. Either URL (a full
// presigned URL) or ObjectKey (to be re-presigned on read) is set.
type Entry struct {
	URL       string    `json:"url,omitempty"`
	ObjectKey string    `json:"object_key,omitempty"`
	StoredAt  time.Time `json:"stored_at"`
}

// EncodeEntry serializes an entry for storage
func EncodeEntry(e Entry) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return data, nil
}

// DecodeEntry deserializes a stored entry
func DecodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return e, nil
}
