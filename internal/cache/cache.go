// Package cache keeps computed week layouts keyed by week and entity.
//
// Entries remember the hash of the events they were computed from, so a
// hit is only served while the upstream timetable is unchanged. Storage is
// pluggable: an in-process expiring LRU or a shared Redis instance.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	appLog "weekgrid/internal/log"
	"weekgrid/internal/timegrid"
)

const keyPrefix = "weekgrid:layout:"

// Store is a byte-oriented key/value backend.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// Entry is one cached layout.
type Entry struct {
	Hash       string          `json:"hash"`
	Layout     timegrid.Layout `json:"layout"`
	ComputedAt time.Time       `json:"computed_at"`
}

// LayoutCache stores layouts under "week + entity".
type LayoutCache struct {
	store Store
}

// New wraps a store. A nil store disables caching.
func New(store Store) *LayoutCache {
	return &LayoutCache{store: store}
}

// Key returns the invalidation key of an entity's week.
func Key(entity, week string) string {
	return keyPrefix + entity + "@" + week
}

// HashEvents fingerprints the inputs of a layout computation.
func HashEvents(events []timegrid.Event, opts timegrid.Options) string {
	data, _ := json.Marshal(struct {
		Events  []timegrid.Event `json:"events"`
		Options timegrid.Options `json:"options"`
	}{events, opts})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached layout if it was computed from hash.
func (c *LayoutCache) Lookup(ctx context.Context, entity, week, hash string) (Entry, bool) {
	if c == nil || c.store == nil {
		return Entry{}, false
	}
	key := Key(entity, week)
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		appLog.Error("cache get failed", err, "key", key)
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		appLog.Error("cache entry unreadable", err, "key", key)
		return Entry{}, false
	}
	if e.Hash != hash {
		appLog.Debug("cache entry stale", "key", key)
		return Entry{}, false
	}
	return e, true
}

// Put stores a layout computed from hash.
func (c *LayoutCache) Put(ctx context.Context, entity, week, hash string, layout timegrid.Layout) error {
	if c == nil || c.store == nil {
		return nil
	}
	data, err := json.Marshal(Entry{Hash: hash, Layout: layout, ComputedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("cache: encode layout: %w", err)
	}
	return c.store.Set(ctx, Key(entity, week), data)
}

// Invalidate drops every cached week of entity.
func (c *LayoutCache) Invalidate(ctx context.Context, entity string) (int, error) {
	if c == nil || c.store == nil {
		return 0, nil
	}
	return c.store.DeletePrefix(ctx, keyPrefix+entity+"@")
}

// Purge drops every cached layout.
func (c *LayoutCache) Purge(ctx context.Context) (int, error) {
	if c == nil || c.store == nil {
		return 0, nil
	}
	return c.store.DeletePrefix(ctx, keyPrefix)
}

func (c *LayoutCache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}
