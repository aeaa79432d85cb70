package cache

import (
	"context"
	"path"
	"testing"
	"time"

	"weekgrid/internal/timegrid"
)

func sampleEvents() []timegrid.Event {
	return []timegrid.Event{
		{ID: "a", Day: 1, Range: timegrid.ParseRange("09:00", "10:00")},
		{ID: "b", Day: 1, Range: timegrid.ParseRange("09:30", "11:00")},
	}
}

func TestLayoutCache_HitAndStale(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore(8, time.Minute))

	events := sampleEvents()
	opts := timegrid.DefaultOptions()
	layout, err := timegrid.LayoutWeek(events, opts)
	if err != nil {
		t.Fatalf("LayoutWeek: %v", err)
	}
	hash := HashEvents(events, opts)

	if _, ok := c.Lookup(ctx, "group:a1", "2025-W11", hash); ok {
		t.Fatal("empty cache should miss")
	}
	if err := c.Put(ctx, "group:a1", "2025-W11", hash, layout); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := c.Lookup(ctx, "group:a1", "2025-W11", hash)
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got.Layout.Placements) != 2 || got.Layout.AxisMin != layout.AxisMin {
		t.Errorf("cached layout = %+v", got.Layout)
	}

	events[1].Range.End = 690
	if _, ok := c.Lookup(ctx, "group:a1", "2025-W11", HashEvents(events, opts)); ok {
		t.Error("changed events must miss")
	}
	if _, ok := c.Lookup(ctx, "group:a1", "2025-W12", hash); ok {
		t.Error("other week must miss")
	}
}

func TestHashEvents_DependsOnOptions(t *testing.T) {
	events := sampleEvents()
	a := HashEvents(events, timegrid.DefaultOptions())
	if a != HashEvents(sampleEvents(), timegrid.DefaultOptions()) {
		t.Error("hash is not deterministic")
	}
	opts := timegrid.DefaultOptions()
	opts.PaddingMinutes = 0
	if a == HashEvents(events, opts) {
		t.Error("options must change the hash")
	}
}

func TestLayoutCache_InvalidateAndPurge(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(8, 0)
	c := New(store)

	for _, key := range [][2]string{
		{"group:a1", "2025-W10"},
		{"group:a1", "2025-W11"},
		{"room:B-204", "2025-W11"},
	} {
		if err := c.Put(ctx, key[0], key[1], "h", timegrid.Layout{}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	n, err := c.Invalidate(ctx, "group:a1")
	if err != nil || n != 2 {
		t.Fatalf("Invalidate = %d, %v; want 2", n, err)
	}
	if _, ok := c.Lookup(ctx, "room:B-204", "2025-W11", "h"); !ok {
		t.Error("other entity must survive Invalidate")
	}

	n, err = c.Purge(ctx)
	if err != nil || n != 1 || store.Len() != 0 {
		t.Errorf("Purge = %d, %v, len=%d", n, err, store.Len())
	}
}

func TestMemoryStore_Evicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2, 0)
	for _, k := range []string{"a", "b", "c"} {
		_ = s.Set(ctx, k, []byte(k))
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Error("oldest entry should be evicted")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *LayoutCache
	ctx := context.Background()
	if err := c.Put(ctx, "e", "w", "h", timegrid.Layout{}); err != nil {
		t.Errorf("Put on nil cache: %v", err)
	}
	if _, ok := c.Lookup(ctx, "e", "w", "h"); ok {
		t.Error("nil cache must miss")
	}
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		entity string
		match  []string
		skip   []string
	}{
		{"room[1]", []string{"room[1]"}, []string{"room1"}},
		{"*", []string{"*"}, []string{"cs", "room1"}},
		{"g?", []string{"g?"}, []string{"g1"}},
		{`a\b`, []string{`a\b`}, []string{"ab"}},
		{"plain", []string{"plain"}, []string{"plainer"}},
	}
	for _, tt := range tests {
		t.Run(tt.entity, func(t *testing.T) {
			pattern := escapeGlob(keyPrefix+tt.entity+"@") + "*"
			for _, e := range tt.match {
				if ok, err := path.Match(pattern, Key(e, "2025-W11")); err != nil || !ok {
					t.Errorf("pattern %q should match entity %q (err %v)", pattern, e, err)
				}
			}
			for _, e := range tt.skip {
				if ok, _ := path.Match(pattern, Key(e, "2025-W11")); ok {
					t.Errorf("pattern %q matched entity %q", pattern, e)
				}
			}
		})
	}
}
