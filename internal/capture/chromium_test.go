package capture

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"weekgrid/internal/config"
)

func TestCalendarPNG_RequiresTargets(t *testing.T) {
	if err := CalendarPNG(context.Background(), Options{OutputPath: "x.png"}); err == nil || !strings.Contains(err.Error(), "URL") {
		t.Errorf("err = %v, want URL error", err)
	}
	if err := CalendarPNG(context.Background(), Options{URL: "http://localhost/calendar"}); err == nil || !strings.Contains(err.Error(), "OutputPath") {
		t.Errorf("err = %v, want OutputPath error", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o, err := FromConfig(config.CaptureConfig{URL: "http://localhost/calendar", OutputPath: "p.png"}).withDefaults()
	if err != nil {
		t.Fatal(err)
	}
	if o.Width != DefaultWidth || o.Height != DefaultHeight || o.Timeout != DefaultTimeout {
		t.Errorf("defaults = %+v", o)
	}
}

func TestForWeek(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/calendar?theme=print"}
	got, err := o.ForWeek("group:cs-101", "2025-W11")
	if err != nil {
		t.Fatal(err)
	}
	want := "http://127.0.0.1:8080/calendar?entity=group%3Acs-101&theme=print&week=2025-W11"
	if got.URL != want {
		t.Errorf("URL = %q, want %q", got.URL, want)
	}
	if o.URL == got.URL {
		t.Error("ForWeek must not modify the receiver")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preview.png")
	if err := writeFileAtomic(path, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := writeFileAtomic(path, []byte("two")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "two" {
		t.Errorf("content = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("leftover temp files: %d entries", len(entries))
	}
}
