package config

import (
	"os"
	"path/filepath"
	"testing"

	"weekgrid/internal/timegrid"
)

func TestLoad_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.PaddingMinutes != 30 {
		t.Errorf("padding = %d, want 30", cfg.Layout.PaddingMinutes)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen: ":9090"
week_start: friday
default_entity: group:cs-101
layout:
  default_axis_max: "18:00"
  body_size: 900
ics:
  - id: cs101
    url: https://example.edu/cs101.ics
    entity: group:cs-101
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.WeekStart != "monday" {
		t.Errorf("unknown week_start should fall back to monday, got %q", cfg.WeekStart)
	}
	if cfg.Layout.PaddingMinutes != 30 {
		t.Errorf("absent padding should keep default, got %d", cfg.Layout.PaddingMinutes)
	}
	if len(cfg.ICS) != 1 || cfg.ICS[0].Entity != "group:cs-101" {
		t.Errorf("ics = %+v", cfg.ICS)
	}

	opts := cfg.LayoutOptions()
	want := timegrid.Options{
		PaddingMinutes: 30,
		DefaultAxisMin: 480,
		DefaultAxisMax: 1080,
		BodySize:       900,
	}
	if opts != want {
		t.Errorf("LayoutOptions() = %+v, want %+v", opts, want)
	}
}

func TestLoad_ExplicitZeroPadding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("layout:\n  padding_minutes: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.PaddingMinutes != 0 {
		t.Errorf("padding = %d, want 0", cfg.Layout.PaddingMinutes)
	}
}

func TestSaveLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.DefaultEntity = "room:B-204"
	cfg.Layout.DefaultAxisMax = "24:00"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DefaultEntity != "room:B-204" {
		t.Errorf("default entity = %q", got.DefaultEntity)
	}
	if got.BasicAuth == nil || got.BasicAuth.Password != "secret" {
		t.Errorf("basic auth = %+v", got.BasicAuth)
	}
	if got.LayoutOptions().DefaultAxisMax != timegrid.MinutesPerDay {
		t.Errorf("24:00 should map to the end of the day, got %d", got.LayoutOptions().DefaultAxisMax)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.Layout.DefaultAxisMin = "19:00"
	cfg.Layout.DefaultAxisMax = "09:00"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for inverted default axis")
	}

	cfg = DefaultConfig()
	cfg.Timezone = "Mars/Olympus_Mons"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestSave_Errors(t *testing.T) {
	if err := Save("", DefaultConfig()); err == nil {
		t.Error("expected error for empty path")
	}
	if err := Save(filepath.Join(t.TempDir(), "c.yaml"), nil); err == nil {
		t.Error("expected error for nil config")
	}
}
