package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"weekgrid/internal/api"
	"weekgrid/internal/cache"
	"weekgrid/internal/config"
	"weekgrid/internal/fetch"
	"weekgrid/internal/ics"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/model"
	"weekgrid/internal/schedule"
)

// loadConfig reads the config file. With create set, a missing file is
// written with defaults; otherwise defaults are used in memory only.
func loadConfig(flags *rootFlags, create bool) (*config.Config, error) {
	if !create {
		if _, err := os.Stat(flags.configPath); errors.Is(err, fs.ErrNotExist) {
			appLog.Debug("config file not found, using defaults", "config_path", flags.configPath)
			return finishConfig(flags, config.DefaultConfig())
		}
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	return finishConfig(flags, cfg)
}

func finishConfig(flags *rootFlags, cfg *config.Config) (*config.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if !flags.verbose {
		appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	}
	return cfg, nil
}

// feedsFromConfig maps the ics section, skipping feeds without a URL.
func feedsFromConfig(cfg *config.Config) []ics.Feed {
	feeds := make([]ics.Feed, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.Name
		}
		if id == "" {
			id = fetch.RedactURL(c.URL)
		}
		feeds = append(feeds, ics.Feed{ID: id, URL: c.URL, Entity: c.Entity})
	}
	return feeds
}

// newLayoutCache picks Redis when configured, else an in-process LRU.
func newLayoutCache(ctx context.Context, cfg *config.Config) (*cache.LayoutCache, error) {
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	if cfg.Cache.RedisAddr != "" {
		store, err := cache.NewRedisStore(ctx, cfg.Cache.RedisAddr, ttl)
		if err != nil {
			return nil, err
		}
		appLog.Info("layout cache: redis", "addr", cfg.Cache.RedisAddr)
		return cache.New(store), nil
	}
	return cache.New(cache.NewMemoryStore(cfg.Cache.MaxEntries, ttl)), nil
}

// buildService wires sources, cache and options from cfg.
func buildService(ctx context.Context, cfg *config.Config) (*schedule.Service, error) {
	fetcher := fetch.NewFetcher(cfg.Cache.Dir, time.Duration(cfg.API.TimeoutSeconds)*time.Second)

	layoutCache, err := newLayoutCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sc := schedule.ServiceConfig{
		Getter:   fetcher,
		Feeds:    feedsFromConfig(cfg),
		Location: cfg.Location(),
		Options:  cfg.LayoutOptions(),
		Cache:    layoutCache,
	}
	if client := api.NewClient(cfg.API.BaseURL, cfg.API.Token, fetcher); client != nil {
		sc.Slots = client
	}

	appLog.Info("effective config",
		"timezone", cfg.Timezone,
		"api", cfg.API.BaseURL != "",
		"ics_count", len(sc.Feeds),
		"default_entity", cfg.DefaultEntity,
	)
	return schedule.NewService(sc), nil
}

// slotsFile is the document accepted by --input: a bare array of slots or
// {"slots": [...]}.
type slotsFile struct {
	Slots []model.Slot `json:"slots"`
}

func readSlotsFile(path string) ([]model.Slot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var slots []model.Slot
		if err := json.Unmarshal(data, &slots); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return slots, nil
	}
	var f slotsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Slots, nil
}
