package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"weekgrid/internal/capture"
	"weekgrid/internal/config"
	appLog "weekgrid/internal/log"
	"weekgrid/internal/refresh"
	"weekgrid/internal/schedule"
	"weekgrid/internal/termview"
	"weekgrid/internal/timegrid"
	"weekgrid/internal/web"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the week grid over HTTP and refresh it on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(flags, true)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if err := refresh.ValidateSchedule(cfg.RefreshCron); err != nil {
				return err
			}

			svc, err := buildService(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Cache().Close()

			job := refresh.NewJob(svc, cfg.DefaultEntity, capture.FromConfig(cfg.Capture))
			go func() {
				if err := refresh.Run(ctx, cfg.RefreshCron, job); err != nil {
					appLog.Error("refresh scheduler exited", err)
				}
			}()

			appLog.Info("weekgrid starting", "version", version, "listen", cfg.Listen)
			err = web.StartServer(ctx, cfg, svc, job)
			appLog.Info("weekgrid exiting")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}

// targetFlags select whose week to show.
type targetFlags struct {
	entity string
	week   string
	input  string
}

func (t *targetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.entity, "entity", "e", "", "timetable owner, e.g. group:cs-101 (default from config)")
	cmd.Flags().StringVarP(&t.week, "week", "w", "", "ISO week, e.g. 2025-W11 (default current week)")
	cmd.Flags().StringVarP(&t.input, "input", "i", "", "lay out slots from a JSON file instead of fetching")
}

func (t *targetFlags) resolve(cfg *config.Config) (schedule.Entity, schedule.Week, error) {
	raw := t.entity
	if raw == "" {
		raw = cfg.DefaultEntity
	}
	week := schedule.WeekOf(time.Now().In(cfg.Location()))
	if t.week != "" {
		w, err := schedule.ParseWeek(t.week)
		if err != nil {
			return schedule.Entity{}, week, err
		}
		week = w
	}
	if t.input != "" && raw == "" {
		return schedule.Entity{}, week, nil
	}
	entity, err := schedule.ParseEntity(raw)
	return entity, week, err
}

// computeLayout lays out either the --input file or the fetched week.
func computeLayout(ctx context.Context, flags *rootFlags, t *targetFlags) (*config.Config, timegrid.Layout, error) {
	cfg, err := loadConfig(flags, false)
	if err != nil {
		return nil, timegrid.Layout{}, err
	}

	if t.input != "" {
		slots, err := readSlotsFile(t.input)
		if err != nil {
			return nil, timegrid.Layout{}, err
		}
		layout, err := timegrid.LayoutWeek(schedule.FromSlots("file", slots), cfg.LayoutOptions())
		return cfg, layout, err
	}

	entity, week, err := t.resolve(cfg)
	if err != nil {
		return nil, timegrid.Layout{}, err
	}
	svc, err := buildService(ctx, cfg)
	if err != nil {
		return nil, timegrid.Layout{}, err
	}
	defer svc.Cache().Close()

	layout, err := svc.Layout(ctx, entity, week)
	return cfg, layout, err
}

func newLayoutCmd(flags *rootFlags) *cobra.Command {
	var t targetFlags

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the computed week layout as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, layout, err := computeLayout(cmd.Context(), flags, &t)
			if err != nil {
				return err
			}
			return writeLayoutJSON(cmd.OutOrStdout(), layout)
		},
	}
	t.register(cmd)
	return cmd
}

func writeLayoutJSON(w io.Writer, layout timegrid.Layout) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(layout)
}

func newShowCmd(flags *rootFlags) *cobra.Command {
	var (
		t     targetFlags
		rows  int
		width int
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Draw the week grid in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, layout, err := computeLayout(cmd.Context(), flags, &t)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), termview.Render(layout, termview.Options{
				ColumnWidth: width,
				Rows:        rows,
				WeekStart:   cfg.WeekStart,
			}))
			return err
		},
	}
	t.register(cmd)
	cmd.Flags().IntVar(&rows, "rows", 24, "grid body height in lines")
	cmd.Flags().IntVar(&width, "width", 16, "day column width in cells")
	return cmd
}

func newCaptureCmd(flags *rootFlags) *cobra.Command {
	var (
		t      targetFlags
		url    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot the /calendar page of a running server to PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags, false)
			if err != nil {
				return err
			}
			entity, week, err := t.resolve(cfg)
			if err != nil {
				return err
			}

			opts := capture.FromConfig(cfg.Capture)
			if opts.URL == "" {
				opts.URL = "http://" + cfg.Listen + "/calendar"
			}
			if url != "" {
				opts.URL = url
			}
			if output != "" {
				opts.OutputPath = output
			}
			if opts, err = opts.ForWeek(entity.String(), week.String()); err != nil {
				return err
			}

			if err := capture.CalendarPNG(cmd.Context(), opts); err != nil {
				return err
			}
			appLog.Info("preview written", "path", opts.OutputPath, "week", week.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&t.entity, "entity", "e", "", "timetable owner (default from config)")
	cmd.Flags().StringVarP(&t.week, "week", "w", "", "ISO week (default current week)")
	cmd.Flags().StringVar(&url, "url", "", "calendar page URL (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG output path (default from config)")
	return cmd
}
