package cli

import (
	"encoding/json"
	"fmt"
	neturl "net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"evcal/internal/calendar"
	"evcal/internal/capture"
	"evcal/internal/config"
	"evcal/internal/ics"
	"evcal/internal/layout"
	"evcal/internal/locale"
	appLog "evcal/internal/log"
	"evcal/internal/model"
	"evcal/internal/web"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		listen   string
		snapshot bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar UI and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			st, err := c.buildStore(ctx, cfg, storeOptions{})
			if err != nil {
				return err
			}

			opts := []web.Option{}
			if r := newRefresher(cfg, st); r != nil {
				go func() {
					if _, err := r.Refresh(ctx); err != nil {
						appLog.Error("initial subscription refresh incomplete", err)
					}
				}()
				if err := r.Start(ctx, cfg.RefreshCron); err != nil {
					return err
				}
				opts = append(opts, web.WithRefresher(r))
			}
			if snapshot {
				capturer := newCapturer(cfg)
				o := capturer.Options()
				appLog.Info("snapshot capture enabled",
					"output", cfg.Snapshot.Output,
					"viewport", fmt.Sprintf("%dx%d", o.Width, o.Height),
					"timeout", o.Timeout,
				)
				opts = append(opts, web.WithCapturer(capturer))
			}

			appLog.Info("evcal starting",
				"version", Version,
				"listen", cfg.Listen,
				"events", st.Len(),
				"subscriptions", len(cfg.ICS),
			)
			return web.NewServer(cfg, st, opts...).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "enable POST /api/snapshot (needs Chromium)")
	return cmd
}

func newCapturer(cfg *config.Config) *capture.Capturer {
	return capture.New(capture.Options{
		Width:   cfg.Snapshot.Width,
		Height:  cfg.Snapshot.Height,
		Timeout: time.Duration(cfg.Snapshot.TimeoutSeconds) * time.Second,
		Settle:  300 * time.Millisecond,
	})
}

// parseDay parses a yyyy-MM-dd flag in loc; empty means today.
func (c *CLI) parseDay(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return calendar.Today(c.now().In(loc)), nil
	}
	t, err := time.ParseInLocation(model.DateLayout, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want yyyy-MM-dd", v)
	}
	return t, nil
}

func (c *CLI) layoutCommand() *cobra.Command {
	var (
		date       string
		week       bool
		asJSON     bool
		clustering string
		sizing     string
		so         storeOptions
	)
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the column layout of a day or week",
		Long:  "Runs the overlap layout over the events of a day (or of each day of its week) and prints each event's column, column count and box.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if clustering != "" {
				cfg.Layout.Clustering = clustering
			}
			if sizing != "" {
				cfg.Layout.Sizing = sizing
			}
			cfg.Normalize()

			loc := cfg.Location()
			day, err := c.parseDay(date, loc)
			if err != nil {
				return err
			}
			st, err := c.buildStore(cmd.Context(), cfg, so)
			if err != nil {
				return err
			}

			days := []time.Time{day}
			if week {
				days = calendar.WeekDays(day, calendar.ParseWeekStart(cfg.WeekStart))
			}
			events := st.Between(days[0], days[len(days)-1].AddDate(0, 0, 1))
			cols := calendar.DayColumns(events, days, cfg.LayoutOptions())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(layoutJSON(cols, cfg.Grid()))
			}

			lc, _ := locale.Lookup(cfg.Locale)
			for _, col := range cols {
				fmt.Fprintln(out, styleTitle.Render(lc.Format(col.Date, "EEEE, MMMM d, yyyy")))
				for _, ev := range col.AllDay {
					fmt.Fprintf(out, "  %s %s %s\n", colorDot(ev.Color), styleDim.Render(lc.AllDay), ev.Title)
				}
				if len(col.Timed) == 0 {
					fmt.Fprintln(out, styleDim.Render("  "+lc.NoEvents))
					continue
				}
				fmt.Fprintln(out, renderTable(
					[]string{"", "Title", "Time", "Column", "Box"},
					layoutRows(col.Timed, cfg.Grid(), lc),
				))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&date, "date", "d", "", "day to lay out (yyyy-MM-dd, default today)")
	cmd.Flags().BoolVarP(&week, "week", "w", false, "lay out the whole week containing --date")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().StringVar(&clustering, "clustering", "", "override clustering (greedy|connected)")
	cmd.Flags().StringVar(&sizing, "sizing", "", "override sizing (cluster|local)")
	so.bind(cmd)
	return cmd
}

func layoutRows(ps []layout.Positioned, grid layout.Grid, lc locale.Locale) [][]string {
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		box := layout.Geometry(p, grid)
		rows = append(rows, []string{
			colorDot(p.Event.Color),
			p.Event.Title,
			lc.Format(p.Event.Start, "HH:mm") + "-" + lc.Format(p.Event.End, "HH:mm"),
			strconv.Itoa(p.Column+1) + "/" + strconv.Itoa(p.ColumnCount),
			fmt.Sprintf("top %.0fpx h %.0fpx left %.1f%% w %.1f%%", box.TopPx, box.HeightPx, box.LeftPct, box.WidthPct),
		})
	}
	return rows
}

type layoutDayJSON struct {
	Date   string            `json:"date"`
	AllDay []model.Event     `json:"all_day"`
	Events []layoutEventJSON `json:"events"`
}

type layoutEventJSON struct {
	layout.Positioned
	Box layout.Box `json:"box"`
}

func layoutJSON(cols []calendar.DayColumn, grid layout.Grid) []layoutDayJSON {
	out := make([]layoutDayJSON, 0, len(cols))
	for _, col := range cols {
		d := layoutDayJSON{
			Date:   col.Date.Format(model.DateLayout),
			AllDay: col.AllDay,
			Events: make([]layoutEventJSON, 0, len(col.Timed)),
		}
		if d.AllDay == nil {
			d.AllDay = []model.Event{}
		}
		for _, p := range col.Timed {
			d.Events = append(d.Events, layoutEventJSON{Positioned: p, Box: layout.Geometry(p, grid)})
		}
		out = append(out, d)
	}
	return out
}

func (c *CLI) agendaCommand() *cobra.Command {
	var (
		from   string
		months int
		so     storeOptions
	)
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print upcoming events grouped by day",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			loc := cfg.Location()
			start, err := c.parseDay(from, loc)
			if err != nil {
				return err
			}
			if months <= 0 {
				months = cfg.ScheduleMonths
			}
			st, err := c.buildStore(cmd.Context(), cfg, so)
			if err != nil {
				return err
			}

			lc, _ := locale.Lookup(cfg.Locale)
			out := cmd.OutOrStdout()
			days := calendar.Schedule(st.List(), start, months)
			if len(days) == 0 {
				fmt.Fprintln(out, styleDim.Render(lc.NoEvents))
				return nil
			}

			var rows [][]string
			for _, d := range days {
				label := lc.Format(d.Date, "EEE d MMM yyyy")
				for i, ev := range d.Events {
					if i > 0 {
						label = ""
					}
					when := lc.AllDay
					if !ev.AllDay {
						when = lc.Format(ev.Start, "HH:mm") + "-" + lc.Format(ev.End, "HH:mm")
					}
					rows = append(rows, []string{label, colorDot(ev.Color), when, ev.Title})
				}
			}
			fmt.Fprintln(out, styleTitle.Render(calendar.RangeText(calendar.ViewSchedule, start, calendar.ParseWeekStart(cfg.WeekStart), lc)))
			fmt.Fprintln(out, renderTable([]string{"Date", "", "Time", "Title"}, rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day (yyyy-MM-dd, default today)")
	cmd.Flags().IntVar(&months, "months", 0, "months to cover (default from config)")
	so.bind(cmd)
	return cmd
}

func (c *CLI) snapshotCommand() *cobra.Command {
	var (
		url  string
		out  string
		view string
		date string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture a running calendar page to PNG with headless Chromium",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Snapshot.Output
			}
			target := web.SnapshotTarget(cfg, snapshotQuery(view, date))
			if url != "" {
				target = capture.Target{URL: url}
			}
			if err := newCapturer(cfg).CaptureToFile(cmd.Context(), target, out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "page to capture (default snapshot.url, then the local /calendar)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path (default from config)")
	cmd.Flags().StringVar(&view, "view", "", "calendar view (month|week|day|schedule)")
	cmd.Flags().StringVar(&date, "date", "", "calendar date (yyyy-MM-dd)")
	return cmd
}

// snapshotQuery builds the /calendar query for view and date.
func snapshotQuery(view, date string) string {
	q := neturl.Values{}
	if view != "" {
		q.Set("view", view)
	}
	if date != "" {
		q.Set("date", date)
	}
	return q.Encode()
}

func (c *CLI) exportCommand() *cobra.Command {
	var (
		out  string
		name string
		so   storeOptions
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all events as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			st, err := c.buildStore(cmd.Context(), cfg, so)
			if err != nil {
				return err
			}
			body := ics.Export(st.List(), name, c.now())
			return writeOutput(cmd.OutOrStdout(), out, []byte(body))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output path, - for stdout")
	cmd.Flags().StringVar(&name, "name", appName, "calendar name (X-WR-CALNAME)")
	so.bind(cmd)
	return cmd
}
