// Package cli implements the evcal command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"evcal/internal/config"
	"evcal/internal/ics"
	appLog "evcal/internal/log"
	"evcal/internal/model"
	"evcal/internal/store"
)

const (
	appName = "evcal"

	defaultConfigPath = "evcal.yaml"
)

// Version is overridden at build time via ldflags.
var Version = "0.1.0-dev"

// CLI holds shared state for all commands.
type CLI struct {
	configPath string
	verbose    bool
	now        func() time.Time
}

// New creates a CLI with default flags.
func New() *CLI {
	return &CLI{configPath: defaultConfigPath, now: time.Now}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "evcal is a calendar with side-by-side layout of overlapping events",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				appLog.SetLevel(appLog.LevelDebug)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfigPath, "path to config file (.yaml or .toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.agendaCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.exportCommand())

	return root
}

// Execute runs the CLI with the process arguments.
func Execute(ctx context.Context) error {
	return New().RootCommand().ExecuteContext(ctx)
}

func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", c.configPath, err)
	}
	if !c.verbose {
		appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	}
	appLog.Debug("config loaded",
		"path", c.configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"locale", cfg.Locale,
		"log_level", cfg.LogLevel,
		"ics_count", len(cfg.ICS),
	)
	return cfg, nil
}

// storeOptions selects what an offline command loads into the store.
type storeOptions struct {
	eventsFile string
	refresh    bool
}

func (o *storeOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.eventsFile, "events", "", "JSON file with an array of events to load")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "import configured ICS subscriptions first")
}

// buildStore assembles the event store the way the server does: demo
// events when configured, then the events file, then subscriptions.
func (c *CLI) buildStore(ctx context.Context, cfg *config.Config, opts storeOptions) (*store.Store, error) {
	st := store.New()
	loc := cfg.Location()

	if cfg.SeedSamples {
		st.Seed(store.SampleEvents(c.now().In(loc).Year(), loc))
	}
	if opts.eventsFile != "" {
		events, err := readEventsFile(opts.eventsFile)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			// Loaded events are local; only refreshes own subscription events.
			ev.SourceID = ""
			if _, err := st.Create(ev); err != nil {
				return nil, fmt.Errorf("load %s: %w", opts.eventsFile, err)
			}
		}
	}
	if opts.refresh {
		if r := newRefresher(cfg, st); r != nil {
			if _, err := r.Refresh(ctx); err != nil {
				appLog.Error("subscription refresh incomplete", err)
			}
		}
	}
	return st, nil
}

func readEventsFile(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return events, nil
}

// newRefresher returns nil when no subscription is configured.
func newRefresher(cfg *config.Config, st *store.Store) *ics.Refresher {
	if len(cfg.ICS) == 0 {
		return nil
	}
	sources := make([]ics.Source, 0, len(cfg.ICS))
	for _, s := range cfg.ICS {
		if s.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: s.ID, Name: s.Name, URL: s.URL, Color: s.Color})
	}
	return ics.NewRefresher(ics.NewFetcher(cfg.CacheDir, nil), st, sources, cfg.Location())
}

func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
