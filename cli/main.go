package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/spilist/tokscale/cli/internal/output"
	"github.com/spilist/tokscale/internal/aggregator"
	"github.com/spilist/tokscale/internal/config"
	"github.com/spilist/tokscale/internal/model"
	"github.com/spilist/tokscale/internal/pricing"
	"github.com/spilist/tokscale/internal/sources"
)

const version = "0.2.0"

var rootCmd = &cobra.Command{
	Use:     "tokscale",
	Short:   "Token usage overview for AI coding tools",
	Long:    "tokscale aggregates token usage and cost across Claude Code, Codex, OpenCode, Gemini and Cursor.",
	Version: version,
}

// Flags shared by the reporting commands
type reportFlags struct {
	since   string
	until   string
	year    string
	sources []string
	jsonOut bool
	compact bool
	offline bool
}

var flags reportFlags

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.since, "since", "", "only include days on or after this date (YYYY-MM-DD)")
	pf.StringVar(&flags.until, "until", "", "only include days on or before this date (YYYY-MM-DD)")
	pf.StringVar(&flags.year, "year", "", "only include days in this year (YYYY)")
	pf.StringSliceVar(&flags.sources, "source", nil, "limit to specific sources (claude, codex, opencode, gemini, cursor)")
	pf.BoolVar(&flags.jsonOut, "json", false, "output as JSON")
	pf.BoolVarP(&flags.compact, "compact", "c", false, "force compact table output")
	pf.BoolVar(&flags.offline, "offline", false, "use embedded pricing data (no network)")
}

// loadArgs captures everything a load needs. It doubles as the wire
// format for the worker subprocess.
type loadArgs struct {
	Sources            []model.Source `json:"sources"`
	Since              string         `json:"since,omitempty"`
	Until              string         `json:"until,omitempty"`
	Year               string         `json:"year,omitempty"`
	Offline            bool           `json:"offline,omitempty"`
	CursorSessionToken string         `json:"cursorSessionToken,omitempty"`
}

// argsFromFlags resolves the report flags and config into loadArgs.
func argsFromFlags(cfg *config.Config) (loadArgs, error) {
	names := flags.sources
	if len(names) == 0 {
		names = cfg.Sources
	}

	requested := model.AllSources()
	if len(names) > 0 {
		requested = requested[:0]
		for _, name := range names {
			s := model.Source(name)
			if !s.Valid() {
				return loadArgs{}, fmt.Errorf("unknown source %q", name)
			}
			requested = append(requested, s)
		}
	}

	return loadArgs{
		Sources:            requested,
		Since:              flags.since,
		Until:              flags.until,
		Year:               flags.year,
		Offline:            flags.offline,
		CursorSessionToken: cfg.CursorSessionToken,
	}, nil
}

// loadPricedEvents parses the requested sources, prices the events,
// and applies the date filters. Returns load warnings alongside.
func loadPricedEvents(ctx context.Context, args loadArgs) ([]model.UsageEvent, []string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, err
	}

	opts := sources.LoadOptions{Home: home, Sources: args.Sources}
	if args.CursorSessionToken != "" && wantsSource(args.Sources, model.SourceCursor) {
		opts.CursorSync = sources.NewCursorSyncClient(args.CursorSessionToken, sources.CursorCacheDir(home))
	}

	result := sources.Load(ctx, opts)

	var table pricing.Table
	if args.Offline {
		table = pricing.Embedded()
	} else {
		table = pricing.Fetch(ctx)
	}
	events := pricing.Price(result.Events, table)

	events = aggregator.Filter(events, aggregator.FilterOptions{
		Since: args.Since,
		Until: args.Until,
		Year:  args.Year,
	})
	sort.Slice(events, func(i, j int) bool {
		return events[i].TimestampMillis < events[j].TimestampMillis
	})
	return events, result.Warnings, nil
}

// loadEvents is the in-process load used by the lighter report commands.
func loadEvents(ctx context.Context) ([]model.UsageEvent, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	args, err := argsFromFlags(cfg)
	if err != nil {
		return nil, err
	}

	events, warnings, err := loadPricedEvents(ctx, args)
	if err != nil {
		return nil, err
	}
	output.PrintWarnings(warnings)
	return events, nil
}

func wantsSource(requested []model.Source, want model.Source) bool {
	for _, s := range requested {
		if s == want {
			return true
		}
	}
	return false
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
