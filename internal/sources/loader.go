package sources

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/spilist/tokscale/internal/model"
)

// LoadOptions selects which sources to load and how.
type LoadOptions struct {
	Home    string
	Sources []model.Source
	// CursorSync refreshes the Cursor cache before it is read. Nil skips
	// the refresh; any cached CSVs are still parsed.
	CursorSync *CursorSyncClient
}

// LoadResult carries the parsed events plus non-fatal warnings from
// sources that could not be fully loaded.
type LoadResult struct {
	Events   []model.UsageEvent
	Warnings []string
}

// Load parses local session files and refreshes the Cursor usage cache
// concurrently. The two tasks fail independently: a dead Cursor API does
// not block local reporting and vice versa. Failures surface as warnings
// on the result, never as an error.
func Load(ctx context.Context, opts LoadOptions) LoadResult {
	var result LoadResult

	wantCursor := false
	var local []model.Source
	for _, source := range opts.Sources {
		if source == model.SourceCursor {
			wantCursor = true
			continue
		}
		local = append(local, source)
	}

	var localEvents []model.UsageEvent
	var syncErr error

	var g errgroup.Group
	g.Go(func() error {
		localEvents = parseLocal(opts.Home, local)
		return nil
	})
	if wantCursor && opts.CursorSync != nil {
		g.Go(func() error {
			syncErr = opts.CursorSync.Sync(ctx)
			return nil
		})
	}
	g.Wait()

	result.Events = localEvents
	if syncErr != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("cursor sync failed, reporting cached data only: %v", syncErr))
	}

	// The cache is read even when the refresh failed; stale data beats none.
	if wantCursor {
		for _, path := range Scan(opts.Home, []model.Source{model.SourceCursor})[model.SourceCursor] {
			result.Events = append(result.Events, ParseCursorFile(path)...)
		}
	}

	return result
}

func parseLocal(home string, requested []model.Source) []model.UsageEvent {
	var events []model.UsageEvent
	for source, files := range Scan(home, requested) {
		parse, ok := ParserFor(source)
		if !ok {
			continue
		}
		for _, path := range files {
			events = append(events, parse(path)...)
		}
	}
	return events
}
