package aggregator

import "github.com/spilist/tokscale/internal/model"

// FilterOptions narrows events to a date window before aggregation.
// Since and Until are inclusive YYYY-MM-DD bounds; Year keeps only dates
// in that calendar year. Empty fields are no-ops.
type FilterOptions struct {
	Since string
	Until string
	Year  string
}

// Filter returns the events whose date falls inside the window. ISO
// dates compare correctly as strings, so no time parsing is needed.
func Filter(events []model.UsageEvent, opts FilterOptions) []model.UsageEvent {
	if opts.Since == "" && opts.Until == "" && opts.Year == "" {
		return events
	}

	filtered := make([]model.UsageEvent, 0, len(events))
	for _, ev := range events {
		if opts.Since != "" && ev.Date < opts.Since {
			continue
		}
		if opts.Until != "" && ev.Date > opts.Until {
			continue
		}
		if opts.Year != "" && (len(ev.Date) < 4 || ev.Date[:4] != opts.Year) {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered
}
