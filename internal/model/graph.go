package model

// DailyTotals are the per-day headline numbers of a contribution.
type DailyTotals struct {
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
	Messages int     `json:"messages"`
}

// SourceContribution is one (source, model) slice of a day's usage.
type SourceContribution struct {
	Source     Source         `json:"source"`
	ModelID    string         `json:"modelId"`
	ProviderID string         `json:"providerId"`
	Tokens     TokenBreakdown `json:"tokens"`
	Cost       float64        `json:"cost"`
	Messages   int            `json:"messages"`
}

// DailyContribution is one day of the usage graph. Intensity is a 0-4
// bucket of this day's cost relative to the most expensive day in the
// same result set; it is derived per query, never stored.
type DailyContribution struct {
	Date           string               `json:"date"`
	Totals         DailyTotals          `json:"totals"`
	Intensity      int                  `json:"intensity"`
	TokenBreakdown TokenBreakdown       `json:"tokenBreakdown"`
	Sources        []SourceContribution `json:"sources"`
}

// YearSummary is a per-year rollup of the graph.
type YearSummary struct {
	Year        string  `json:"year"`
	TotalTokens int64   `json:"totalTokens"`
	TotalCost   float64 `json:"totalCost"`
	RangeStart  string  `json:"rangeStart"`
	RangeEnd    string  `json:"rangeEnd"`
}

// Summary holds whole-range statistics for the graph.
type Summary struct {
	TotalTokens        int64    `json:"totalTokens"`
	TotalCost          float64  `json:"totalCost"`
	TotalDays          int      `json:"totalDays"`  // inclusive span first..last active day
	ActiveDays         int      `json:"activeDays"` // days with at least one event
	AveragePerDay      float64  `json:"averagePerDay"`
	MaxCostInSingleDay float64  `json:"maxCostInSingleDay"`
	Sources            []string `json:"sources"`
	Models             []string `json:"models"`
}

// GraphMeta describes when and by what a graph was produced.
type GraphMeta struct {
	GeneratedAt    string `json:"generatedAt"`
	Version        string `json:"version"`
	DateRangeStart string `json:"dateRangeStart"`
	DateRangeEnd   string `json:"dateRangeEnd"`
}

// Graph is the by-day report. It doubles as the submission snapshot the
// CLI sends to the server.
type Graph struct {
	Meta          GraphMeta           `json:"meta"`
	Summary       Summary             `json:"summary"`
	Years         []YearSummary       `json:"years"`
	Contributions []DailyContribution `json:"contributions"`
}
