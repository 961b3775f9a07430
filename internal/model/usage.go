package model

import "time"

// Source identifies the tool whose logs an event came from.
type Source string

const (
	SourceClaude   Source = "claude"
	SourceCodex    Source = "codex"
	SourceOpenCode Source = "opencode"
	SourceGemini   Source = "gemini"
	SourceCursor   Source = "cursor"
)

// AllSources returns every supported source.
func AllSources() []Source {
	return []Source{SourceOpenCode, SourceClaude, SourceCodex, SourceGemini, SourceCursor}
}

// LocalSources returns the sources read from files on this machine.
// Cursor is excluded: its data arrives via the usage export API.
func LocalSources() []Source {
	return []Source{SourceOpenCode, SourceClaude, SourceCodex, SourceGemini}
}

// Valid reports whether s is one of the supported sources.
func (s Source) Valid() bool {
	switch s {
	case SourceClaude, SourceCodex, SourceOpenCode, SourceGemini, SourceCursor:
		return true
	}
	return false
}

// TokenBreakdown holds per-type token counts for an event or aggregate.
type TokenBreakdown struct {
	Input      int64 `json:"input"`
	Output     int64 `json:"output"`
	CacheRead  int64 `json:"cacheRead"`
	CacheWrite int64 `json:"cacheWrite"`
	Reasoning  int64 `json:"reasoning"`
}

// Total returns the sum of all token types.
func (t TokenBreakdown) Total() int64 {
	return t.Input + t.Output + t.CacheRead + t.CacheWrite + t.Reasoning
}

// Add accumulates other into t.
func (t *TokenBreakdown) Add(other TokenBreakdown) {
	t.Input += other.Input
	t.Output += other.Output
	t.CacheRead += other.CacheRead
	t.CacheWrite += other.CacheWrite
	t.Reasoning += other.Reasoning
}

// UsageEvent is one normalized log record. Events are created once by a
// source parser and never mutated afterwards.
type UsageEvent struct {
	Source          Source         `json:"source"`
	ModelID         string         `json:"modelId"`
	ProviderID      string         `json:"providerId"`
	SessionID       string         `json:"sessionId"`
	TimestampMillis int64          `json:"timestamp"`
	Date            string         `json:"date"` // YYYY-MM-DD, local time
	Tokens          TokenBreakdown `json:"tokens"`
	// Cost is the price supplied by the source itself, or 0 when pricing
	// happens later from the pricing table.
	Cost  float64 `json:"cost"`
	Agent string  `json:"agent,omitempty"`
}

// LocalDate converts a millisecond timestamp to the calendar day it
// falls on in local time, formatted YYYY-MM-DD.
func LocalDate(millis int64) string {
	return time.UnixMilli(millis).Local().Format("2006-01-02")
}

// PricingEntry holds per-token rates for one model. Cache rates may be
// absent; absent rates price as zero.
type PricingEntry struct {
	InputCostPerToken           float64  `json:"input_cost_per_token"`
	OutputCostPerToken          float64  `json:"output_cost_per_token"`
	CacheReadInputTokenCost     *float64 `json:"cache_read_input_token_cost,omitempty"`
	CacheCreationInputTokenCost *float64 `json:"cache_creation_input_token_cost,omitempty"`
}
