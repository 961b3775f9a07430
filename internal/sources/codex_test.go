package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCodexFileLastTokenUsage(t *testing.T) {
	content := `{"type":"turn_context","timestamp":"2025-01-10T09:00:00Z","payload":{"model":"gpt-5.2-codex"}}
{"type":"event_msg","timestamp":"2025-01-10T09:00:05Z","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":100,"output_tokens":40,"cached_input_tokens":30}}}}`

	events := ParseCodexFile(writeTestFile(t, "session.jsonl", content))

	require.Len(t, events, 1)
	assert.Equal(t, "gpt-5.2-codex", events[0].ModelID)
	assert.Equal(t, "openai", events[0].ProviderID)
	// cached tokens are a subset of input_tokens and must not double-count
	assert.Equal(t, int64(70), events[0].Tokens.Input)
	assert.Equal(t, int64(40), events[0].Tokens.Output)
	assert.Equal(t, int64(30), events[0].Tokens.CacheRead)
}

func TestParseCodexFileDeltaFromTotals(t *testing.T) {
	content := `{"type":"turn_context","timestamp":"2025-01-10T09:00:00Z","payload":{"model":"gpt-5.2-codex"}}
{"type":"event_msg","timestamp":"2025-01-10T09:00:05Z","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":100,"output_tokens":50,"cached_input_tokens":20}}}}
{"type":"event_msg","timestamp":"2025-01-10T09:01:05Z","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":300,"output_tokens":120,"cached_input_tokens":60}}}}`

	events := ParseCodexFile(writeTestFile(t, "session.jsonl", content))

	// the first totals entry is the baseline, only the second emits a delta
	require.Len(t, events, 1)
	assert.Equal(t, int64(160), events[0].Tokens.Input) // (300-100) - (60-20)
	assert.Equal(t, int64(70), events[0].Tokens.Output)
	assert.Equal(t, int64(40), events[0].Tokens.CacheRead)
}

func TestParseCodexFileShrinkingTotalsClampToZero(t *testing.T) {
	content := `{"type":"event_msg","timestamp":"2025-01-10T09:00:05Z","payload":{"type":"token_count","info":{"model":"gpt-5.2-codex","total_token_usage":{"input_tokens":500,"output_tokens":200,"cached_input_tokens":100}}}}
{"type":"event_msg","timestamp":"2025-01-10T09:01:05Z","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":100,"output_tokens":250,"cached_input_tokens":50}}}}`

	events := ParseCodexFile(writeTestFile(t, "session.jsonl", content))

	require.Len(t, events, 1)
	assert.Zero(t, events[0].Tokens.Input)
	assert.Equal(t, int64(50), events[0].Tokens.Output)
	assert.Zero(t, events[0].Tokens.CacheRead)
}

func TestParseCodexFileSkipsEmptyDeltas(t *testing.T) {
	content := `{"type":"event_msg","timestamp":"2025-01-10T09:00:05Z","payload":{"type":"token_count","info":{"model":"gpt-5.2-codex","total_token_usage":{"input_tokens":100,"output_tokens":50}}}}
{"type":"event_msg","timestamp":"2025-01-10T09:01:05Z","payload":{"type":"token_count","info":{"total_token_usage":{"input_tokens":100,"output_tokens":50}}}}`

	events := ParseCodexFile(writeTestFile(t, "session.jsonl", content))

	assert.Empty(t, events)
}

func TestParseCodexFileModelFallsBackToUnknown(t *testing.T) {
	content := `{"type":"event_msg","timestamp":"2025-01-10T09:00:05Z","payload":{"type":"token_count","info":{"last_token_usage":{"input_tokens":10,"output_tokens":5}}}}`

	events := ParseCodexFile(writeTestFile(t, "session.jsonl", content))

	require.Len(t, events, 1)
	assert.Equal(t, "unknown", events[0].ModelID)
}
