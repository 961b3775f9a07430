package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseClaudeFileDeduplicatesRetries(t *testing.T) {
	content := `{"type":"assistant","timestamp":"2024-12-01T10:00:00.000Z","requestId":"req_001","message":{"id":"msg_001","model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":50}}}
{"type":"assistant","timestamp":"2024-12-01T10:00:01.000Z","requestId":"req_001","message":{"id":"msg_001","model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":50}}}
{"type":"assistant","timestamp":"2024-12-01T10:00:02.000Z","requestId":"req_002","message":{"id":"msg_002","model":"claude-sonnet-4-5","usage":{"input_tokens":200,"output_tokens":100}}}`

	events := ParseClaudeFile(writeTestFile(t, "conversation.jsonl", content))

	require.Len(t, events, 2)
	assert.Equal(t, int64(100), events[0].Tokens.Input)
	assert.Equal(t, int64(200), events[1].Tokens.Input)
}

func TestParseClaudeFileSameMessageDifferentRequest(t *testing.T) {
	content := `{"type":"assistant","timestamp":"2024-12-01T10:00:00.000Z","requestId":"req_001","message":{"id":"msg_001","model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":50}}}
{"type":"assistant","timestamp":"2024-12-01T10:00:01.000Z","requestId":"req_002","message":{"id":"msg_001","model":"claude-sonnet-4-5","usage":{"input_tokens":150,"output_tokens":75}}}`

	events := ParseClaudeFile(writeTestFile(t, "conversation.jsonl", content))

	assert.Len(t, events, 2, "a retried request id differs, so both count")
}

func TestParseClaudeFileWithoutDedupFields(t *testing.T) {
	content := `{"type":"assistant","timestamp":"2024-12-01T10:00:00.000Z","message":{"model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":50}}}
{"type":"assistant","timestamp":"2024-12-01T10:00:01.000Z","message":{"model":"claude-sonnet-4-5","usage":{"input_tokens":200,"output_tokens":100}}}`

	events := ParseClaudeFile(writeTestFile(t, "conversation.jsonl", content))

	assert.Len(t, events, 2)
}

func TestParseClaudeFileSkipsNonAssistant(t *testing.T) {
	content := `{"type":"user","timestamp":"2024-12-01T10:00:00.000Z","message":{"content":"hello"}}
not even json
{"type":"assistant","timestamp":"2024-12-01T10:00:01.000Z","requestId":"req_001","message":{"id":"msg_001","model":"claude-sonnet-4-5","usage":{"input_tokens":100,"output_tokens":50}}}`

	events := ParseClaudeFile(writeTestFile(t, "conversation.jsonl", content))

	require.Len(t, events, 1)
	assert.Equal(t, "claude-sonnet-4-5", events[0].ModelID)
	assert.Equal(t, "anthropic", events[0].ProviderID)
	assert.Equal(t, "conversation", events[0].SessionID)
}

func TestParseClaudeFileTokenBreakdown(t *testing.T) {
	content := `{"type":"assistant","timestamp":"2024-12-01T10:00:00.000Z","requestId":"req_001","message":{"id":"msg_001","model":"claude-sonnet-4-5","usage":{"input_tokens":1000,"output_tokens":500,"cache_read_input_tokens":200,"cache_creation_input_tokens":100}}}`

	events := ParseClaudeFile(writeTestFile(t, "conversation.jsonl", content))

	require.Len(t, events, 1)
	tokens := events[0].Tokens
	assert.Equal(t, int64(1000), tokens.Input)
	assert.Equal(t, int64(500), tokens.Output)
	assert.Equal(t, int64(200), tokens.CacheRead)
	assert.Equal(t, int64(100), tokens.CacheWrite)
	assert.Zero(t, tokens.Reasoning)
	assert.NotEmpty(t, events[0].Date)
}

func TestParseClaudeFileMissingPath(t *testing.T) {
	events := ParseClaudeFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.Empty(t, events)
}
