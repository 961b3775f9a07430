package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeminiFile(t *testing.T) {
	content := `{
		"sessionId": "ses_123",
		"projectHash": "abc",
		"startTime": "2025-06-15T12:00:00Z",
		"lastUpdated": "2025-06-15T12:30:00Z",
		"messages": [
			{"id": "m1", "timestamp": "2025-06-15T12:00:00Z", "type": "user", "content": "hello"},
			{"id": "m2", "timestamp": "2025-06-15T12:01:00Z", "type": "gemini", "model": "gemini-2.5-pro",
			 "tokens": {"input": 10, "output": 20, "cached": 5, "thoughts": 2}}
		]
	}`

	events := ParseGeminiFile(writeTestFile(t, "session-abc.json", content))

	require.Len(t, events, 1)
	assert.Equal(t, "gemini-2.5-pro", events[0].ModelID)
	assert.Equal(t, "google", events[0].ProviderID)
	assert.Equal(t, "ses_123", events[0].SessionID)
	assert.Equal(t, int64(10), events[0].Tokens.Input)
	assert.Equal(t, int64(20), events[0].Tokens.Output)
	assert.Equal(t, int64(5), events[0].Tokens.CacheRead)
	assert.Equal(t, int64(2), events[0].Tokens.Reasoning)
}

func TestParseGeminiFileMissingTimestampUsesFileTime(t *testing.T) {
	content := `{
		"sessionId": "ses_123",
		"messages": [
			{"id": "m1", "type": "gemini", "model": "gemini-2.5-flash",
			 "tokens": {"input": 1, "output": 1}}
		]
	}`

	events := ParseGeminiFile(writeTestFile(t, "session-abc.json", content))

	require.Len(t, events, 1)
	assert.Positive(t, events[0].TimestampMillis)
	assert.NotEmpty(t, events[0].Date)
}

func TestParseGeminiFileSkipsMalformed(t *testing.T) {
	assert.Empty(t, ParseGeminiFile(writeTestFile(t, "session-abc.json", "not json")))
}
