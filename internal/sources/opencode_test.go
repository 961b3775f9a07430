package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOpenCodeFile(t *testing.T) {
	content := `{
		"id": "msg_123",
		"sessionID": "ses_456",
		"role": "assistant",
		"modelID": "claude-sonnet-4-5",
		"providerID": "anthropic",
		"cost": 0.05,
		"tokens": {
			"input": 1000, "output": 500, "reasoning": 100,
			"cache": {"read": 200, "write": 50}
		},
		"time": {"created": 1700000000000.0}
	}`

	event, ok := ParseOpenCodeFile(writeTestFile(t, "msg.json", content))

	require.True(t, ok)
	assert.Equal(t, "claude-sonnet-4-5", event.ModelID)
	assert.Equal(t, "ses_456", event.SessionID)
	assert.Equal(t, int64(1700000000000), event.TimestampMillis)
	assert.Equal(t, int64(1000), event.Tokens.Input)
	assert.Equal(t, int64(100), event.Tokens.Reasoning)
	assert.Equal(t, int64(200), event.Tokens.CacheRead)
	assert.Equal(t, int64(50), event.Tokens.CacheWrite)
	assert.Equal(t, 0.05, event.Cost, "opencode prices its own messages")
}

func TestParseOpenCodeFilePrefersModeOverAgent(t *testing.T) {
	content := `{
		"sessionID": "ses_456",
		"role": "assistant",
		"modelID": "claude-sonnet-4-5",
		"mode": "build",
		"agent": "general",
		"tokens": {"input": 1, "output": 1, "cache": {"read": 0, "write": 0}},
		"time": {"created": 1700000000000.0}
	}`

	event, ok := ParseOpenCodeFile(writeTestFile(t, "msg.json", content))

	require.True(t, ok)
	assert.Equal(t, "build", event.Agent)
}

func TestParseOpenCodeFileSkipsUserMessages(t *testing.T) {
	content := `{"sessionID": "s", "role": "user", "modelID": "m",
		"tokens": {"input": 1, "output": 1, "cache": {"read": 0, "write": 0}},
		"time": {"created": 1700000000000.0}}`

	_, ok := ParseOpenCodeFile(writeTestFile(t, "msg.json", content))
	assert.False(t, ok)
}
