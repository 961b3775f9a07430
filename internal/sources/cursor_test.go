package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCursorFileOldFormat(t *testing.T) {
	csv := `Date,Model,Input (w/ Cache Write),Input (w/o Cache Write),Cache Read,Output Tokens,Total Tokens,Cost,Cost to you
2025-02-01,gpt-4o,10,5,0,15,30,$0.10,$0.10
2025-02-02,gpt-4o-mini,0,0,0,5,5,$0.05,$0.05`

	path := filepath.Join(t.TempDir(), "usage.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	events := ParseCursorFile(path)
	require.Len(t, events, 2)

	assert.Equal(t, "gpt-4o", events[0].ModelID)
	assert.Equal(t, "openai", events[0].ProviderID)
	assert.Equal(t, int64(5), events[0].Tokens.Input)
	assert.Equal(t, int64(15), events[0].Tokens.Output)
	assert.Equal(t, int64(5), events[0].Tokens.CacheWrite)
	assert.InDelta(t, 0.10, events[0].Cost, 1e-9)

	assert.Equal(t, "gpt-4o-mini", events[1].ModelID)
}

func TestParseCursorFileNewFormat(t *testing.T) {
	csv := `Date,Kind,Model,Max Mode,Input (w/ Cache Write),Input (w/o Cache Write),Cache Read,Output Tokens,Total Tokens,Cost
"2025-11-13T18:36:05.846Z","Included","auto","No","28342","775","105891","21282","156290","0.19"
"2025-11-13T13:35:04.658Z","On-Demand","gpt-5-codex","No","0","8263","66964","1612","76839","0.03"`

	path := filepath.Join(t.TempDir(), "usage.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	events := ParseCursorFile(path)
	require.Len(t, events, 2)

	assert.Equal(t, "auto", events[0].ModelID)
	assert.Equal(t, "cursor", events[0].ProviderID)
	assert.Equal(t, int64(775), events[0].Tokens.Input)
	assert.Equal(t, int64(21282), events[0].Tokens.Output)
	assert.Equal(t, int64(105891), events[0].Tokens.CacheRead)
	assert.Equal(t, int64(27567), events[0].Tokens.CacheWrite)
	assert.InDelta(t, 0.19, events[0].Cost, 1e-9)

	assert.Equal(t, "gpt-5-codex", events[1].ModelID)
	assert.Equal(t, "openai", events[1].ProviderID)
}

func TestParseCursorFileRejectsForeignCSV(t *testing.T) {
	csv := `name,amount
alice,3`

	path := filepath.Join(t.TempDir(), "usage.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	assert.Empty(t, ParseCursorFile(path))
}

func TestCursorAccountID(t *testing.T) {
	assert.Equal(t, "active", cursorAccountID("/cache/usage.csv"))
	assert.Equal(t, "work", cursorAccountID("/cache/usage.work.csv"))
	assert.Equal(t, "unknown", cursorAccountID("/cache/other.csv"))
}

func TestInferProvider(t *testing.T) {
	assert.Equal(t, "anthropic", inferProvider("claude-sonnet-4-5"))
	assert.Equal(t, "openai", inferProvider("gpt-4o"))
	assert.Equal(t, "google", inferProvider("gemini-2.5-pro"))
	assert.Equal(t, "deepseek", inferProvider("deepseek-coder"))
	assert.Equal(t, "meta", inferProvider("llama-3"))
	assert.Equal(t, "cursor", inferProvider("auto"))
}

func TestParseCost(t *testing.T) {
	assert.Equal(t, 0.50, parseCost("$0.50"))
	assert.Equal(t, 1234.56, parseCost("$1,234.56"))
	assert.Zero(t, parseCost(""))
	assert.Zero(t, parseCost("NaN"))
	assert.Zero(t, parseCost("  "))
}
