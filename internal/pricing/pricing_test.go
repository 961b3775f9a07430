package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spilist/tokscale/internal/model"
)

func TestCost(t *testing.T) {
	entry := model.PricingEntry{
		InputCostPerToken:           3e-06,
		OutputCostPerToken:          1.5e-05,
		CacheReadInputTokenCost:     rate(3e-07),
		CacheCreationInputTokenCost: rate(3.75e-06),
	}

	tokens := model.TokenBreakdown{
		Input:      1000,
		Output:     500,
		CacheRead:  2000,
		CacheWrite: 100,
		Reasoning:  200,
	}

	got := Cost(tokens, entry)

	// reasoning bills at the output rate
	want := 1000*3e-06 + 500*1.5e-05 + 2000*3e-07 + 100*3.75e-06 + 200*1.5e-05
	assert.InDelta(t, want, got, 1e-12)
}

func TestCostMissingCacheRates(t *testing.T) {
	entry := model.PricingEntry{
		InputCostPerToken:  1e-06,
		OutputCostPerToken: 2e-06,
	}

	tokens := model.TokenBreakdown{Input: 100, Output: 100, CacheRead: 1_000_000, CacheWrite: 1_000_000}

	got := Cost(tokens, entry)
	assert.InDelta(t, 100*1e-06+100*2e-06, got, 1e-12)
}

func TestLookup(t *testing.T) {
	table := Table{
		"claude-sonnet-4-5":         {InputCostPerToken: 3e-06, OutputCostPerToken: 1.5e-05},
		"anthropic/claude-opus-4-5": {InputCostPerToken: 5e-06, OutputCostPerToken: 2.5e-05},
		"glm-4.7":                   {InputCostPerToken: 6e-07, OutputCostPerToken: 2.2e-06},
		"gpt-4o":                    {InputCostPerToken: 2.5e-06, OutputCostPerToken: 1e-05},
	}

	tests := []struct {
		name    string
		modelID string
		found   bool
		input   float64
	}{
		{"exact", "claude-sonnet-4-5", true, 3e-06},
		{"case insensitive", "Claude-Sonnet-4-5", true, 3e-06},
		{"provider prefix on key", "claude-opus-4-5", true, 5e-06},
		{"tier suffix stripped", "claude-sonnet-4-5-high", true, 3e-06},
		{"colon tier suffix", "glm-4.7:free", true, 6e-07},
		{"alias", "big-pickle", true, 6e-07},
		{"underscore separators against dashed key", "claude_sonnet_4_5", true, 3e-06},
		{"underscore separators short key", "gpt_4o", true, 2.5e-06},
		{"unknown", "totally-unknown-model", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := table.Lookup(tt.modelID)
			require.Equal(t, tt.found, ok)
			if ok {
				assert.Equal(t, tt.input, entry.InputCostPerToken)
			}
		})
	}
}

func TestPriceSkipsPrecomputedCost(t *testing.T) {
	table := Table{
		"claude-sonnet-4-5": {InputCostPerToken: 3e-06, OutputCostPerToken: 1.5e-05},
	}

	events := []model.UsageEvent{
		{ModelID: "claude-sonnet-4-5", Tokens: model.TokenBreakdown{Input: 1000}},
		{ModelID: "claude-sonnet-4-5", Tokens: model.TokenBreakdown{Input: 1000}, Cost: 42.0},
		{ModelID: "no-such-model", Tokens: model.TokenBreakdown{Input: 1000}},
	}

	priced := Price(events, table)

	assert.InDelta(t, 0.003, priced[0].Cost, 1e-12)
	assert.Equal(t, 42.0, priced[1].Cost, "precomputed cost must bypass the calculator")
	assert.Zero(t, priced[2].Cost, "unknown models price as zero")
}

func TestEmbeddedCoversDefaultSources(t *testing.T) {
	table := Embedded()

	for _, id := range []string{"claude-sonnet-4-5", "gpt-5.2-codex", "gemini-2.5-pro"} {
		_, ok := table.Lookup(id)
		assert.True(t, ok, "embedded table missing %s", id)
	}
}
