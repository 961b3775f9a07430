package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spilist/tokscale/internal/model"
)

func device(tokens int64, cost float64, modelID string) DeviceAggregate {
	return DeviceAggregate{
		Tokens:   tokens,
		Cost:     cost,
		Input:    tokens,
		Messages: 1,
		Models: map[string]ModelAggregate{
			modelID: {Tokens: tokens, Cost: cost, Input: tokens, Messages: 1},
		},
	}
}

func TestMergeSameDeviceReplacesNotAdds(t *testing.T) {
	existing := map[model.Source]SourceBreakdown{
		model.SourceClaude: {
			Tokens: 1000, Cost: 10, Input: 1000, Messages: 1,
			Devices: map[string]DeviceAggregate{
				"device-1": device(1000, 10, "claude-sonnet-4-5"),
			},
			Models: map[string]ModelAggregate{
				"claude-sonnet-4-5": {Tokens: 1000, Cost: 10, Input: 1000, Messages: 1},
			},
		},
	}
	incoming := map[model.Source]DeviceAggregate{
		model.SourceClaude: device(1500, 15, "claude-sonnet-4-5"),
	}

	result := MergeDay(existing, incoming, []model.Source{model.SourceClaude}, "device-1")

	cell := result[model.SourceClaude]
	assert.Equal(t, int64(1500), cell.Tokens, "resubmission replaces, never adds")
	assert.Equal(t, 15.0, cell.Cost)
	require.Len(t, cell.Devices, 1)
	assert.Equal(t, int64(1500), cell.Devices["device-1"].Tokens)
}

func TestMergeLegacyMigration(t *testing.T) {
	existing := map[model.Source]SourceBreakdown{
		model.SourceClaude: {
			Tokens: 1000, Cost: 10, Input: 1000, Messages: 2,
			Models: map[string]ModelAggregate{
				"claude-3": {Tokens: 1000, Cost: 10, Input: 1000, Messages: 2},
			},
		},
	}
	incoming := map[model.Source]DeviceAggregate{
		model.SourceClaude: device(500, 0.02, "claude-sonnet-4-5"),
	}

	result := MergeDay(existing, incoming, []model.Source{model.SourceClaude}, "device-1")

	cell := result[model.SourceClaude]
	assert.Equal(t, int64(1000), cell.Devices[LegacyDeviceID].Tokens, "legacy totals preserved verbatim")
	assert.Equal(t, int64(500), cell.Devices["device-1"].Tokens)
	assert.Equal(t, int64(1500), cell.Tokens)
	assert.InDelta(t, 10.02, cell.Cost, 1e-9)
	assert.Equal(t, int64(1000), cell.Models["claude-3"].Tokens)
	assert.Equal(t, int64(500), cell.Models["claude-sonnet-4-5"].Tokens)
}

func TestMergeLegacyMigrationSynthesizesFromFlatModelID(t *testing.T) {
	existing := map[model.Source]SourceBreakdown{
		model.SourceCodex: {
			Tokens: 800, Cost: 4, Input: 800, Messages: 3,
			ModelID: "gpt-4-turbo",
		},
	}
	incoming := map[model.Source]DeviceAggregate{
		model.SourceCodex: device(100, 1, "gpt-5.2-codex"),
	}

	result := MergeDay(existing, incoming, []model.Source{model.SourceCodex}, "device-2")

	cell := result[model.SourceCodex]
	legacy := cell.Devices[LegacyDeviceID]
	require.Len(t, legacy.Models, 1)
	assert.Equal(t, int64(800), legacy.Models["gpt-4-turbo"].Tokens)
	assert.Equal(t, int64(900), cell.Tokens)
}

func TestMergeLegacyMigrationIsExactlyOnce(t *testing.T) {
	existing := map[model.Source]SourceBreakdown{
		model.SourceClaude: {Tokens: 1000, Cost: 10, Input: 1000, Messages: 1, ModelID: "claude-3"},
	}

	first := MergeDay(existing, map[model.Source]DeviceAggregate{
		model.SourceClaude: device(500, 5, "claude-sonnet-4-5"),
	}, []model.Source{model.SourceClaude}, "device-1")

	second := MergeDay(first, map[model.Source]DeviceAggregate{
		model.SourceClaude: device(200, 2, "claude-sonnet-4-5"),
	}, []model.Source{model.SourceClaude}, "device-2")

	cell := second[model.SourceClaude]
	require.Contains(t, cell.Devices, LegacyDeviceID)
	assert.Equal(t, int64(1000), cell.Devices[LegacyDeviceID].Tokens, "migration must not re-run")
	assert.Len(t, cell.Devices, 3)
	assert.Equal(t, int64(1700), cell.Tokens)
}

func TestMergeIdempotence(t *testing.T) {
	existing := map[model.Source]SourceBreakdown{
		model.SourceClaude: {Tokens: 1000, Cost: 10, Input: 1000, Messages: 1, ModelID: "claude-3"},
	}
	incoming := map[model.Source]DeviceAggregate{
		model.SourceClaude: device(500, 5, "claude-sonnet-4-5"),
	}
	requested := []model.Source{model.SourceClaude}

	once := MergeDay(existing, incoming, requested, "device-1")
	twice := MergeDay(once, incoming, requested, "device-1")

	assert.Equal(t, once, twice)
}

func TestMergeCommutativityAcrossDevices(t *testing.T) {
	incomingA := map[model.Source]DeviceAggregate{
		model.SourceClaude: device(500, 5, "claude-sonnet-4-5"),
	}
	incomingB := map[model.Source]DeviceAggregate{
		model.SourceClaude: device(300, 3, "claude-opus-4-5"),
	}
	requested := []model.Source{model.SourceClaude}

	aThenB := MergeDay(MergeDay(nil, incomingA, requested, "device-a"), incomingB, requested, "device-b")
	bThenA := MergeDay(MergeDay(nil, incomingB, requested, "device-b"), incomingA, requested, "device-a")

	assert.Equal(t, aThenB, bThenA)
	assert.Equal(t, int64(800), aThenB[model.SourceClaude].Tokens)
}

func TestMergeRequestedButAbsentPreservesOtherDevices(t *testing.T) {
	existing := map[model.Source]SourceBreakdown{
		model.SourceClaude: recompute(map[string]DeviceAggregate{
			"device-other": device(700, 7, "claude-sonnet-4-5"),
		}),
	}

	// device-1 covered claude this run but had no events for it
	result := MergeDay(existing, map[model.Source]DeviceAggregate{},
		[]model.Source{model.SourceClaude}, "device-1")

	cell := result[model.SourceClaude]
	assert.Equal(t, int64(700), cell.Tokens)
	require.Len(t, cell.Devices, 1)
	assert.Contains(t, cell.Devices, "device-other")
}

func TestMergeUnrequestedSourceUntouched(t *testing.T) {
	existing := map[model.Source]SourceBreakdown{
		model.SourceGemini: {Tokens: 900, Cost: 9, Input: 900, Messages: 4, ModelID: "gemini-2.5-pro"},
	}
	incoming := map[model.Source]DeviceAggregate{
		model.SourceClaude: device(100, 1, "claude-sonnet-4-5"),
	}

	result := MergeDay(existing, incoming, []model.Source{model.SourceClaude}, "device-1")

	gemini := result[model.SourceGemini]
	assert.Nil(t, gemini.Devices, "untouched cell keeps its legacy shape")
	assert.Equal(t, int64(900), gemini.Tokens)
	assert.Equal(t, int64(100), result[model.SourceClaude].Tokens)
}

func TestMergeAggregateEqualsSumOfDevices(t *testing.T) {
	result := MergeDay(nil, map[model.Source]DeviceAggregate{
		model.SourceClaude: device(500, 5, "claude-sonnet-4-5"),
	}, []model.Source{model.SourceClaude}, "device-a")
	result = MergeDay(result, map[model.Source]DeviceAggregate{
		model.SourceClaude: device(300, 3, "claude-sonnet-4-5"),
	}, []model.Source{model.SourceClaude}, "device-b")

	cell := result[model.SourceClaude]

	var tokens, input int64
	var cost float64
	var messages int
	modelTotals := make(map[string]ModelAggregate)
	for _, agg := range cell.Devices {
		tokens += agg.Tokens
		input += agg.Input
		cost += agg.Cost
		messages += agg.Messages
		for id, m := range agg.Models {
			total := modelTotals[id]
			total.add(m)
			modelTotals[id] = total
		}
	}

	assert.Equal(t, tokens, cell.Tokens)
	assert.Equal(t, input, cell.Input)
	assert.InDelta(t, cost, cell.Cost, 1e-9)
	assert.Equal(t, messages, cell.Messages)
	assert.Equal(t, modelTotals, cell.Models)
}

func TestFromContribution(t *testing.T) {
	daily := model.DailyContribution{
		Date: "2025-03-01",
		Sources: []model.SourceContribution{
			{
				Source:   model.SourceClaude,
				ModelID:  "claude-sonnet-4-5",
				Tokens:   model.TokenBreakdown{Input: 1000, Output: 500},
				Cost:     5,
				Messages: 2,
			},
			{
				Source:   model.SourceClaude,
				ModelID:  "claude-opus-4-5",
				Tokens:   model.TokenBreakdown{Input: 100, Output: 50, Reasoning: 20},
				Cost:     4,
				Messages: 1,
			},
			{
				Source:   model.SourceCodex,
				ModelID:  "gpt-5.2-codex",
				Tokens:   model.TokenBreakdown{Input: 200, Output: 100},
				Cost:     1,
				Messages: 1,
			},
		},
	}

	aggs := FromContribution(daily)

	require.Len(t, aggs, 2)
	claude := aggs[model.SourceClaude]
	assert.Equal(t, int64(1670), claude.Tokens)
	assert.Equal(t, int64(1100), claude.Input)
	assert.Equal(t, int64(20), claude.Reasoning)
	assert.Equal(t, 9.0, claude.Cost)
	assert.Equal(t, 3, claude.Messages)
	require.Len(t, claude.Models, 2)
	assert.Equal(t, int64(1500), claude.Models["claude-sonnet-4-5"].Tokens)

	codex := aggs[model.SourceCodex]
	assert.Equal(t, int64(300), codex.Tokens)
}
