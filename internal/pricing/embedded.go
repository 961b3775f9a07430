package pricing

func rate(v float64) *float64 { return &v }

// Embedded returns the built-in fallback table used when the LiteLLM
// dataset cannot be reached. Rates are per token, not per million.
func Embedded() Table {
	return Table{
		"claude-opus-4-5": {
			InputCostPerToken:           5e-06,
			OutputCostPerToken:          2.5e-05,
			CacheCreationInputTokenCost: rate(6.25e-06),
			CacheReadInputTokenCost:     rate(5e-07),
		},
		"claude-opus-4-1": {
			InputCostPerToken:           1.5e-05,
			OutputCostPerToken:          7.5e-05,
			CacheCreationInputTokenCost: rate(1.875e-05),
			CacheReadInputTokenCost:     rate(1.5e-06),
		},
		"claude-sonnet-4-5": {
			InputCostPerToken:           3e-06,
			OutputCostPerToken:          1.5e-05,
			CacheCreationInputTokenCost: rate(3.75e-06),
			CacheReadInputTokenCost:     rate(3e-07),
		},
		"claude-sonnet-4-20250514": {
			InputCostPerToken:           3e-06,
			OutputCostPerToken:          1.5e-05,
			CacheCreationInputTokenCost: rate(3.75e-06),
			CacheReadInputTokenCost:     rate(3e-07),
		},
		"claude-haiku-4-5": {
			InputCostPerToken:           1e-06,
			OutputCostPerToken:          5e-06,
			CacheCreationInputTokenCost: rate(1.25e-06),
			CacheReadInputTokenCost:     rate(1e-07),
		},
		"claude-3-5-haiku-20241022": {
			InputCostPerToken:           8e-07,
			OutputCostPerToken:          4e-06,
			CacheCreationInputTokenCost: rate(1e-06),
			CacheReadInputTokenCost:     rate(8e-08),
		},
		"gpt-5.2": {
			InputCostPerToken:       1.25e-06,
			OutputCostPerToken:      1e-05,
			CacheReadInputTokenCost: rate(1.25e-07),
		},
		"gpt-5.2-codex": {
			InputCostPerToken:       1.25e-06,
			OutputCostPerToken:      1e-05,
			CacheReadInputTokenCost: rate(1.25e-07),
		},
		"gpt-5.1-codex-mini": {
			InputCostPerToken:       2.5e-07,
			OutputCostPerToken:      2e-06,
			CacheReadInputTokenCost: rate(2.5e-08),
		},
		"gemini-3-pro-preview": {
			InputCostPerToken:       2e-06,
			OutputCostPerToken:      1.2e-05,
			CacheReadInputTokenCost: rate(2e-07),
		},
		"gemini-2.5-pro": {
			InputCostPerToken:       1.25e-06,
			OutputCostPerToken:      1e-05,
			CacheReadInputTokenCost: rate(3.1e-07),
		},
		"gemini-2.5-flash": {
			InputCostPerToken:       3e-07,
			OutputCostPerToken:      2.5e-06,
			CacheReadInputTokenCost: rate(7.5e-08),
		},
		"glm-4.7": {
			InputCostPerToken:       6e-07,
			OutputCostPerToken:      2.2e-06,
			CacheReadInputTokenCost: rate(1.1e-07),
		},
	}
}
