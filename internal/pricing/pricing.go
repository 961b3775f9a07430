package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spilist/tokscale/internal/model"
)

const litellmPricingURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

// modelAliases maps community nicknames to the canonical model id used by
// the pricing dataset.
var modelAliases = map[string]string{
	"big-pickle": "glm-4.7",
	"big pickle": "glm-4.7",
	"bigpickle":  "glm-4.7",
}

// tierSuffixes are provider routing tiers that do not change base pricing.
var tierSuffixes = []string{"-low", "-high", "-medium", "-free", ":low", ":high", ":medium", ":free"}

// Table maps model ids to pricing entries.
type Table map[string]model.PricingEntry

// Fetch returns the pricing table, preferring the on-disk cache, then the
// LiteLLM dataset, then the embedded fallback. It never fails: when both
// cache and network are unavailable the embedded table is returned.
func Fetch(ctx context.Context) Table {
	if cached, ok := loadCache(); ok {
		return cached
	}

	table, err := fetchRemote(ctx)
	if err != nil {
		return Embedded()
	}
	saveCache(table)
	return table
}

func fetchRemote(ctx context.Context) (Table, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, litellmPricingURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var raw map[string]model.PricingEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode pricing dataset: %w", err)
	}

	table := make(Table, len(raw))
	for name, entry := range raw {
		if entry.InputCostPerToken == 0 && entry.OutputCostPerToken == 0 {
			continue
		}
		table[strings.ToLower(name)] = entry
	}
	return table, nil
}

// Lookup resolves a model id to a pricing entry. Resolution tries, in
// order: alias, exact match, normalized-name match, tier-suffix strip,
// provider-prefix strip. A miss returns ok=false; missing models price
// as zero rather than erroring.
func (t Table) Lookup(modelID string) (model.PricingEntry, bool) {
	lower := strings.ToLower(modelID)
	if canonical, ok := modelAliases[lower]; ok {
		lower = canonical
	}

	if entry, ok := t[lower]; ok {
		return entry, true
	}

	norm := normalizeModelName(lower)
	for key, entry := range t {
		if normalizeModelName(key) == norm {
			return entry, true
		}
	}

	for _, suffix := range tierSuffixes {
		if stripped, ok := strings.CutSuffix(lower, suffix); ok {
			if entry, found := t.Lookup(stripped); found {
				return entry, true
			}
			break
		}
	}

	// Dataset keys are often provider-prefixed ("anthropic/claude-...").
	if _, bare, found := strings.Cut(lower, "/"); found {
		if entry, ok := t[bare]; ok {
			return entry, true
		}
	}
	for key, entry := range t {
		if _, bare, found := strings.Cut(key, "/"); found && bare == lower {
			return entry, true
		}
	}

	return model.PricingEntry{}, false
}

// normalizeModelName strips separators for loose matching, e.g.
// "claude-4-sonnet" and "claude_4_sonnet" compare equal.
func normalizeModelName(name string) string {
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}

// Cost prices a token breakdown against a pricing entry. Reasoning tokens
// bill at the output rate; absent cache rates bill as zero.
func Cost(tokens model.TokenBreakdown, entry model.PricingEntry) float64 {
	cost := float64(tokens.Input) * entry.InputCostPerToken
	cost += float64(tokens.Output) * entry.OutputCostPerToken
	if entry.CacheReadInputTokenCost != nil {
		cost += float64(tokens.CacheRead) * *entry.CacheReadInputTokenCost
	}
	if entry.CacheCreationInputTokenCost != nil {
		cost += float64(tokens.CacheWrite) * *entry.CacheCreationInputTokenCost
	}
	cost += float64(tokens.Reasoning) * entry.OutputCostPerToken
	return cost
}

// Price assigns a cost to every event that does not already carry one.
// Events with a positive precomputed cost bypass the table entirely.
// Lookups are resolved once per distinct model id.
func Price(events []model.UsageEvent, table Table) []model.UsageEvent {
	type resolved struct {
		entry model.PricingEntry
		ok    bool
	}
	seen := make(map[string]resolved)

	for i := range events {
		if events[i].Cost > 0 {
			continue
		}
		r, cached := seen[events[i].ModelID]
		if !cached {
			r.entry, r.ok = table.Lookup(events[i].ModelID)
			seen[events[i].ModelID] = r
		}
		if !r.ok {
			continue
		}
		events[i].Cost = Cost(events[i].Tokens, r.entry)
	}
	return events
}
