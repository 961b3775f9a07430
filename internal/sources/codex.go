package sources

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spilist/tokscale/internal/model"
)

type codexEntry struct {
	Type      string        `json:"type"`
	Timestamp string        `json:"timestamp"`
	Payload   *codexPayload `json:"payload"`
}

type codexPayload struct {
	Type      string     `json:"type"`
	Model     string     `json:"model"`
	ModelName string     `json:"model_name"`
	Info      *codexInfo `json:"info"`
}

type codexInfo struct {
	Model          string           `json:"model"`
	ModelName      string           `json:"model_name"`
	LastTokenUsage *codexTokenUsage `json:"last_token_usage"`
	TotalUsage     *codexTokenUsage `json:"total_token_usage"`
}

type codexTokenUsage struct {
	InputTokens          int64 `json:"input_tokens"`
	OutputTokens         int64 `json:"output_tokens"`
	CachedInputTokens    int64 `json:"cached_input_tokens"`
	CacheReadInputTokens int64 `json:"cache_read_input_tokens"`
}

func (u *codexTokenUsage) cached() int64 {
	if u.CachedInputTokens != 0 {
		return u.CachedInputTokens
	}
	return u.CacheReadInputTokens
}

// ParseCodexFile reads one Codex CLI session JSONL file. Codex logs
// running token totals per turn rather than per-message counts, so the
// parser tracks the previous totals and emits deltas. The model for a
// turn comes from the most recent turn_context or token_count entry that
// named one.
func ParseCodexFile(path string) []model.UsageEvent {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var events []model.UsageEvent
	currentModel := ""
	var prevInput, prevOutput, prevCached int64
	havePrev := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry codexEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil || entry.Payload == nil {
			continue
		}

		if entry.Type == "turn_context" {
			if m := entry.Payload.modelHint(); m != "" {
				currentModel = m
			}
			continue
		}
		if entry.Type != "event_msg" || entry.Payload.Type != "token_count" {
			continue
		}
		if m := entry.Payload.modelHint(); m != "" {
			currentModel = m
		}

		info := entry.Payload.Info
		if info == nil {
			continue
		}

		modelID := currentModel
		if modelID == "" {
			modelID = "unknown"
		}

		// OpenAI's input_tokens includes cached tokens; subtract them so
		// aggregation does not double-count.
		var input, output, cached int64
		switch {
		case info.LastTokenUsage != nil:
			last := info.LastTokenUsage
			cached = last.cached()
			input = max64(last.InputTokens-cached, 0)
			output = last.OutputTokens
		case info.TotalUsage != nil && havePrev:
			total := info.TotalUsage
			deltaInput := max64(total.InputTokens-prevInput, 0)
			deltaCached := max64(total.cached()-prevCached, 0)
			input = max64(deltaInput-deltaCached, 0)
			output = max64(total.OutputTokens-prevOutput, 0)
			cached = deltaCached
		default:
			if info.TotalUsage != nil {
				prevInput, prevOutput, prevCached = info.TotalUsage.InputTokens, info.TotalUsage.OutputTokens, info.TotalUsage.cached()
				havePrev = true
			}
			continue
		}

		if info.TotalUsage != nil {
			prevInput, prevOutput, prevCached = info.TotalUsage.InputTokens, info.TotalUsage.OutputTokens, info.TotalUsage.cached()
			havePrev = true
		}

		if input == 0 && output == 0 && cached == 0 {
			continue
		}

		millis := codexTimestamp(entry.Timestamp)

		events = append(events, model.UsageEvent{
			Source:          model.SourceCodex,
			ModelID:         modelID,
			ProviderID:      "openai",
			SessionID:       sessionID,
			TimestampMillis: millis,
			Date:            model.LocalDate(millis),
			Tokens: model.TokenBreakdown{
				Input:     input,
				Output:    output,
				CacheRead: cached,
			},
		})
	}

	return events
}

func (p *codexPayload) modelHint() string {
	if p.Model != "" {
		return p.Model
	}
	if p.ModelName != "" {
		return p.ModelName
	}
	if p.Info != nil {
		if p.Info.Model != "" {
			return p.Info.Model
		}
		if p.Info.ModelName != "" {
			return p.Info.ModelName
		}
	}
	return ""
}

func codexTimestamp(raw string) int64 {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UnixMilli()
	}
	return time.Now().UnixMilli()
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
