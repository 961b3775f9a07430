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

type claudeEntry struct {
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	RequestID string         `json:"requestId"`
	Message   *claudeMessage `json:"message"`
}

type claudeMessage struct {
	ID    string       `json:"id"`
	Model string       `json:"model"`
	Usage *claudeUsage `json:"usage"`
}

type claudeUsage struct {
	InputTokens         int64 `json:"input_tokens"`
	OutputTokens        int64 `json:"output_tokens"`
	CacheReadTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationTokens int64 `json:"cache_creation_input_tokens"`
}

// ParseClaudeFile reads one Claude Code conversation JSONL file. The agent
// retries requests, so the same message can appear on multiple lines; lines
// are deduplicated by the messageID:requestID pair when both are present.
func ParseClaudeFile(path string) []model.UsageEvent {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	sessionID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var events []model.UsageEvent
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var entry claudeEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Type != "assistant" || entry.Message == nil {
			continue
		}

		if entry.Message.ID != "" && entry.RequestID != "" {
			key := entry.Message.ID + ":" + entry.RequestID
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}

		usage := entry.Message.Usage
		if usage == nil || entry.Message.Model == "" {
			continue
		}

		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			continue
		}
		millis := ts.UnixMilli()

		events = append(events, model.UsageEvent{
			Source:          model.SourceClaude,
			ModelID:         entry.Message.Model,
			ProviderID:      "anthropic",
			SessionID:       sessionID,
			TimestampMillis: millis,
			Date:            model.LocalDate(millis),
			Tokens: model.TokenBreakdown{
				Input:      usage.InputTokens,
				Output:     usage.OutputTokens,
				CacheRead:  usage.CacheReadTokens,
				CacheWrite: usage.CacheCreationTokens,
			},
		})
	}

	return events
}
