package sources

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spilist/tokscale/internal/model"
)

type geminiSession struct {
	SessionID string          `json:"sessionId"`
	Messages  []geminiMessage `json:"messages"`
}

type geminiMessage struct {
	Timestamp string        `json:"timestamp"`
	Type      string        `json:"type"`
	Model     string        `json:"model"`
	Tokens    *geminiTokens `json:"tokens"`
}

type geminiTokens struct {
	Input    int64 `json:"input"`
	Output   int64 `json:"output"`
	Cached   int64 `json:"cached"`
	Thoughts int64 `json:"thoughts"`
}

// ParseGeminiFile reads one Gemini CLI chat session JSON file. Only model
// responses carry token counts; thought tokens map to reasoning. When a
// message has no parsable timestamp the file's modification time stands in.
func ParseGeminiFile(path string) []model.UsageEvent {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var session geminiSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil
	}

	fallback := fileModifiedMillis(path)

	var events []model.UsageEvent
	for _, msg := range session.Messages {
		if msg.Type != "gemini" || msg.Tokens == nil || msg.Model == "" {
			continue
		}

		millis := fallback
		if ts, err := time.Parse(time.RFC3339, msg.Timestamp); err == nil {
			millis = ts.UnixMilli()
		}

		events = append(events, model.UsageEvent{
			Source:          model.SourceGemini,
			ModelID:         msg.Model,
			ProviderID:      "google",
			SessionID:       session.SessionID,
			TimestampMillis: millis,
			Date:            model.LocalDate(millis),
			Tokens: model.TokenBreakdown{
				Input:     msg.Tokens.Input,
				Output:    msg.Tokens.Output,
				CacheRead: msg.Tokens.Cached,
				Reasoning: msg.Tokens.Thoughts,
			},
		})
	}

	return events
}

func fileModifiedMillis(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return time.Now().UnixMilli()
	}
	return info.ModTime().UnixMilli()
}
