package sources

import (
	"encoding/json"
	"os"

	"github.com/spilist/tokscale/internal/model"
)

type openCodeMessage struct {
	SessionID  string          `json:"sessionID"`
	Role       string          `json:"role"`
	ModelID    string          `json:"modelID"`
	ProviderID string          `json:"providerID"`
	Cost       float64         `json:"cost"`
	Tokens     *openCodeTokens `json:"tokens"`
	Time       openCodeTime    `json:"time"`
	Agent      string          `json:"agent"`
	Mode       string          `json:"mode"`
}

type openCodeTokens struct {
	Input     int64         `json:"input"`
	Output    int64         `json:"output"`
	Reasoning int64         `json:"reasoning"`
	Cache     openCodeCache `json:"cache"`
}

type openCodeCache struct {
	Read  int64 `json:"read"`
	Write int64 `json:"write"`
}

type openCodeTime struct {
	Created float64 `json:"created"`
}

// ParseOpenCodeFile reads one OpenCode message JSON file. OpenCode stores
// one message per file and already prices each message, so the cost is
// carried through as-is.
func ParseOpenCodeFile(path string) (model.UsageEvent, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.UsageEvent{}, false
	}

	var msg openCodeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return model.UsageEvent{}, false
	}
	if msg.Role != "assistant" || msg.Tokens == nil || msg.ModelID == "" {
		return model.UsageEvent{}, false
	}

	provider := msg.ProviderID
	if provider == "" {
		provider = "unknown"
	}

	agent := msg.Mode
	if agent == "" {
		agent = msg.Agent
	}

	millis := int64(msg.Time.Created)

	return model.UsageEvent{
		Source:          model.SourceOpenCode,
		ModelID:         msg.ModelID,
		ProviderID:      provider,
		SessionID:       msg.SessionID,
		TimestampMillis: millis,
		Date:            model.LocalDate(millis),
		Tokens: model.TokenBreakdown{
			Input:      msg.Tokens.Input,
			Output:     msg.Tokens.Output,
			CacheRead:  msg.Tokens.Cache.Read,
			CacheWrite: msg.Tokens.Cache.Write,
			Reasoning:  msg.Tokens.Reasoning,
		},
		Cost:  msg.Cost,
		Agent: agent,
	}, true
}
