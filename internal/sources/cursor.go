package sources

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spilist/tokscale/internal/model"
)

// ParseCursorFile reads one Cursor usage export CSV from the local cache.
// Two header layouts exist:
//
//	Date,Kind,Model,Max Mode,Input (w/ Cache Write),Input (w/o Cache Write),Cache Read,Output Tokens,Total Tokens,Cost
//	Date,Model,Input (w/ Cache Write),Input (w/o Cache Write),Cache Read,Output Tokens,Total Tokens,Cost,Cost to you
//
// Rows carry the price Cursor already charged, so events keep that cost.
func ParseCursorFile(path string) []model.UsageEvent {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil
	}
	if !headerContains(header, "Date") || !headerContains(header, "Model") {
		return nil
	}

	// The newer layout inserts Kind and Max Mode columns.
	modelIdx, inputWithCacheIdx, inputIdx, cacheReadIdx, outputIdx, costIdx := 1, 2, 3, 4, 5, 7
	if headerContains(header, "Kind") {
		modelIdx, inputWithCacheIdx, inputIdx, cacheReadIdx, outputIdx, costIdx = 2, 4, 5, 6, 7, 9
	}

	accountID := cursorAccountID(path)

	var events []model.UsageEvent
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		if len(row) <= costIdx {
			continue
		}

		modelID := strings.TrimSpace(row[modelIdx])
		if modelID == "" {
			continue
		}

		dateStr := strings.TrimSpace(row[0])
		millis := cursorTimestamp(dateStr)
		if millis == 0 {
			continue
		}

		inputWithCacheWrite := parseInt(row[inputWithCacheIdx])
		input := parseInt(row[inputIdx])

		events = append(events, model.UsageEvent{
			Source:          model.SourceCursor,
			ModelID:         modelID,
			ProviderID:      inferProvider(modelID),
			SessionID:       fmt.Sprintf("cursor-%s-%s", accountID, dateStr),
			TimestampMillis: millis,
			Date:            model.LocalDate(millis),
			Tokens: model.TokenBreakdown{
				Input:      input,
				Output:     parseInt(row[outputIdx]),
				CacheRead:  parseInt(row[cacheReadIdx]),
				CacheWrite: max64(inputWithCacheWrite-input, 0),
			},
			Cost: parseCost(row[costIdx]),
		})
	}

	return events
}

// cursorAccountID recovers the account tag from the cache file name.
// usage.csv is the single-account legacy name; additional accounts use
// usage.<account>.csv.
func cursorAccountID(path string) string {
	name := filepath.Base(path)
	if name == "usage.csv" {
		return "active"
	}
	if stem, ok := strings.CutPrefix(name, "usage."); ok {
		if stem, ok := strings.CutSuffix(stem, ".csv"); ok && stem != "" {
			return stem
		}
	}
	return "unknown"
}

func headerContains(header []string, column string) bool {
	for _, field := range header {
		if strings.TrimSpace(field) == column {
			return true
		}
	}
	return false
}

func inferProvider(modelID string) string {
	lower := strings.ToLower(modelID)
	switch {
	case strings.Contains(lower, "claude"), strings.Contains(lower, "sonnet"),
		strings.Contains(lower, "opus"), strings.Contains(lower, "haiku"):
		return "anthropic"
	case strings.Contains(lower, "gpt"), strings.Contains(lower, "o1"), strings.Contains(lower, "o3"):
		return "openai"
	case strings.Contains(lower, "gemini"):
		return "google"
	case strings.Contains(lower, "deepseek"):
		return "deepseek"
	case strings.Contains(lower, "llama"), strings.Contains(lower, "mixtral"):
		return "meta"
	}
	return "cursor"
}

func parseInt(field string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func parseCost(field string) float64 {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(field))
	if cleaned == "" || strings.EqualFold(cleaned, "nan") {
		return 0
	}
	cost, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return cost
}

var cursorDateLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

func cursorTimestamp(dateStr string) int64 {
	for _, layout := range cursorDateLayouts {
		if ts, err := time.Parse(layout, dateStr); err == nil {
			return ts.UnixMilli()
		}
	}
	if day, err := time.Parse("2006-01-02", dateStr); err == nil {
		return day.Add(12 * time.Hour).UnixMilli()
	}
	return 0
}
