package model

// ModelUsageRow is one (source, provider, model) line of the model report.
type ModelUsageRow struct {
	Source     Source         `json:"source"`
	ModelID    string         `json:"modelId"`
	ProviderID string         `json:"providerId"`
	Tokens     TokenBreakdown `json:"tokens"`
	Messages   int            `json:"messages"`
	Cost       float64        `json:"cost"`
}

// ModelReport aggregates usage per model, sorted by cost descending.
type ModelReport struct {
	Entries       []ModelUsageRow `json:"entries"`
	TotalTokens   TokenBreakdown  `json:"totalTokens"`
	TotalMessages int             `json:"totalMessages"`
	TotalCost     float64         `json:"totalCost"`
}

// MonthlyUsageRow is one calendar month of the monthly report.
type MonthlyUsageRow struct {
	Month    string         `json:"month"` // YYYY-MM
	Models   []string       `json:"models"`
	Tokens   TokenBreakdown `json:"tokens"`
	Messages int            `json:"messages"`
	Cost     float64        `json:"cost"`
}

// MonthlyReport aggregates usage per month, most recent month first.
type MonthlyReport struct {
	Entries   []MonthlyUsageRow `json:"entries"`
	TotalCost float64           `json:"totalCost"`
}
