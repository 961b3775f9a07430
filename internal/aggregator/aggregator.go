// Package aggregator reduces normalized usage events into the three
// report shapes: per-model, per-month, and the per-day graph. All passes
// are pure and order-independent over their input.
package aggregator

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/spilist/tokscale/internal/model"
)

// ByModel groups events by (source, model) and sums token counts,
// message counts, and cost. Entries come back sorted by cost descending.
func ByModel(events []model.UsageEvent) model.ModelReport {
	type key struct {
		source  model.Source
		modelID string
	}

	rows := make(map[key]*model.ModelUsageRow)
	for _, ev := range events {
		k := key{ev.Source, ev.ModelID}
		row, ok := rows[k]
		if !ok {
			row = &model.ModelUsageRow{
				Source:     ev.Source,
				ModelID:    ev.ModelID,
				ProviderID: ev.ProviderID,
			}
			rows[k] = row
		}
		row.Tokens.Add(ev.Tokens)
		row.Messages++
		row.Cost += ev.Cost
	}

	report := model.ModelReport{Entries: make([]model.ModelUsageRow, 0, len(rows))}
	for _, row := range rows {
		report.Entries = append(report.Entries, *row)
		report.TotalTokens.Add(row.Tokens)
		report.TotalMessages += row.Messages
		report.TotalCost += row.Cost
	}

	sort.Slice(report.Entries, func(i, j int) bool {
		if report.Entries[i].Cost != report.Entries[j].Cost {
			return report.Entries[i].Cost > report.Entries[j].Cost
		}
		return report.Entries[i].ModelID < report.Entries[j].ModelID
	})

	return report
}

// ByMonth groups events by calendar month (the YYYY-MM prefix of the
// event date) and sums the same fields plus the set of models seen.
// Entries come back most recent month first.
func ByMonth(events []model.UsageEvent) model.MonthlyReport {
	type monthAgg struct {
		row    model.MonthlyUsageRow
		models map[string]struct{}
	}

	months := make(map[string]*monthAgg)
	for _, ev := range events {
		if len(ev.Date) < 7 {
			continue
		}
		month := ev.Date[:7]
		agg, ok := months[month]
		if !ok {
			agg = &monthAgg{
				row:    model.MonthlyUsageRow{Month: month},
				models: make(map[string]struct{}),
			}
			months[month] = agg
		}
		agg.row.Tokens.Add(ev.Tokens)
		agg.row.Messages++
		agg.row.Cost += ev.Cost
		agg.models[ev.ModelID] = struct{}{}
	}

	report := model.MonthlyReport{Entries: make([]model.MonthlyUsageRow, 0, len(months))}
	for _, agg := range months {
		agg.row.Models = lo.Keys(agg.models)
		sort.Strings(agg.row.Models)
		report.Entries = append(report.Entries, agg.row)
		report.TotalCost += agg.row.Cost
	}

	sort.Slice(report.Entries, func(i, j int) bool {
		return report.Entries[i].Month > report.Entries[j].Month
	})

	return report
}

// BuildGraph groups events by day, and within each day by (source,
// model), then derives the whole-range summary and per-year rollups.
// Contributions come back in ascending date order. Intensity buckets a
// day's cost against the most expensive day of this result set, so it is
// only comparable within one graph.
func BuildGraph(events []model.UsageEvent, version string) model.Graph {
	type sourceKey struct {
		source  model.Source
		modelID string
	}

	days := make(map[string]map[sourceKey]*model.SourceContribution)
	for _, ev := range events {
		if ev.Date == "" {
			continue
		}
		day, ok := days[ev.Date]
		if !ok {
			day = make(map[sourceKey]*model.SourceContribution)
			days[ev.Date] = day
		}
		k := sourceKey{ev.Source, ev.ModelID}
		contrib, ok := day[k]
		if !ok {
			contrib = &model.SourceContribution{
				Source:     ev.Source,
				ModelID:    ev.ModelID,
				ProviderID: ev.ProviderID,
			}
			day[k] = contrib
		}
		contrib.Tokens.Add(ev.Tokens)
		contrib.Cost += ev.Cost
		contrib.Messages++
	}

	contributions := make([]model.DailyContribution, 0, len(days))
	maxCost := 0.0
	for date, sources := range days {
		daily := model.DailyContribution{Date: date}
		for _, contrib := range sources {
			daily.TokenBreakdown.Add(contrib.Tokens)
			daily.Totals.Cost += contrib.Cost
			daily.Totals.Messages += contrib.Messages
			daily.Sources = append(daily.Sources, *contrib)
		}
		daily.Totals.Tokens = daily.TokenBreakdown.Total()
		sort.Slice(daily.Sources, func(i, j int) bool {
			if daily.Sources[i].Cost != daily.Sources[j].Cost {
				return daily.Sources[i].Cost > daily.Sources[j].Cost
			}
			return daily.Sources[i].ModelID < daily.Sources[j].ModelID
		})
		if daily.Totals.Cost > maxCost {
			maxCost = daily.Totals.Cost
		}
		contributions = append(contributions, daily)
	}

	sort.Slice(contributions, func(i, j int) bool {
		return contributions[i].Date < contributions[j].Date
	})

	for i := range contributions {
		contributions[i].Intensity = intensity(contributions[i].Totals.Cost, maxCost)
	}

	summary := buildSummary(events, contributions, maxCost)

	graph := model.Graph{
		Meta: model.GraphMeta{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Version:     version,
		},
		Summary:       summary,
		Years:         buildYears(contributions),
		Contributions: contributions,
	}
	if len(contributions) > 0 {
		graph.Meta.DateRangeStart = contributions[0].Date
		graph.Meta.DateRangeEnd = contributions[len(contributions)-1].Date
	}
	return graph
}

// intensity buckets a day's cost against the result set's maximum day.
func intensity(dayCost, maxCost float64) int {
	if maxCost == 0 || dayCost == 0 {
		return 0
	}
	ratio := dayCost / maxCost
	switch {
	case ratio > 0.75:
		return 4
	case ratio > 0.5:
		return 3
	case ratio > 0.25:
		return 2
	default:
		return 1
	}
}

func buildSummary(events []model.UsageEvent, contributions []model.DailyContribution, maxCost float64) model.Summary {
	summary := model.Summary{
		ActiveDays:         len(contributions),
		MaxCostInSingleDay: maxCost,
	}

	for _, daily := range contributions {
		summary.TotalTokens += daily.Totals.Tokens
		summary.TotalCost += daily.Totals.Cost
	}
	if summary.ActiveDays > 0 {
		summary.AveragePerDay = summary.TotalCost / float64(summary.ActiveDays)
		summary.TotalDays = inclusiveDaySpan(contributions[0].Date, contributions[len(contributions)-1].Date)
	}

	summary.Sources = lo.Uniq(lo.Map(events, func(ev model.UsageEvent, _ int) string {
		return string(ev.Source)
	}))
	sort.Strings(summary.Sources)

	summary.Models = lo.Uniq(lo.Map(events, func(ev model.UsageEvent, _ int) string {
		return ev.ModelID
	}))
	sort.Strings(summary.Models)

	return summary
}

func buildYears(contributions []model.DailyContribution) []model.YearSummary {
	years := make(map[string]*model.YearSummary)
	for _, daily := range contributions {
		year := daily.Date[:4]
		summary, ok := years[year]
		if !ok {
			summary = &model.YearSummary{Year: year, RangeStart: daily.Date}
			years[year] = summary
		}
		summary.TotalTokens += daily.Totals.Tokens
		summary.TotalCost += daily.Totals.Cost
		// contributions arrive date-ascending
		summary.RangeEnd = daily.Date
	}

	out := make([]model.YearSummary, 0, len(years))
	for _, summary := range years {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func inclusiveDaySpan(first, last string) int {
	start, err := time.Parse("2006-01-02", first)
	if err != nil {
		return 0
	}
	end, err := time.Parse("2006-01-02", last)
	if err != nil {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
