package output

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spilist/tokscale/internal/model"
)

const (
	compactThreshold = 100 // Terminal width below which compact mode kicks in
	defaultWidth     = 120
)

// TableOptions controls table display behavior
type TableOptions struct {
	ForceCompact bool
}

// shouldUseCompact determines if compact mode should be used
func shouldUseCompact(opts TableOptions) bool {
	if opts.ForceCompact {
		return true
	}
	return getTerminalWidth() < compactThreshold
}

// FormatNumber formats a number with thousand separators
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}

	str := fmt.Sprintf("%d", n)
	negative := n < 0
	if negative {
		str = str[1:]
	}

	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}

	if negative {
		return "-" + result
	}
	return result
}

// FormatCost formats a cost value as currency
func FormatCost(cost float64) string {
	return fmt.Sprintf("$%.2f", cost)
}

var (
	claudeDated   = regexp.MustCompile(`^claude-(\w+)-([\d-]+)-(\d{8})$`)
	claudePlain   = regexp.MustCompile(`^claude-(\w+)-([\d-]+)$`)
	claudeSlashed = regexp.MustCompile(`^anthropic/claude-(\w+)-([\d.]+)$`)
)

// shortenModelName converts full model names to short form
// claude-sonnet-4-5-20250929 -> sonnet-4-5
// anthropic/claude-opus-4.5 -> opus-4.5
func shortenModelName(name string) string {
	if matches := claudeDated.FindStringSubmatch(name); matches != nil {
		return fmt.Sprintf("%s-%s", matches[1], matches[2])
	}
	if matches := claudePlain.FindStringSubmatch(name); matches != nil {
		return fmt.Sprintf("%s-%s", matches[1], matches[2])
	}
	if matches := claudeSlashed.FindStringSubmatch(name); matches != nil {
		return fmt.Sprintf("%s-%s", matches[1], matches[2])
	}
	return name
}

// PrintWarnings writes non-fatal load warnings to stderr
func PrintWarnings(warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
}

// PrintModelReport prints per-model usage as a formatted table
func PrintModelReport(report model.ModelReport, opts TableOptions) {
	if len(report.Entries) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	compact := shouldUseCompact(opts)

	keyWidth := len("Model")
	for _, row := range report.Entries {
		name := shortenModelName(row.ModelID)
		if len(name) > keyWidth {
			keyWidth = len(name)
		}
	}
	if keyWidth < 10 {
		keyWidth = 10
	}
	if compact && keyWidth > 20 {
		keyWidth = 20
	}

	fmt.Println()

	if compact {
		// Compact: Model, Input, Output, Cost
		lineWidth := keyWidth + 2 + 12 + 2 + 12 + 2 + 10
		fmt.Printf("%-*s  %12s  %12s  %10s\n", keyWidth, "Model", "Input", "Output", "Cost")
		fmt.Println(strings.Repeat("─", lineWidth))

		for _, row := range report.Entries {
			name := shortenModelName(row.ModelID)
			if len(name) > keyWidth {
				name = name[:keyWidth]
			}
			fmt.Printf("%-*s  %12s  %12s  %10s\n",
				keyWidth, name,
				FormatNumber(row.Tokens.Input),
				FormatNumber(row.Tokens.Output),
				FormatCost(row.Cost))
		}

		if len(report.Entries) > 1 {
			fmt.Println(strings.Repeat("─", lineWidth))
			fmt.Printf("%-*s  %12s  %12s  %10s\n",
				keyWidth, "Total",
				FormatNumber(report.TotalTokens.Input),
				FormatNumber(report.TotalTokens.Output),
				FormatCost(report.TotalCost))
		}

		fmt.Println()
		fmt.Println("(Compact mode - expand terminal for full view)")
		return
	}

	// Full: Model, Source, Input, Output, Cache Write, Cache Read, Cost
	lineWidth := keyWidth + 2 + 10 + 2 + 12 + 2 + 12 + 2 + 13 + 2 + 13 + 2 + 10
	fmt.Printf("%-*s  %-10s  %12s  %12s  %13s  %13s  %10s\n",
		keyWidth, "Model", "Source", "Input", "Output", "Cache Write", "Cache Read", "Cost")
	fmt.Println(strings.Repeat("─", lineWidth))

	for _, row := range report.Entries {
		fmt.Printf("%-*s  %-10s  %12s  %12s  %13s  %13s  %10s\n",
			keyWidth, shortenModelName(row.ModelID),
			row.Source,
			FormatNumber(row.Tokens.Input),
			FormatNumber(row.Tokens.Output),
			FormatNumber(row.Tokens.CacheWrite),
			FormatNumber(row.Tokens.CacheRead),
			FormatCost(row.Cost))
	}

	if len(report.Entries) > 1 {
		fmt.Println(strings.Repeat("─", lineWidth))
		fmt.Printf("%-*s  %-10s  %12s  %12s  %13s  %13s  %10s\n",
			keyWidth, "Total", "",
			FormatNumber(report.TotalTokens.Input),
			FormatNumber(report.TotalTokens.Output),
			FormatNumber(report.TotalTokens.CacheWrite),
			FormatNumber(report.TotalTokens.CacheRead),
			FormatCost(report.TotalCost))
	}

	fmt.Println()
}

// PrintMonthlyReport prints per-month usage as a formatted table
func PrintMonthlyReport(report model.MonthlyReport, opts TableOptions) {
	if len(report.Entries) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	compact := shouldUseCompact(opts)
	keyWidth := 10 // YYYY-MM plus header padding

	fmt.Println()

	if compact {
		lineWidth := keyWidth + 2 + 12 + 2 + 12 + 2 + 10
		fmt.Printf("%-*s  %12s  %12s  %10s\n", keyWidth, "Month", "Input", "Output", "Cost")
		fmt.Println(strings.Repeat("─", lineWidth))
		for _, row := range report.Entries {
			fmt.Printf("%-*s  %12s  %12s  %10s\n",
				keyWidth, row.Month,
				FormatNumber(row.Tokens.Input),
				FormatNumber(row.Tokens.Output),
				FormatCost(row.Cost))
		}
	} else {
		lineWidth := keyWidth + 2 + 12 + 2 + 12 + 2 + 13 + 2 + 13 + 2 + 10 + 2 + 10
		fmt.Printf("%-*s  %12s  %12s  %13s  %13s  %10s  %10s\n",
			keyWidth, "Month", "Input", "Output", "Cache Write", "Cache Read", "Messages", "Cost")
		fmt.Println(strings.Repeat("─", lineWidth))
		for _, row := range report.Entries {
			fmt.Printf("%-*s  %12s  %12s  %13s  %13s  %10s  %10s\n",
				keyWidth, row.Month,
				FormatNumber(row.Tokens.Input),
				FormatNumber(row.Tokens.Output),
				FormatNumber(row.Tokens.CacheWrite),
				FormatNumber(row.Tokens.CacheRead),
				FormatNumber(int64(row.Messages)),
				FormatCost(row.Cost))
		}
	}

	fmt.Println()
	fmt.Printf("Total: %s\n", FormatCost(report.TotalCost))

	// Per-month model lists in full mode only
	if !compact {
		fmt.Println()
		fmt.Println("Models used:")
		seen := map[string]bool{}
		for _, row := range report.Entries {
			for _, m := range row.Models {
				short := shortenModelName(m)
				if !seen[short] {
					seen[short] = true
					fmt.Printf("  - %s\n", short)
				}
			}
		}
	}
	fmt.Println()
}

var intensityGlyphs = [5]string{"·", "░", "▒", "▓", "█"}

// PrintGraph prints the contribution graph summary plus a per-day
// intensity strip for the most recent days.
func PrintGraph(graph model.Graph, opts TableOptions) {
	if len(graph.Contributions) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	s := graph.Summary
	fmt.Println()
	fmt.Printf("Range:       %s to %s\n", graph.Meta.DateRangeStart, graph.Meta.DateRangeEnd)
	fmt.Printf("Tokens:      %s\n", FormatNumber(s.TotalTokens))
	fmt.Printf("Cost:        %s\n", FormatCost(s.TotalCost))
	fmt.Printf("Active days: %d of %d\n", s.ActiveDays, s.TotalDays)
	fmt.Printf("Average:     %s/day\n", FormatCost(s.AveragePerDay))

	if len(graph.Years) > 1 {
		fmt.Println()
		for _, y := range graph.Years {
			fmt.Printf("  %s  %12s tokens  %10s\n",
				y.Year, FormatNumber(y.TotalTokens), FormatCost(y.TotalCost))
		}
	}

	days := graph.Contributions
	strip := 60
	if shouldUseCompact(opts) {
		strip = 28
	}
	if len(days) > strip {
		days = days[len(days)-strip:]
	}

	fmt.Println()
	fmt.Printf("Last %d active days (%s to %s):\n", len(days), days[0].Date, days[len(days)-1].Date)
	var line strings.Builder
	for _, d := range days {
		idx := d.Intensity
		if idx < 0 || idx > 4 {
			idx = 0
		}
		line.WriteString(intensityGlyphs[idx])
	}
	fmt.Println("  " + line.String())
	fmt.Println()
}

// PrintJSON outputs any report as indented JSON
func PrintJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(v)
}
