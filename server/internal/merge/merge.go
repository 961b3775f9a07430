// Package merge reconciles submitted usage snapshots against the
// persisted per-user ledger. Merging is pure: callers serialize
// concurrent submissions per (user, day) at the storage layer.
package merge

import (
	"github.com/spilist/tokscale/internal/model"
)

// LegacyDeviceID is the reserved device slot holding data migrated from
// records that predate device tracking.
const LegacyDeviceID = "__legacy__"

// ModelAggregate sums one model's usage inside a (day, source) cell.
type ModelAggregate struct {
	Tokens     int64   `json:"tokens"`
	Cost       float64 `json:"cost"`
	Input      int64   `json:"input"`
	Output     int64   `json:"output"`
	CacheRead  int64   `json:"cacheRead"`
	CacheWrite int64   `json:"cacheWrite"`
	Reasoning  int64   `json:"reasoning"`
	Messages   int     `json:"messages"`
}

func (m *ModelAggregate) add(other ModelAggregate) {
	m.Tokens += other.Tokens
	m.Cost += other.Cost
	m.Input += other.Input
	m.Output += other.Output
	m.CacheRead += other.CacheRead
	m.CacheWrite += other.CacheWrite
	m.Reasoning += other.Reasoning
	m.Messages += other.Messages
}

// DeviceAggregate is one device's current contribution to a (day,
// source) cell. Resubmission replaces it wholesale.
type DeviceAggregate struct {
	Tokens     int64                     `json:"tokens"`
	Cost       float64                   `json:"cost"`
	Input      int64                     `json:"input"`
	Output     int64                     `json:"output"`
	CacheRead  int64                     `json:"cacheRead"`
	CacheWrite int64                     `json:"cacheWrite"`
	Reasoning  int64                     `json:"reasoning"`
	Messages   int                       `json:"messages"`
	Models     map[string]ModelAggregate `json:"models,omitempty"`
}

// SourceBreakdown is the persisted cell for one (user, day, source).
// Records written before device tracking have a nil Devices map and may
// carry a flat ModelID instead of a Models map; both shapes migrate to
// the LegacyDeviceID slot on first merge.
type SourceBreakdown struct {
	Tokens     int64                      `json:"tokens"`
	Cost       float64                    `json:"cost"`
	Input      int64                      `json:"input"`
	Output     int64                      `json:"output"`
	CacheRead  int64                      `json:"cacheRead"`
	CacheWrite int64                      `json:"cacheWrite"`
	Reasoning  int64                      `json:"reasoning"`
	Messages   int                        `json:"messages"`
	ModelID    string                     `json:"modelId,omitempty"`
	Models     map[string]ModelAggregate  `json:"models,omitempty"`
	Devices    map[string]DeviceAggregate `json:"devices,omitempty"`
}

func (b SourceBreakdown) hasData() bool {
	return b.Tokens != 0 || b.Cost != 0 || b.Messages != 0 ||
		b.Input != 0 || b.Output != 0 || b.CacheRead != 0 || b.CacheWrite != 0 || b.Reasoning != 0
}

// upgrade migrates a pre-device record into its LegacyDeviceID slot.
// Aggregate fields copy verbatim; the model breakdown keeps the Models
// map when present, else synthesizes one from the flat ModelID.
func upgrade(legacy SourceBreakdown) DeviceAggregate {
	agg := DeviceAggregate{
		Tokens:     legacy.Tokens,
		Cost:       legacy.Cost,
		Input:      legacy.Input,
		Output:     legacy.Output,
		CacheRead:  legacy.CacheRead,
		CacheWrite: legacy.CacheWrite,
		Reasoning:  legacy.Reasoning,
		Messages:   legacy.Messages,
	}

	if len(legacy.Models) > 0 {
		agg.Models = make(map[string]ModelAggregate, len(legacy.Models))
		for id, m := range legacy.Models {
			agg.Models[id] = m
		}
		return agg
	}

	if legacy.ModelID != "" {
		agg.Models = map[string]ModelAggregate{
			legacy.ModelID: {
				Tokens:     legacy.Tokens,
				Cost:       legacy.Cost,
				Input:      legacy.Input,
				Output:     legacy.Output,
				CacheRead:  legacy.CacheRead,
				CacheWrite: legacy.CacheWrite,
				Reasoning:  legacy.Reasoning,
				Messages:   legacy.Messages,
			},
		}
	}
	return agg
}

// MergeDay reconciles one day's persisted cells with a submission from
// one device. existing maps source to its persisted cell; incoming maps
// source to this device's freshly computed contribution; requested lists
// every source the submission run covered, with or without data.
//
// For each source with incoming data, the device's slot is overwritten
// and the cell's aggregates are recomputed as the sum over all device
// slots. A requested source with no incoming data stays untouched so
// other devices' contributions survive. Sources outside the request are
// not part of this submission at all.
func MergeDay(
	existing map[model.Source]SourceBreakdown,
	incoming map[model.Source]DeviceAggregate,
	requested []model.Source,
	deviceID string,
) map[model.Source]SourceBreakdown {
	result := make(map[model.Source]SourceBreakdown, len(existing)+len(incoming))
	for source, cell := range existing {
		result[source] = cell
	}

	for _, source := range requested {
		contribution, ok := incoming[source]
		if !ok {
			continue
		}

		cell, exists := result[source]

		devices := make(map[string]DeviceAggregate)
		if exists && cell.Devices != nil {
			for id, agg := range cell.Devices {
				devices[id] = agg
			}
		} else if exists && cell.hasData() {
			// exactly-once migration: once a Devices map exists this
			// branch can never run again
			devices[LegacyDeviceID] = upgrade(cell)
		}

		devices[deviceID] = contribution

		result[source] = recompute(devices)
	}

	return result
}

// recompute derives every top-level aggregate of a cell from its device
// slots. Aggregates are never accumulated incrementally.
func recompute(devices map[string]DeviceAggregate) SourceBreakdown {
	cell := SourceBreakdown{
		Devices: devices,
		Models:  make(map[string]ModelAggregate),
	}

	for _, agg := range devices {
		cell.Tokens += agg.Tokens
		cell.Cost += agg.Cost
		cell.Input += agg.Input
		cell.Output += agg.Output
		cell.CacheRead += agg.CacheRead
		cell.CacheWrite += agg.CacheWrite
		cell.Reasoning += agg.Reasoning
		cell.Messages += agg.Messages

		for id, m := range agg.Models {
			total := cell.Models[id]
			total.add(m)
			cell.Models[id] = total
		}
	}

	return cell
}

// FromContribution converts one day of a submitted snapshot into the
// per-source device aggregates the merge consumes.
func FromContribution(daily model.DailyContribution) map[model.Source]DeviceAggregate {
	out := make(map[model.Source]DeviceAggregate)
	for _, sc := range daily.Sources {
		agg := out[sc.Source]
		if agg.Models == nil {
			agg.Models = make(map[string]ModelAggregate)
		}

		m := agg.Models[sc.ModelID]
		m.Tokens += sc.Tokens.Total()
		m.Cost += sc.Cost
		m.Input += sc.Tokens.Input
		m.Output += sc.Tokens.Output
		m.CacheRead += sc.Tokens.CacheRead
		m.CacheWrite += sc.Tokens.CacheWrite
		m.Reasoning += sc.Tokens.Reasoning
		m.Messages += sc.Messages
		agg.Models[sc.ModelID] = m

		agg.Tokens += sc.Tokens.Total()
		agg.Cost += sc.Cost
		agg.Input += sc.Tokens.Input
		agg.Output += sc.Tokens.Output
		agg.CacheRead += sc.Tokens.CacheRead
		agg.CacheWrite += sc.Tokens.CacheWrite
		agg.Reasoning += sc.Tokens.Reasoning
		agg.Messages += sc.Messages
		out[sc.Source] = agg
	}
	return out
}
