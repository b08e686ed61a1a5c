package queuesync

import (
	"strings"

	"github.com/tubequeue/tubequeue/common"
)

// CronPreset is one entry of the fixed set of named recurring intervals
// offered by the schedule editor.
type CronPreset struct {
	ID    string
	Label string
	Expr  string
}

// PresetCustom is the editor interval id for expressions that match no
// preset.
const PresetCustom = "custom"

// CronPresets is the fixed preset table, in display order.
var CronPresets = []CronPreset{
	{ID: "every30min", Label: "Every 30 minutes", Expr: "*/30 * * * *"},
	{ID: "hourly", Label: "Every hour", Expr: "0 * * * *"},
	{ID: "every6h", Label: "Every 6 hours", Expr: "0 */6 * * *"},
	{ID: "daily", Label: "Every day at midnight", Expr: "0 0 * * *"},
	{ID: "weekly", Label: "Every Sunday at midnight", Expr: "0 0 * * 0"},
	{ID: "monthly", Label: "First of every month", Expr: "0 0 1 * *"},
}

func normalizeCron(expr string) string {
	return strings.Join(strings.Fields(expr), " ")
}

// MatchPreset reverse-matches a cron string against the preset table. It
// recognizes both the raw expression and the "@id" alias spelling.
func MatchPreset(expr string) (CronPreset, bool) {
	norm := normalizeCron(expr)
	for _, p := range CronPresets {
		if norm == p.Expr || norm == "@"+p.ID {
			return p, true
		}
	}
	return CronPreset{}, false
}

// ScheduleEditor is the UI state for editing one schedule. The interval
// selector holds a preset id, or PresetCustom with the literal cron
// string in Custom, so round-tripping a schedule preserves its exact
// expression even when it is not a preset.
type ScheduleEditor struct {
	ID     int64
	URL    string
	Folder string

	Interval string // preset id or PresetCustom
	Custom   string // literal expression when Interval is PresetCustom
}

// StartEdit seeds an editor from an existing schedule.
func StartEdit(s common.Schedule) ScheduleEditor {
	e := ScheduleEditor{ID: s.ID, URL: s.URL, Folder: s.Folder}
	if p, ok := MatchPreset(s.Cron); ok {
		e.Interval = p.ID
		return e
	}
	e.Interval = PresetCustom
	e.Custom = s.Cron
	return e
}

// Cron returns the expression the editor currently denotes.
func (e ScheduleEditor) Cron() string {
	if e.Interval == PresetCustom {
		return e.Custom
	}
	for _, p := range CronPresets {
		if p.ID == e.Interval {
			return p.Expr
		}
	}
	return e.Custom
}
