// Package report turns collected device records into compliance statistics:
// per-title baseline summaries with per-device detail rows, and the
// fleet-wide "Overall" table that scales vendor-reported counts by the
// active-device ratio when no baselines are in play.
package report

import (
	"math"
	"strings"
	"time"

	"github.com/mdmtools/patchscope/pkg/activity"
	"github.com/mdmtools/patchscope/pkg/baseline"
	"github.com/mdmtools/patchscope/pkg/jamf"
	"github.com/mdmtools/patchscope/pkg/version"
)

// Summary is the compliance rollup for one title against its baseline.
type Summary struct {
	Title             string
	Baseline          string // "(none)" when no floor was set
	ActiveDevices     int
	Compliant         int
	NonCompliant      int
	CompliancePercent float64
}

// DetailRow is one device's classification against the baseline.
type DetailRow struct {
	ComputerName     string
	Username         string
	DeviceID         string
	OSVersion        string
	LastContactTime  string
	InstalledVersion string
	Compliant        bool
}

// BuildBaselineSummary filters rows by the activity window (windowDays <= 0
// keeps everything), classifies each survivor against the selection's
// baseline, and returns the rollup plus the full detail rows. NonCompliant
// never goes negative, even under inconsistent inputs.
func BuildBaselineSummary(sel baseline.Selection, rows []jamf.DeviceRecord, windowDays int, now time.Time) (Summary, []DetailRow) {
	active := activity.FilterActive(rows, func(r jamf.DeviceRecord) string {
		return r.LastContactTime
	}, windowDays, now)

	compliant := 0
	details := make([]DetailRow, 0, len(active))
	for _, r := range active {
		installed := strings.TrimSpace(r.InstalledVersion)
		ok := version.AtLeast(installed, sel.MinVersion)
		if ok {
			compliant++
		}
		details = append(details, DetailRow{
			ComputerName:     r.ComputerName,
			Username:         r.Username,
			DeviceID:         r.DeviceID,
			OSVersion:        r.OSVersion,
			LastContactTime:  r.LastContactTime,
			InstalledVersion: installed,
			Compliant:        ok,
		})
	}

	displayBaseline := sel.MinVersion
	if displayBaseline == "" {
		displayBaseline = "(none)"
	}

	total := len(active)
	pct := 0.0
	if total > 0 {
		pct = round2(float64(compliant) / float64(total) * 100.0)
	}
	nonCompliant := total - compliant
	if nonCompliant < 0 {
		nonCompliant = 0
	}

	return Summary{
		Title:             sel.Title,
		Baseline:          displayBaseline,
		ActiveDevices:     total,
		Compliant:         compliant,
		NonCompliant:      nonCompliant,
		CompliancePercent: pct,
	}, details
}

// FleetRatio is the fleet-wide fraction of inventory that checked in within
// the window. Used as a global multiplier, not as per-item filtering.
type FleetRatio struct {
	Total  int
	Active int
	Ratio  float64
}

// CalculateActiveRatio counts active devices over the whole inventory.
// Devices with a missing or unparseable last-contact time count toward the
// total but never as active.
func CalculateActiveRatio(lastContacts []string, windowDays int, now time.Time) FleetRatio {
	total := 0
	active := 0
	for _, lc := range lastContacts {
		total++
		if lc == "" {
			continue
		}
		if activity.IsActive(lc, windowDays, now) {
			active++
		}
	}
	ratio := 0.0
	if total > 0 {
		ratio = float64(active) / float64(total)
	}
	return FleetRatio{Total: total, Active: active, Ratio: ratio}
}

// OverallRow is one title of the fleet-wide table built from vendor
// summaries in ratio mode.
type OverallRow struct {
	Title            string
	TitleID          string
	LatestVersion    string
	ReleaseDate      string
	HostsAll         int
	PatchedAll       int
	OutOfDateAll     int
	CompletionAll    float64
	PatchedScaled    int
	OutOfDateScaled  int
	CompletionScaled float64
}

// BuildOverall computes raw and active-scaled completion for each vendor
// summary. Counts are rounded before the scaled percentage is recomputed, so
// the scaled parts may not sum to round(total*ratio); that rounding order is
// intentional, a lossy estimate of the active population rather than a true
// per-device determination.
func BuildOverall(summaries []jamf.PatchSummary, ratio float64) []OverallRow {
	rows := make([]OverallRow, 0, len(summaries))
	for _, s := range summaries {
		total := s.HostsPatched + s.HostsOutOfDate
		completion := 0.0
		if total > 0 {
			completion = round2(float64(s.HostsPatched) / float64(total) * 100.0)
		}

		adjPatched := int(math.Round(float64(s.HostsPatched) * ratio))
		adjOut := int(math.Round(float64(s.HostsOutOfDate) * ratio))
		adjTotal := adjPatched + adjOut
		adjCompletion := 0.0
		if adjTotal > 0 {
			adjCompletion = round2(float64(adjPatched) / float64(adjTotal) * 100.0)
		}

		rows = append(rows, OverallRow{
			Title:            s.Title,
			TitleID:          s.TitleID,
			LatestVersion:    s.LatestVersion,
			ReleaseDate:      s.ReleaseDate,
			HostsAll:         total,
			PatchedAll:       s.HostsPatched,
			OutOfDateAll:     s.HostsOutOfDate,
			CompletionAll:    completion,
			PatchedScaled:    adjPatched,
			OutOfDateScaled:  adjOut,
			CompletionScaled: adjCompletion,
		})
	}
	return rows
}

// FilterTop keeps the rows whose title or id appears in names
// (case-insensitive), preserving order. Used for the top-titles highlight
// list.
func FilterTop(rows []OverallRow, names []string) []OverallRow {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			want[n] = true
		}
	}
	var out []OverallRow
	for _, r := range rows {
		if want[strings.ToLower(r.Title)] || want[strings.ToLower(r.TitleID)] {
			out = append(out, r)
		}
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
