// Package trend merges dated compliance snapshots into a per-device failure
// time series for longitudinal reporting. Which snapshots feed the merge is
// the caller's policy; Build only consumes an ordered list.
package trend

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Point is one device's failure count on one snapshot date.
type Point struct {
	EntityKey string // stable identity, e.g. serial number
	Label     string // display label, e.g. computer name
	DateKey   string // YYYY-MM-DD
	Failures  int
}

// Snapshot is one dated compliance export.
type Snapshot struct {
	Source  string
	DateKey string
	Points  []Point
}

// Row is one device's failure history across all snapshot dates. A date
// missing from Values means the device was absent from that snapshot, not
// that it had zero failures.
type Row struct {
	EntityKey string
	Label     string
	Values    map[string]float64
}

// AverageKey labels the synthetic trailing average row.
const AverageKey = "Average Failed Checks"

// Build unions all snapshots keyed by (entity, date). Rows come out in
// discovery order followed by exactly one average row, where each date's
// value is the mean over only the entities present on that date.
func Build(snapshots []Snapshot) ([]Row, []string) {
	history := make(map[string]map[string]float64)
	labels := make(map[string]string)
	var order []string
	dateSet := make(map[string]bool)

	for _, snap := range snapshots {
		dateSet[snap.DateKey] = true
		for _, p := range snap.Points {
			if _, seen := history[p.EntityKey]; !seen {
				history[p.EntityKey] = make(map[string]float64)
				order = append(order, p.EntityKey)
			}
			history[p.EntityKey][p.DateKey] = float64(p.Failures)
			labels[p.EntityKey] = p.Label
		}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	rows := make([]Row, 0, len(order)+1)
	for _, key := range order {
		rows = append(rows, Row{EntityKey: key, Label: labels[key], Values: history[key]})
	}

	avg := Row{EntityKey: AverageKey, Values: make(map[string]float64)}
	for _, d := range dates {
		sum := 0.0
		n := 0
		for _, key := range order {
			if v, present := history[key][d]; present {
				sum += v
				n++
			}
		}
		if n > 0 {
			avg.Values[d] = sum / float64(n)
		}
	}
	rows = append(rows, avg)

	return rows, dates
}

// filename date token like 2025-03-22T09_15_00
var nameDateRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})T\d{2}_\d{2}_\d{2}`)

// DateFromName extracts the YYYY-MM-DD date token embedded in a snapshot
// file name, or "" when the name carries none.
func DateFromName(name string) string {
	m := nameDateRe.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return ""
	}
	return m[1]
}

// SelectRecent picks the snapshot files to merge: CSVs under dir modified
// within windowDays, dated by the filename token (files without one fall
// back to their modification time), sorted by date, keeping the most recent
// keep files.
func SelectRecent(dir string, windowDays, keep int, now time.Time) ([]Snapshot, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no CSV files found in %s", dir)
	}

	cutoff := now.AddDate(0, 0, -windowDays)
	type dated struct {
		path string
		date string
	}
	var files []dated
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if windowDays > 0 && info.ModTime().Before(cutoff) {
			continue
		}
		date := DateFromName(path)
		if date == "" {
			date = info.ModTime().Format("2006-01-02")
		}
		files = append(files, dated{path: path, date: date})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV files in %s were modified in the last %d days", dir, windowDays)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].date < files[j].date })
	if keep > 0 && len(files) > keep {
		files = files[len(files)-keep:]
	}

	snapshots := make([]Snapshot, 0, len(files))
	for _, f := range files {
		snap, err := ReadSnapshotCSV(f.path, f.date)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// snapshot CSV column headers, as exported by the compliance report job
const (
	colSerial   = "Serial Number"
	colComputer = "Computer Name"
	colFailed   = "Compliance - Failed mSCP Results Count"
)

// ReadSnapshotCSV parses one dated compliance export.
func ReadSnapshotCSV(path, dateKey string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return Snapshot{}, errors.New("snapshot CSV is empty: " + path)
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colSerial, colComputer, colFailed} {
		if _, ok := cols[required]; !ok {
			return Snapshot{}, fmt.Errorf("%s is missing column %q", path, required)
		}
	}

	snap := Snapshot{Source: path, DateKey: dateKey}
	for _, rec := range records[1:] {
		if cols[colSerial] >= len(rec) || cols[colComputer] >= len(rec) || cols[colFailed] >= len(rec) {
			continue
		}
		serial := strings.TrimSpace(rec[cols[colSerial]])
		if serial == "" {
			continue
		}
		failures, err := strconv.Atoi(strings.TrimSpace(rec[cols[colFailed]]))
		if err != nil {
			continue
		}
		snap.Points = append(snap.Points, Point{
			EntityKey: serial,
			Label:     strings.TrimSpace(rec[cols[colComputer]]),
			DateKey:   dateKey,
			Failures:  failures,
		})
	}
	return snap, nil
}
