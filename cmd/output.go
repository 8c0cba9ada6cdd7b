package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/mdmtools/patchscope/pkg/report"
	"github.com/mdmtools/patchscope/pkg/trend"
)

// The presentation layer: everything below renders plain structured rows
// into CSV files for whatever spreadsheet tooling consumes them.

var unsafeSheetChars = regexp.MustCompile(`[^A-Za-z0-9 _-]`)

// detailFileName sanitizes a title into a usable file name.
func detailFileName(title string) string {
	safe := unsafeSheetChars.ReplaceAllString(title, "_")
	if safe == "" {
		safe = "Detail"
	}
	return safe + "_Detail.csv"
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeReportInfo(dir, org, reportDate string, activeDays int) error {
	return writeCSV(filepath.Join(dir, "Report_Info.csv"),
		[]string{"Organization", "Report Date", "Active Window (days)"},
		[][]string{{org, reportDate, strconv.Itoa(activeDays)}})
}

func writeBaselineSummaries(dir string, summaries []report.Summary) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Title,
			s.Baseline,
			strconv.Itoa(s.ActiveDevices),
			strconv.Itoa(s.Compliant),
			strconv.Itoa(s.NonCompliant),
			formatPercent(s.CompliancePercent),
		})
	}
	return writeCSV(filepath.Join(dir, "Baseline_Summary.csv"),
		[]string{"Title", "Baseline (>=)", "Active Devices", "Compliant (>= baseline)", "Non-Compliant", "Compliance %"},
		rows)
}

func writeDetailRows(dir, title string, details []report.DetailRow) error {
	rows := make([][]string, 0, len(details))
	for _, d := range details {
		compliant := "No"
		if d.Compliant {
			compliant = "Yes"
		}
		rows = append(rows, []string{
			d.ComputerName, d.Username, d.DeviceID, d.OSVersion,
			d.LastContactTime, d.InstalledVersion, compliant,
		})
	}
	return writeCSV(filepath.Join(dir, detailFileName(title)),
		[]string{"Computer Name", "Username", "Device ID", "OS Version", "Last Contact Time", "Installed Version", "Compliant (>= baseline)"},
		rows)
}

func writeOverall(dir, name string, rows []report.OverallRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Title, r.TitleID, r.LatestVersion, r.ReleaseDate,
			strconv.Itoa(r.HostsAll),
			strconv.Itoa(r.PatchedAll),
			strconv.Itoa(r.OutOfDateAll),
			formatPercent(r.CompletionAll),
			strconv.Itoa(r.PatchedScaled),
			strconv.Itoa(r.OutOfDateScaled),
			formatPercent(r.CompletionScaled),
		})
	}
	return writeCSV(filepath.Join(dir, name),
		[]string{"Title", "Title ID", "Latest Version", "Release Date",
			"Hosts (All)", "Patched (All)", "Out-of-date (All)", "Completion % (All)",
			"Patched (Active-scaled)", "Out-of-date (Active-scaled)", "Completion % (Active-scaled)"},
		out)
}

func writeTrend(path string, rows []trend.Row, dates []string) error {
	header := append([]string{"Serial Number", "Computer Name"}, dates...)
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := []string{r.EntityKey, r.Label}
		for _, d := range dates {
			if v, ok := r.Values[d]; ok {
				line = append(line, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				line = append(line, "")
			}
		}
		out = append(out, line)
	}
	return writeCSV(path, header, out)
}

func formatPercent(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func printSummaries(summaries []report.Summary) {
	for _, s := range summaries {
		fmt.Printf("%s\tbaseline=%s\tactive=%d\tcompliant=%d\tnon-compliant=%d\t%.2f%%\n",
			s.Title, s.Baseline, s.ActiveDevices, s.Compliant, s.NonCompliant, s.CompliancePercent)
	}
}
