// Package baseline loads administrator-supplied title selections and
// resolves them against the backend's software-title catalog.
package baseline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mdmtools/patchscope/internal/utils"
)

// Title is one entry of the software-title catalog.
type Title struct {
	ID   string
	Name string
}

// Selection is a tracked title with its minimum acceptable version. An empty
// MinVersion means no floor: every device counts as compliant.
type Selection struct {
	ID         string `yaml:"-"`
	Title      string `yaml:"title"`
	MinVersion string `yaml:"min_version"`
}

// ReadSelectionsFile reads title selections from disk. Three formats are
// accepted by extension: CSV with a required "title" header and optional
// "min_version", YAML as a list of {title, min_version}, and anything else
// as a plain newline-separated list of titles with no baseline.
func ReadSelectionsFile(path string) ([]Selection, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".yaml", ".yml":
		return readYAML(path)
	default:
		return readPlainList(path)
	}
}

func readCSV(path string) ([]Selection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, errors.New("titles CSV is empty")
	}

	titleCol, minVersCol := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "title":
			titleCol = i
		case "min_version":
			minVersCol = i
		}
	}
	if titleCol < 0 {
		return nil, errors.New("titles CSV must include a 'title' column; 'min_version' is optional")
	}

	var sels []Selection
	for _, row := range rows[1:] {
		if titleCol >= len(row) {
			continue
		}
		title := strings.TrimSpace(row[titleCol])
		if title == "" {
			continue
		}
		minVers := ""
		if minVersCol >= 0 && minVersCol < len(row) {
			minVers = strings.TrimSpace(row[minVersCol])
		}
		sels = append(sels, Selection{Title: title, MinVersion: minVers})
	}
	return sels, nil
}

func readYAML(path string) ([]Selection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sels []Selection
	if err := yaml.Unmarshal(raw, &sels); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	out := sels[:0]
	for _, s := range sels {
		s.Title = strings.TrimSpace(s.Title)
		s.MinVersion = strings.TrimSpace(s.MinVersion)
		if s.Title != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func readPlainList(path string) ([]Selection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sels []Selection
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			sels = append(sels, Selection{Title: line})
		}
	}
	return sels, nil
}

// Resolve matches selections to catalog titles by case-insensitive exact
// name. Unresolvable names are logged and dropped so the run proceeds with
// whatever subset resolves. Duplicates by id keep the first occurrence.
func Resolve(sels []Selection, catalog []Title) []Selection {
	nameToID := make(map[string]string, len(catalog))
	for _, t := range catalog {
		nameToID[strings.ToLower(t.Name)] = t.ID
	}

	var resolved []Selection
	for _, s := range sels {
		id, ok := nameToID[strings.ToLower(s.Title)]
		if !ok {
			utils.Log.Warn("Title not found in catalog: '", s.Title, "' (skipping)")
			continue
		}
		s.ID = id
		resolved = append(resolved, s)
	}
	return Dedupe(resolved)
}

// Dedupe removes duplicate selections by id, keeping the first occurrence.
func Dedupe(sels []Selection) []Selection {
	seen := make(map[string]bool, len(sels))
	out := make([]Selection, 0, len(sels))
	for _, s := range sels {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

// ApplyGlobalDefault fills def into selections whose baseline is still
// empty. An explicit non-empty baseline is never overwritten.
func ApplyGlobalDefault(sels []Selection, def string) []Selection {
	def = strings.TrimSpace(def)
	if def == "" {
		return sels
	}
	out := make([]Selection, len(sels))
	copy(out, sels)
	for i := range out {
		if strings.TrimSpace(out[i].MinVersion) == "" {
			out[i].MinVersion = def
		}
	}
	return out
}

// FromCatalog builds one empty-baseline selection per catalog title, the
// default when no file or interactive picks were supplied.
func FromCatalog(catalog []Title) []Selection {
	sels := make([]Selection, 0, len(catalog))
	for _, t := range catalog {
		sels = append(sels, Selection{ID: t.ID, Title: t.Name})
	}
	return sels
}
