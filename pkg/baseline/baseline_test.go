package baseline

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSelectionsFileCSV(t *testing.T) {
	path := writeFile(t, "titles.csv", strings.Join([]string{
		"title,min_version",
		"Google Chrome,129.0",
		"Mozilla Firefox,128.0",
		"Adobe Acrobat Reader,",
		",ignored",
		"",
	}, "\n"))

	got, err := ReadSelectionsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []Selection{
		{Title: "Google Chrome", MinVersion: "129.0"},
		{Title: "Mozilla Firefox", MinVersion: "128.0"},
		{Title: "Adobe Acrobat Reader"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadSelectionsFileCSVMissingTitleColumn(t *testing.T) {
	path := writeFile(t, "bad.csv", "name,min_version\nChrome,1.0\n")
	if _, err := ReadSelectionsFile(path); err == nil {
		t.Fatal("expected an error for a CSV without a title column")
	}
}

func TestReadSelectionsFileYAML(t *testing.T) {
	path := writeFile(t, "titles.yaml", `
- title: Google Chrome
  min_version: "129.0"
- title: Slack
`)
	got, err := ReadSelectionsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []Selection{
		{Title: "Google Chrome", MinVersion: "129.0"},
		{Title: "Slack"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadSelectionsFilePlainList(t *testing.T) {
	path := writeFile(t, "titles.txt", "Google Chrome\n\n  Slack  \n")
	got, err := ReadSelectionsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []Selection{
		{Title: "Google Chrome"},
		{Title: "Slack"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

var catalog = []Title{
	{ID: "11", Name: "Google Chrome"},
	{ID: "22", Name: "Mozilla Firefox"},
	{ID: "33", Name: "Slack"},
}

func TestResolve(t *testing.T) {
	sels := []Selection{
		{Title: "google chrome", MinVersion: "129.0"}, // case-insensitive match
		{Title: "Not A Real Title"},                   // dropped with a warning
		{Title: "Slack"},
		{Title: "GOOGLE CHROME", MinVersion: "999"}, // duplicate id, first wins
	}
	got := Resolve(sels, catalog)
	want := []Selection{
		{ID: "11", Title: "google chrome", MinVersion: "129.0"},
		{ID: "33", Title: "Slack"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestApplyGlobalDefault(t *testing.T) {
	sels := []Selection{
		{ID: "11", Title: "Google Chrome", MinVersion: "23.008.20458"},
		{ID: "22", Title: "Mozilla Firefox"},
		{ID: "33", Title: "Slack", MinVersion: "  "},
	}
	got := ApplyGlobalDefault(sels, "100.0")
	want := []Selection{
		{ID: "11", Title: "Google Chrome", MinVersion: "23.008.20458"}, // explicit value untouched
		{ID: "22", Title: "Mozilla Firefox", MinVersion: "100.0"},
		{ID: "33", Title: "Slack", MinVersion: "100.0"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// input slice must not be mutated
	if sels[1].MinVersion != "" {
		t.Error("ApplyGlobalDefault mutated its input")
	}
}

func TestFromCatalog(t *testing.T) {
	got := FromCatalog(catalog)
	if len(got) != len(catalog) {
		t.Fatalf("got %d selections, want %d", len(got), len(catalog))
	}
	for i, s := range got {
		if s.ID != catalog[i].ID || s.Title != catalog[i].Name || s.MinVersion != "" {
			t.Errorf("selection %d = %v", i, s)
		}
	}
}
