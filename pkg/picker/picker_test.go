package picker

import (
	"reflect"
	"strings"
	"testing"

	"github.com/mdmtools/patchscope/pkg/baseline"
)

var catalog = []baseline.Title{
	{ID: "1", Name: "Google Chrome"},
	{ID: "2", Name: "Mozilla Firefox"},
	{ID: "3", Name: "Slack"},
	{ID: "4", Name: "Zoom"},
}

// drive runs a sequence of inputs through the machine.
func drive(t *testing.T, inputs ...string) State {
	t.Helper()
	state, _ := New(catalog)
	for _, in := range inputs {
		state, _ = Step(state, in)
	}
	return state
}

func TestSearchFilters(t *testing.T) {
	state, _ := New(catalog)
	state, effect := Step(state, "moz")

	if state.Phase != Filtered {
		t.Fatalf("phase = %v, want Filtered", state.Phase)
	}
	if len(state.Filtered) != 1 || state.Filtered[0].Name != "Mozilla Firefox" {
		t.Errorf("filtered = %v", state.Filtered)
	}
	if !strings.Contains(strings.Join(effect.Output, "\n"), "1 titles") {
		t.Errorf("listing output missing count: %v", effect.Output)
	}
}

func TestNumberAndRangePicks(t *testing.T) {
	state := drive(t, "1,3-4")
	if state.Phase != Selecting {
		t.Fatalf("phase = %v, want Selecting", state.Phase)
	}
	var names []string
	for _, s := range state.Selected {
		names = append(names, s.Title)
	}
	want := []string{"Google Chrome", "Slack", "Zoom"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("selected %v, want %v", names, want)
	}
}

func TestOutOfRangePicksIgnored(t *testing.T) {
	state := drive(t, "99")
	if len(state.Selected) != 0 {
		t.Errorf("selected %v, want none", state.Selected)
	}
}

func TestAllSelectsFiltered(t *testing.T) {
	// search first, then "all": only the filtered subset gets selected
	state := drive(t, "o")
	state, effect := Step(state, "all")

	if state.Phase != Confirming {
		t.Fatalf("phase = %v, want Confirming", state.Phase)
	}
	if effect.Prompt == "" {
		t.Error("expected a baseline prompt")
	}
	for _, s := range state.Selected {
		if !strings.Contains(strings.ToLower(s.Title), "o") {
			t.Errorf("selected title outside filter: %s", s.Title)
		}
	}
}

func TestDoneWithoutPicksFinishesEmpty(t *testing.T) {
	state := drive(t, "done")
	if state.Phase != Done {
		t.Fatalf("phase = %v, want Done", state.Phase)
	}
	if len(state.Selected) != 0 {
		t.Errorf("selected %v", state.Selected)
	}
}

func TestConfirmingCollectsBaselines(t *testing.T) {
	state := drive(t, "1,2", "done")
	if state.Phase != Confirming {
		t.Fatalf("phase = %v, want Confirming", state.Phase)
	}

	state, effect := Step(state, "129.0")
	if effect.Prompt == "" {
		t.Fatal("expected a prompt for the second title")
	}
	state, _ = Step(state, "")

	if state.Phase != Done {
		t.Fatalf("phase = %v, want Done", state.Phase)
	}
	want := []baseline.Selection{
		{ID: "1", Title: "Google Chrome", MinVersion: "129.0"},
		{ID: "2", Title: "Mozilla Firefox", MinVersion: ""},
	}
	if !reflect.DeepEqual(state.Selected, want) {
		t.Errorf("selected %v, want %v", state.Selected, want)
	}
}

func TestDuplicatePicksDeduped(t *testing.T) {
	state := drive(t, "1", "1", "done")
	if len(state.Selected) != 1 {
		t.Fatalf("selected %d titles, want 1 after dedupe", len(state.Selected))
	}
	if state.Selected[0].ID != "1" {
		t.Errorf("selected %v", state.Selected[0])
	}
}

func TestHelpKeepsState(t *testing.T) {
	state := drive(t, "1", "?")
	if state.Phase != Selecting {
		t.Errorf("phase = %v, want Selecting preserved across help", state.Phase)
	}
	if len(state.Selected) != 1 {
		t.Errorf("help reset selections: %v", state.Selected)
	}
}

func TestSearchAfterPicksKeepsSelections(t *testing.T) {
	state := drive(t, "1", "slack", "1", "done", "", "")
	// picked Chrome from the full list, then Slack from the filtered list
	if state.Phase != Done {
		t.Fatalf("phase = %v, want Done", state.Phase)
	}
	var ids []string
	for _, s := range state.Selected {
		ids = append(ids, s.ID)
	}
	if !reflect.DeepEqual(ids, []string{"1", "3"}) {
		t.Errorf("selected ids %v, want [1 3]", ids)
	}
}
