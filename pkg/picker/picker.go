// Package picker models the interactive title picker as a pure state
// machine: Step maps (state, command text) to the next state plus what to
// print, so the whole selection flow is testable without an input stream.
// The cmd layer owns the actual read loop.
package picker

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mdmtools/patchscope/pkg/baseline"
)

// Phase tracks where the picker is in its flow.
type Phase int

const (
	// Browsing shows the unfiltered catalog.
	Browsing Phase = iota
	// Filtered shows a search-narrowed subset.
	Filtered
	// Selecting has at least one pick accumulated.
	Selecting
	// Confirming prompts for a baseline per picked title.
	Confirming
	// Done means the selections are final.
	Done
)

const listLimit = 50

// State is an immutable picker snapshot. Step returns a new one.
type State struct {
	Phase    Phase
	Catalog  []baseline.Title
	Filtered []baseline.Title
	Selected []baseline.Selection
	// index of the selection currently being prompted for a baseline
	promptIdx int
}

// Effect is what the caller should present after a step.
type Effect struct {
	Output []string
	Prompt string
}

// New starts a picker over the full catalog.
func New(catalog []baseline.Title) (State, Effect) {
	s := State{Phase: Browsing, Catalog: catalog, Filtered: catalog}
	return s, Effect{Output: listing(s), Prompt: "Search / numbers / command: "}
}

var numberListRe = regexp.MustCompile(`^[0-9,\-\s]+$`)

// Step advances the picker by one line of input.
func Step(s State, input string) (State, Effect) {
	input = strings.TrimSpace(input)

	if s.Phase == Confirming {
		return stepConfirming(s, input)
	}
	if s.Phase == Done {
		return s, Effect{}
	}

	switch {
	case input == "":
		return s, Effect{Output: listing(s), Prompt: "Search / numbers / command: "}

	case strings.EqualFold(input, "?") || strings.EqualFold(input, "help"):
		return s, Effect{
			Output: []string{"Enter search text, or 'all', or 'done', or numbers like '1,3-6'."},
			Prompt: "Search / numbers / command: ",
		}

	case strings.EqualFold(input, "done"):
		return beginConfirming(s)

	case strings.EqualFold(input, "all"):
		for _, t := range s.Filtered {
			s.Selected = append(s.Selected, baseline.Selection{ID: t.ID, Title: t.Name})
		}
		return beginConfirming(s)

	case numberListRe.MatchString(input):
		picks := parsePicks(input)
		added := 0
		for _, idx := range picks {
			if idx >= 1 && idx <= len(s.Filtered) {
				t := s.Filtered[idx-1]
				s.Selected = append(s.Selected, baseline.Selection{ID: t.ID, Title: t.Name})
				added++
			}
		}
		s.Phase = Selecting
		return s, Effect{
			Output: append([]string{fmt.Sprintf("Added %d selections.", added)}, listing(s)...),
			Prompt: "Search / numbers / command: ",
		}

	default:
		q := strings.ToLower(input)
		var filtered []baseline.Title
		for _, t := range s.Catalog {
			if strings.Contains(strings.ToLower(t.Name), q) {
				filtered = append(filtered, t)
			}
		}
		s.Filtered = filtered
		if s.Phase != Selecting {
			s.Phase = Filtered
		}
		return s, Effect{Output: listing(s), Prompt: "Search / numbers / command: "}
	}
}

func beginConfirming(s State) (State, Effect) {
	s.Selected = baseline.Dedupe(s.Selected)
	if len(s.Selected) == 0 {
		s.Phase = Done
		return s, Effect{Output: []string{"No titles selected."}}
	}
	s.Phase = Confirming
	s.promptIdx = 0
	return s, Effect{
		Output: []string{"Enter minimum version for each (press Enter to skip)."},
		Prompt: baselinePrompt(s.Selected[0]),
	}
}

func stepConfirming(s State, input string) (State, Effect) {
	selected := make([]baseline.Selection, len(s.Selected))
	copy(selected, s.Selected)
	selected[s.promptIdx].MinVersion = input
	s.Selected = selected

	s.promptIdx++
	if s.promptIdx >= len(s.Selected) {
		s.Phase = Done
		return s, Effect{}
	}
	return s, Effect{Prompt: baselinePrompt(s.Selected[s.promptIdx])}
}

func baselinePrompt(sel baseline.Selection) string {
	return fmt.Sprintf("Baseline for '%s': ", sel.Title)
}

func listing(s State) []string {
	lines := []string{fmt.Sprintf("--- %d titles ---", len(s.Filtered))}
	for i, t := range s.Filtered {
		if i == listLimit {
			lines = append(lines, fmt.Sprintf("... (%d more; refine search)", len(s.Filtered)-listLimit))
			break
		}
		lines = append(lines, fmt.Sprintf("%3d. %s", i+1, t.Name))
	}
	return lines
}

func parsePicks(input string) []int {
	var picks []int
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			a, errA := strconv.Atoi(strings.TrimSpace(bounds[0]))
			b, errB := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if errA != nil || errB != nil {
				continue
			}
			if a > b {
				a, b = b, a
			}
			for i := a; i <= b; i++ {
				picks = append(picks, i)
			}
		} else if n, err := strconv.Atoi(part); err == nil {
			picks = append(picks, n)
		}
	}
	return picks
}
