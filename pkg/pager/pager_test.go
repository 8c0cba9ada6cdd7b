package pager

import (
	"errors"
	"fmt"
	"testing"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantKind  EnvelopeKind
		wantLen   int
		wantTotal int
	}{
		{
			name:      "results with totalCount",
			body:      `{"results":[{"id":1},{"id":2}],"totalCount":7}`,
			wantKind:  EnvelopeKeyed,
			wantLen:   2,
			wantTotal: 7,
		},
		{
			name:      "results without totalCount defaults to length",
			body:      `{"results":[{"id":1}]}`,
			wantKind:  EnvelopeKeyed,
			wantLen:   1,
			wantTotal: 1,
		},
		{
			name:      "alternate titles key",
			body:      `{"titles":[{"id":1},{"id":2},{"id":3}]}`,
			wantKind:  EnvelopeKeyed,
			wantLen:   3,
			wantTotal: 3,
		},
		{
			name:      "alternate data key",
			body:      `{"data":[{"id":1}]}`,
			wantKind:  EnvelopeKeyed,
			wantLen:   1,
			wantTotal: 1,
		},
		{
			name:      "bare array",
			body:      `[{"id":1},{"id":2}]`,
			wantKind:  EnvelopeArray,
			wantLen:   2,
			wantTotal: 2,
		},
		{
			name:     "object with no list field",
			body:     `{"id":1,"name":"x"}`,
			wantKind: EnvelopeEmpty,
		},
		{
			name:     "scalar",
			body:     `42`,
			wantKind: EnvelopeEmpty,
		},
		{
			name:     "empty body",
			body:     ``,
			wantKind: EnvelopeEmpty,
		},
		{
			// dict with a list-valued field wins over treating the body as a list
			name:      "results wins over alternate keys",
			body:      `{"titles":[{"id":9}],"results":[{"id":1},{"id":2}],"totalCount":2}`,
			wantKind:  EnvelopeKeyed,
			wantLen:   2,
			wantTotal: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := Coerce(tt.body)
			if env.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", env.Kind, tt.wantKind)
			}
			if len(env.Items) != tt.wantLen {
				t.Errorf("len(items) = %d, want %d", len(env.Items), tt.wantLen)
			}
			if env.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", env.Total, tt.wantTotal)
			}
		})
	}
}

func TestCollectDrainsPages(t *testing.T) {
	pages := []string{
		`{"results":[{"id":1},{"id":2}],"totalCount":5}`,
		`{"results":[{"id":3},{"id":4}],"totalCount":5}`,
		`{"results":[{"id":5}],"totalCount":5}`,
	}
	fetches := 0
	items, err := Collect(func(page, pageSize int) (string, error) {
		fetches++
		if page >= len(pages) {
			return `{"results":[],"totalCount":5}`, nil
		}
		return pages[page], nil
	}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 5 {
		t.Errorf("collected %d items, want 5", len(items))
	}
	if fetches != 3 {
		t.Errorf("fetched %d pages, want 3", fetches)
	}
}

func TestCollectStopsOnEmptyPageWithLyingTotal(t *testing.T) {
	// The backend claims far more rows than it ever returns. The empty-page
	// guard has to end the loop.
	fetches := 0
	items, err := Collect(func(page, pageSize int) (string, error) {
		fetches++
		if page == 0 {
			return `{"results":[{"id":1}],"totalCount":1000}`, nil
		}
		return `{"results":[],"totalCount":1000}`, nil
	}, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("collected %d items, want 1", len(items))
	}
	if fetches != 2 {
		t.Errorf("fetched %d pages, want 2", fetches)
	}
}

func TestCollectAbortsOnPageError(t *testing.T) {
	wantErr := errors.New("status 500: server exploded")
	items, err := Collect(func(page, pageSize int) (string, error) {
		if page == 1 {
			return "", wantErr
		}
		return `{"results":[{"id":1}],"totalCount":3}`, nil
	}, 1)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error %v does not wrap %v", err, wantErr)
	}
	if items != nil {
		t.Errorf("partial results returned: %v", items)
	}
}

func TestCollectBareArrayPages(t *testing.T) {
	// A bare array's only total estimate is its own length, so collection
	// ends as soon as the accumulated count catches up to it.
	items, err := Collect(func(page, pageSize int) (string, error) {
		if page == 0 {
			return fmt.Sprintf(`[{"id":%d}]`, page), nil
		}
		return `[]`, nil
	}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Errorf("collected %d items, want 1", len(items))
	}
}
