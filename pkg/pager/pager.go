// Package pager drains paged backend listings into memory. Backend endpoints
// disagree about envelope shape: some wrap rows in {"results": [...],
// "totalCount": N}, some use another list-valued key, some return a bare
// array. Every call site goes through the same coercion so the disagreement
// is handled exactly once.
package pager

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// DefaultPageSize matches the backend's maximum page size for report
// endpoints. Inventory listings use a smaller page.
const DefaultPageSize = 200

// EnvelopeKind tags the coerced response shape.
type EnvelopeKind int

const (
	// EnvelopeEmpty is anything that yields no rows: a scalar, an object
	// with no list-valued field, or an empty body.
	EnvelopeEmpty EnvelopeKind = iota
	// EnvelopeKeyed is an object carrying rows under a known key.
	EnvelopeKeyed
	// EnvelopeArray is a bare top-level array.
	EnvelopeArray
)

// Envelope is one page of a listing after shape coercion.
type Envelope struct {
	Kind  EnvelopeKind
	Items []gjson.Result
	Total int
}

// alternate list-valued keys seen in the wild, checked in order
var altKeys = []string{"titles", "items", "data"}

// Coerce normalizes a raw response body into an Envelope. An object with a
// list-valued "results" field wins and its totalCount is trusted (defaulting
// to the row count when absent); other known keys carry no total so the row
// count stands in. A dict with a list-valued field wins over a bare list.
func Coerce(body string) Envelope {
	parsed := gjson.Parse(body)

	if parsed.IsObject() {
		results := parsed.Get("results")
		if results.IsArray() {
			items := results.Array()
			total := len(items)
			if tc := parsed.Get("totalCount"); tc.Exists() {
				total = int(tc.Int())
			}
			return Envelope{Kind: EnvelopeKeyed, Items: items, Total: total}
		}
		for _, key := range altKeys {
			if arr := parsed.Get(key); arr.IsArray() {
				items := arr.Array()
				return Envelope{Kind: EnvelopeKeyed, Items: items, Total: len(items)}
			}
		}
		return Envelope{Kind: EnvelopeEmpty}
	}

	if parsed.IsArray() {
		items := parsed.Array()
		return Envelope{Kind: EnvelopeArray, Items: items, Total: len(items)}
	}

	return Envelope{Kind: EnvelopeEmpty}
}

// PageFetch retrieves one page and returns the raw response body. A non-nil
// error means the page request itself failed (non-success status included);
// the collector treats that as fatal for the whole listing.
type PageFetch func(page, pageSize int) (string, error)

// Collect drains a paged listing starting at page 0. It stops once the
// accumulated row count reaches the backend's total estimate, or when a page
// comes back empty, which guards against backends that never report an
// accurate total. Any page failure discards everything collected so far.
func Collect(fetch PageFetch, pageSize int) ([]gjson.Result, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var all []gjson.Result
	for page := 0; ; page++ {
		body, err := fetch(page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		env := Coerce(body)
		if len(env.Items) == 0 {
			break
		}
		all = append(all, env.Items...)

		if len(all) >= env.Total {
			break
		}
	}
	return all, nil
}
