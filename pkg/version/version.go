// Package version normalizes installed-version strings reported by devices
// and decides whether they meet a minimum-version baseline.
package version

import (
	"regexp"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

var (
	parenRe = regexp.MustCompile(`\(.*?\)`)
	tokenRe = regexp.MustCompile(`\d+|[A-Za-z]+`)
)

// Normalize strips parenthesized build metadata like " (18619.1.26.111.1)"
// and surrounding whitespace. Idempotent.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = parenRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// AtLeast reports whether candidate >= baseline.
//
// An empty baseline means no floor: everything qualifies. An empty candidate
// against a non-empty baseline never qualifies. Otherwise both sides go
// through hashicorp/go-version; when either fails to parse, the token
// comparison below takes over.
func AtLeast(candidate, baseline string) bool {
	c := Normalize(candidate)
	b := Normalize(baseline)
	if b == "" {
		return true
	}
	if c == "" {
		return false
	}
	cv, cerr := goversion.NewVersion(c)
	bv, berr := goversion.NewVersion(b)
	if cerr == nil && berr == nil {
		return cv.GreaterThanOrEqual(bv)
	}
	return compareTokens(tokenize(c), tokenize(b)) >= 0
}

// token kinds: numeric sorts below alpha when kinds differ, so a number is
// never compared against a string numerically.
const (
	kindNumeric = 0
	kindAlpha   = 1
)

type token struct {
	kind int
	num  int
	str  string
}

func tokenize(v string) []token {
	parts := tokenRe.FindAllString(v, -1)
	toks := make([]token, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			toks = append(toks, token{kind: kindNumeric, num: n})
		} else {
			toks = append(toks, token{kind: kindAlpha, str: strings.ToLower(p)})
		}
	}
	return toks
}

// compareTokens is a lexicographic tuple comparison. A shorter sequence that
// is a prefix of a longer one compares as less. This is a deliberate
// approximation: it does not implement semantic-version precedence, so
// pre-release tags are not specially ordered below releases.
func compareTokens(a, b []token) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].kind != b[i].kind {
			if a[i].kind < b[i].kind {
				return -1
			}
			return 1
		}
		if a[i].kind == kindNumeric {
			if a[i].num != b[i].num {
				if a[i].num < b[i].num {
					return -1
				}
				return 1
			}
		} else if a[i].str != b[i].str {
			if a[i].str < b[i].str {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}
