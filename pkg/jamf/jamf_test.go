package jamf

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestServer serves a minimal fake backend: a token endpoint, a two-page
// title catalog, and a patch report for title 42.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-123","expires_in":1200}`)
	})

	mux.HandleFunc("/api/v2/patch-software-title-configurations", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("page") {
		case "0":
			fmt.Fprint(w, `{"results":[{"id":"42","displayName":"Google Chrome"},{"id":"7","softwareTitleName":"Slack"},{"displayName":"orphan without id"}],"totalCount":4}`)
		case "1":
			fmt.Fprint(w, `{"results":[{"id":"9","name":"Zoom"}],"totalCount":4}`)
		default:
			fmt.Fprint(w, `{"results":[],"totalCount":4}`)
		}
	})

	mux.HandleFunc("/api/v2/patch-software-title-configurations/42/patch-report", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "0" {
			fmt.Fprint(w, `{"results":[{"computerName":"mac-01","username":"ada","deviceId":"D1","operatingSystemVersion":"14.1","lastContactTime":"2025-09-28T00:00:00Z","version":"129.0.1"}],"totalCount":1}`)
			return
		}
		fmt.Fprint(w, `{"results":[],"totalCount":1}`)
	})

	mux.HandleFunc("/api/v2/patch-software-title-configurations/42/patch-summary", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"latestVersion":"130.0","releaseDateTime":"2025-09-15T10:00:00Z","hostsOnLatestVersion":40,"hostsOutOfDate":10}]`)
	})

	mux.HandleFunc("/api/v2/patch-software-title-configurations/500/patch-summary", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T) *Client {
	srv := newTestServer(t)
	c := NewClient(srv.URL + "/")
	c.ClientID = "id"
	c.ClientSecret = "secret"
	return c
}

func TestListSoftwareTitles(t *testing.T) {
	c := newTestClient(t)
	titles, err := c.ListSoftwareTitles()
	if err != nil {
		t.Fatal(err)
	}
	// id-less entry dropped, remainder sorted case-insensitively
	if len(titles) != 3 {
		t.Fatalf("got %d titles, want 3", len(titles))
	}
	wantOrder := []string{"Google Chrome", "Slack", "Zoom"}
	for i, w := range wantOrder {
		if titles[i].Name != w {
			t.Errorf("title %d = %q, want %q", i, titles[i].Name, w)
		}
	}
}

func TestGetPatchReport(t *testing.T) {
	c := newTestClient(t)
	records, err := c.GetPatchReport("42")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	r := records[0]
	if r.ComputerName != "mac-01" || r.InstalledVersion != "129.0.1" || r.OSVersion != "14.1" {
		t.Errorf("record = %+v", r)
	}
}

func TestGetPatchSummaryUnwrapsArray(t *testing.T) {
	c := newTestClient(t)
	s, err := c.GetPatchSummary("42")
	if err != nil {
		t.Fatal(err)
	}
	if s.LatestVersion != "130.0" {
		t.Errorf("LatestVersion = %q", s.LatestVersion)
	}
	if s.ReleaseDate != "2025-09-15" {
		t.Errorf("ReleaseDate = %q, want the date part only", s.ReleaseDate)
	}
	if s.HostsPatched != 40 || s.HostsOutOfDate != 10 {
		t.Errorf("hosts = %d/%d", s.HostsPatched, s.HostsOutOfDate)
	}
}

func TestNonSuccessStatusIsFatal(t *testing.T) {
	c := newTestClient(t)
	_, err := c.GetPatchSummary("500")
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error %q does not carry the status", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error %q does not carry the body", err)
	}
}
