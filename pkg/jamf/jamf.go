// Package jamf is a thin client for the Jamf Pro patch-management API. It
// owns token acquisition and the endpoint URLs; all paging goes through
// pkg/pager so every endpoint tolerates the same envelope variations.
package jamf

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mdmtools/patchscope/internal/utils"
	"github.com/mdmtools/patchscope/pkg/baseline"
	"github.com/mdmtools/patchscope/pkg/pager"
	"github.com/mdmtools/patchscope/pkg/whttp"
)

const inventoryPageSize = 100

// Client talks to one Jamf Pro instance. OAuth client credentials are
// preferred; username/password basic auth is the fallback.
type Client struct {
	BaseURL      string
	Username     string
	Password     string
	ClientID     string
	ClientSecret string

	token string
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) ensureToken() error {
	if c.token != "" {
		return nil
	}
	if token := c.fetchOAuthToken(); token != "" {
		c.token = token
		return nil
	}
	if token := c.fetchBasicToken(); token != "" {
		c.token = token
		return nil
	}
	return errors.New("failed to obtain a bearer token")
}

func (c *Client) fetchOAuthToken() string {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ""
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	res, err := whttp.SendHTTPRequest(&whttp.WHTTPReq{
		Method: "POST",
		URL:    c.BaseURL + "/api/oauth/token",
		Body:   form.Encode(),
		Headers: []whttp.WHTTPHeader{
			{Name: "Content-Type", Value: "application/x-www-form-urlencoded"},
		},
	}, nil)
	if err != nil || res.StatusCode != 200 {
		return ""
	}
	return gjson.Get(res.BodyString, "access_token").String()
}

func (c *Client) fetchBasicToken() string {
	if c.Username == "" || c.Password == "" {
		return ""
	}
	basic := whttp.BasicAuth(c.Username, c.Password)
	for _, endpoint := range []string{"/api/v1/auth/token", "/uapi/auth/tokens"} {
		res, err := whttp.SendHTTPRequest(&whttp.WHTTPReq{
			Method: "POST",
			URL:    c.BaseURL + endpoint,
			Headers: []whttp.WHTTPHeader{
				{Name: "Authorization", Value: "Basic " + basic},
			},
		}, nil)
		if err != nil || res.StatusCode != 200 {
			continue
		}
		token := gjson.Get(res.BodyString, "token").String()
		if token == "" {
			token = gjson.Get(res.BodyString, "bearerToken").String()
		}
		if token != "" {
			return token
		}
	}
	return ""
}

// get performs an authenticated GET and treats any non-200 as a fatal
// transport error carrying the status and body.
func (c *Client) get(rawURL string) (string, error) {
	if err := c.ensureToken(); err != nil {
		return "", err
	}
	res, err := whttp.SendHTTPRequest(&whttp.WHTTPReq{
		Method: "GET",
		URL:    rawURL,
		Headers: []whttp.WHTTPHeader{
			{Name: "Authorization", Value: "Bearer " + c.token},
		},
	}, nil)
	if err != nil {
		return "", err
	}
	if res.StatusCode != 200 {
		return "", fmt.Errorf("GET %s: status %d: %s", rawURL, res.StatusCode, res.BodyString)
	}
	return res.BodyString, nil
}

func (c *Client) pagedURL(path string, page, pageSize int) string {
	return fmt.Sprintf("%s%s?page=%d&page-size=%d", c.BaseURL, path, page, pageSize)
}

// ListSoftwareTitles returns the full patch-title catalog, sorted
// case-insensitively by display name. Entries without an id are dropped.
func (c *Client) ListSoftwareTitles() ([]baseline.Title, error) {
	items, err := pager.Collect(func(page, pageSize int) (string, error) {
		return c.get(c.pagedURL("/api/v2/patch-software-title-configurations", page, pageSize))
	}, pager.DefaultPageSize)
	if err != nil {
		return nil, fmt.Errorf("listing patch titles: %w", err)
	}

	titles := make([]baseline.Title, 0, len(items))
	for _, it := range items {
		id := it.Get("id").String()
		if id == "" {
			continue
		}
		name := firstNonEmpty(
			it.Get("displayName").String(),
			it.Get("softwareTitleName").String(),
			it.Get("name").String(),
		)
		if name == "" {
			name = "Title " + id
		}
		titles = append(titles, baseline.Title{ID: id, Name: name})
	}
	sort.Slice(titles, func(i, j int) bool {
		return strings.ToLower(titles[i].Name) < strings.ToLower(titles[j].Name)
	})
	return titles, nil
}

// PatchSummary holds the vendor-reported state of one title.
type PatchSummary struct {
	Title          string
	TitleID        string
	LatestVersion  string
	ReleaseDate    string
	HostsPatched   int
	HostsOutOfDate int
}

// GetPatchSummary fetches the vendor summary for one title. The endpoint
// returns either a single object or a one-element array.
func (c *Client) GetPatchSummary(titleID string) (PatchSummary, error) {
	body, err := c.get(c.BaseURL + "/api/v2/patch-software-title-configurations/" + titleID + "/patch-summary")
	if err != nil {
		return PatchSummary{}, err
	}

	parsed := gjson.Parse(body)
	if parsed.IsArray() {
		arr := parsed.Array()
		if len(arr) == 0 {
			return PatchSummary{TitleID: titleID}, nil
		}
		parsed = arr[0]
	}

	release := firstNonEmpty(parsed.Get("releaseDate").String(), parsed.Get("releaseDateTime").String())
	if len(release) > 10 {
		release = release[:10]
	}
	return PatchSummary{
		TitleID:        titleID,
		LatestVersion:  parsed.Get("latestVersion").String(),
		ReleaseDate:    release,
		HostsPatched:   int(parsed.Get("hostsOnLatestVersion").Int()),
		HostsOutOfDate: int(parsed.Get("hostsOutOfDate").Int()),
	}, nil
}

// DeviceRecord is one row of a per-title patch report, verbatim from the
// backend.
type DeviceRecord struct {
	ComputerName     string
	Username         string
	DeviceID         string
	OSVersion        string
	LastContactTime  string
	InstalledVersion string
}

// GetPatchReport drains the per-device report for one title.
func (c *Client) GetPatchReport(titleID string) ([]DeviceRecord, error) {
	items, err := pager.Collect(func(page, pageSize int) (string, error) {
		return c.get(c.pagedURL("/api/v2/patch-software-title-configurations/"+titleID+"/patch-report", page, pageSize))
	}, pager.DefaultPageSize)
	if err != nil {
		return nil, fmt.Errorf("patch report for %s: %w", titleID, err)
	}

	records := make([]DeviceRecord, 0, len(items))
	for _, it := range items {
		records = append(records, DeviceRecord{
			ComputerName:     it.Get("computerName").String(),
			Username:         it.Get("username").String(),
			DeviceID:         it.Get("deviceId").String(),
			OSVersion:        it.Get("operatingSystemVersion").String(),
			LastContactTime:  it.Get("lastContactTime").String(),
			InstalledVersion: it.Get("version").String(),
		})
	}
	return records, nil
}

// ListInventoryLastContacts drains the computer inventory and returns each
// device's general.lastContactTime, one entry per device, empty when the
// field is missing.
func (c *Client) ListInventoryLastContacts() ([]string, error) {
	items, err := pager.Collect(func(page, pageSize int) (string, error) {
		return c.get(fmt.Sprintf("%s/api/v1/computers-inventory?page=%d&page-size=%d&section=GENERAL", c.BaseURL, page, pageSize))
	}, inventoryPageSize)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}

	contacts := make([]string, 0, len(items))
	for _, it := range items {
		contacts = append(contacts, it.Get("general.lastContactTime").String())
	}
	return contacts, nil
}

// ExportTitles writes the catalog as id,title CSV rows.
func ExportTitles(path string, titles []baseline.Title) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "title"}); err != nil {
		return err
	}
	for _, t := range titles {
		if err := w.Write([]string{t.ID, t.Name}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	utils.Log.Info("Wrote patch titles list: ", path)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
