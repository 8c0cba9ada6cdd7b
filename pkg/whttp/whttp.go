package whttp

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"io"
	stdlog "log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Body    string
	Headers []WHTTPHeader
}

type WHTTPRes struct {
	StatusCode int
	BodyString string
}

var defaultClient *retryablehttp.Client

func init() {
	defaultClient = retryablehttp.NewClient()
	defaultClient.Logger = stdlog.New(io.Discard, "", 0)
	defaultClient.RetryMax = 3
	defaultClient.HTTPClient.Timeout = 60 * time.Second
	// Retry only transport failures. A response, success or not, goes back
	// to the caller as-is: non-success statuses are fatal upstream and must
	// carry their status and body.
	defaultClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return err != nil, nil
	}
}

// GetDefaultClient returns the shared retryable client so callers can tweak
// transport settings (proxy, TLS) before any request is sent.
func GetDefaultClient() *retryablehttp.Client {
	return defaultClient
}

// SetupProxy points the default client at an HTTP proxy. Invalid proxy
// strings are returned as errors rather than applied.
func SetupProxy(proxy string) error {
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return err
	}
	defaultClient.HTTPClient.Transport = &http.Transport{
		Proxy:           http.ProxyURL(proxyURL),
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return nil
}

// BasicAuth encodes credentials for an Authorization: Basic header.
func BasicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// SendHTTPRequest performs a single request and buffers the whole body.
// A nil client uses the shared default client.
func SendHTTPRequest(wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	if client == nil {
		client = defaultClient
	}

	var bodyReader io.Reader
	if wReq.Body != "" {
		bodyReader = strings.NewReader(wReq.Body)
	}

	req, err := retryablehttp.NewRequest(wReq.Method, wReq.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}, nil
}
