package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxFileSize caps a single fetched file at 32 MB. Upstream shell files are
// a few KB; the limit guards against a misbehaving mirror.
const maxFileSize = 32 << 20

// Client provides read access to the remote source repository
type Client interface {
	// Fetch retrieves the raw bytes of a file by its repository-relative path
	Fetch(ctx context.Context, relPath string) ([]byte, error)
	// URL returns the full URL a relative path resolves to
	URL(relPath string) string
}

// Error describes a transport-level fetch failure. The sync engine treats
// it as non-fatal: the file is skipped and the run continues.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Unwrap exposes the underlying transport error, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPClient implements Client over a fixed base URL
type HTTPClient struct {
	baseURL   string
	tokenFile string
	hc        *http.Client
}

// NewHTTPClient creates a client for the given base URL. tokenFile may be
// empty; when set, its trimmed content is sent as a token Authorization
// header on every request.
func NewHTTPClient(baseURL, tokenFile string) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		tokenFile: tokenFile,
		hc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// URL returns the full URL for a repository-relative path
func (c *HTTPClient) URL(relPath string) string {
	return c.baseURL + "/" + strings.TrimLeft(relPath, "/")
}

// Fetch retrieves the raw bytes for a repository-relative path. Any
// transport failure, including a non-2xx response, yields an *Error.
func (c *HTTPClient) Fetch(ctx context.Context, relPath string) ([]byte, error) {
	url := c.URL(relPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}

	if c.tokenFile != "" {
		token, err := os.ReadFile(c.tokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read token file: %w", err)
		}
		req.Header.Set("Authorization", "token "+strings.TrimSpace(string(token)))
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize))
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}

	return data, nil
}
