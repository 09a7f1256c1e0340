package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ClientConfig holds IAC service connection settings.
type ClientConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client is the HTTP [Finder] implementation against the IAC service.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates an IAC service client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// serviceError is the IAC service's error envelope on 5xx responses. A
// "Case not found" message means the code exists but has no case, which the
// gate treats the same as an unknown code.
type serviceError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FindCase resolves a canonical code via GET /iacs/{code}.
func (c *Client) FindCase(ctx context.Context, code string) (*CaseSummary, error) {
	endpoint := fmt.Sprintf("%s/iacs/%s", c.baseURL, url.PathEscape(code))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCaseNotFound
	case resp.StatusCode == http.StatusInternalServerError:
		var svcErr serviceError
		if err := json.NewDecoder(resp.Body).Decode(&svcErr); err == nil &&
			strings.Contains(svcErr.Error.Message, "Case not found") {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("%w: iac service returned status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: iac service returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var summary CaseSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	return &summary, nil
}
