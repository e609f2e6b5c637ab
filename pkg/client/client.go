// Package client talks to the remote hub/project/folder API with retry and
// bearer-token auth.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/fruitsalade/hubmirror/internal/logging"
	"github.com/fruitsalade/hubmirror/internal/metrics"
	"github.com/fruitsalade/hubmirror/pkg/protocol"
	"github.com/fruitsalade/hubmirror/pkg/remoteid"
	"github.com/fruitsalade/hubmirror/pkg/retry"
)

const (
	// DefaultBaseURL is the production API host.
	DefaultBaseURL = "https://developer.api.autodesk.com"

	// MaxLoops bounds every "follow the next link" loop.
	MaxLoops = 20

	// MinFilterLength is the shortest project name filter that is sent.
	MinFilterLength = 3

	userIDHeader = "x-user-id"
	regionHeader = "x-ads-region"

	maxErrorBody = 64 << 10
)

// ErrInvalidID is returned before any request when an identifier is invalid.
var ErrInvalidID = errors.New("invalid remote id")

// APIError is a non-2xx response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("remote returned %d", e.Status)
	}
	return fmt.Sprintf("remote returned %d: %s", e.Status, body)
}

// AsAPIError checks if an error is an APIError and returns it.
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	RetryConfig retry.Config
	TokenSource oauth2.TokenSource
	Region      string // sent as x-ads-region when set
	UserID      string // sent as x-user-id when set
}

// Client is the HTTP remote data provider.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig retry.Config
	tokens      oauth2.TokenSource
	region      string
	userID      string
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 100 * time.Second
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = retry.DefaultConfig()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retryConfig: cfg.RetryConfig,
		tokens:      cfg.TokenSource,
		region:      strings.TrimSpace(cfg.Region),
		userID:      strings.TrimSpace(cfg.UserID),
	}
}

// applyAuth adds the bearer token and the optional routing headers.
func (c *Client) applyAuth(req *http.Request) error {
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		tok.SetAuthHeader(req)
	}
	if c.region != "" {
		req.Header.Set(regionHeader, c.region)
	}
	if c.userID != "" {
		req.Header.Set(userIDHeader, c.userID)
	}
	return nil
}

// ListHubs returns every hub the token can see.
func (c *Client) ListHubs(ctx context.Context) ([]protocol.Object, error) {
	objs, err := c.collect(ctx, "hubs", c.baseURL+"/project/v1/hubs")
	if err != nil {
		return nil, fmt.Errorf("list hubs: %w", err)
	}
	return objs, nil
}

// ListProjects returns the projects of a hub, optionally filtered by a
// case-sensitive "name contains" filter. A filter shorter than
// MinFilterLength returns no projects without calling the remote.
func (c *Client) ListProjects(ctx context.Context, hub remoteid.ID, nameFilter string) ([]protocol.Object, error) {
	if !hub.IsValid() {
		return nil, ErrInvalidID
	}

	u := fmt.Sprintf("%s/project/v1/hubs/%s/projects", c.baseURL, hub.DM())
	if filter := strings.TrimSpace(nameFilter); filter != "" {
		if len(filter) < MinFilterLength {
			return []protocol.Object{}, nil
		}
		u += "?filter[name]-contains=" + url.QueryEscape(filter)
	}

	objs, err := c.collect(ctx, "projects", u)
	if err != nil {
		return nil, fmt.Errorf("list projects of %s: %w", hub, err)
	}
	return objs, nil
}

// GetProject fetches a project, including its root folder relationship.
func (c *Client) GetProject(ctx context.Context, ids remoteid.Pair) (*protocol.Object, error) {
	if !ids.IsValid() {
		return nil, ErrInvalidID
	}

	u := fmt.Sprintf("%s/project/v1/hubs/%s/projects/%s", c.baseURL, ids.Account.DM(), ids.Project.DM())
	doc, err := getJSON[protocol.Document](ctx, c, "project", u)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", ids.Project, err)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("get project %s: empty document", ids.Project)
	}
	return doc.Data, nil
}

// GetFolderByProject fetches one folder record.
func (c *Client) GetFolderByProject(ctx context.Context, projectID remoteid.ID, folderID string) (*protocol.Object, error) {
	folderID = strings.TrimSpace(folderID)
	if !projectID.IsValid() || folderID == "" {
		return nil, ErrInvalidID
	}

	u := fmt.Sprintf("%s/data/v1/projects/%s/folders/%s", c.baseURL, projectID.DM(), url.PathEscape(folderID))
	doc, err := getJSON[protocol.Document](ctx, c, "folder", u)
	if err != nil {
		return nil, fmt.Errorf("get folder %s: %w", folderID, err)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("get folder %s: empty document", folderID)
	}
	return doc.Data, nil
}

// GetFolderContents lists the immediate children of a folder, following
// pagination for at most MaxLoops pages.
func (c *Client) GetFolderContents(ctx context.Context, projectID remoteid.ID, folderID string) ([]protocol.Object, error) {
	folderID = strings.TrimSpace(folderID)
	if !projectID.IsValid() || folderID == "" {
		return nil, ErrInvalidID
	}

	u := fmt.Sprintf("%s/data/v1/projects/%s/folders/%s/contents", c.baseURL, projectID.DM(), url.PathEscape(folderID))
	objs, err := c.collect(ctx, "contents", u)
	if err != nil {
		return nil, fmt.Errorf("get folder contents %s: %w", folderID, err)
	}
	return objs, nil
}

// collect GETs u and every page after it.
func (c *Client) collect(ctx context.Context, endpoint, u string) ([]protocol.Object, error) {
	objs := []protocol.Object{}
	for page := 0; u != ""; page++ {
		if page == MaxLoops {
			logging.WithContext(ctx).Warn("pagination limit reached, listing truncated",
				logging.String("endpoint", endpoint),
				logging.Int("pages", MaxLoops),
			)
			break
		}

		coll, err := getJSON[protocol.Collection](ctx, c, endpoint, u)
		if err != nil {
			return nil, err
		}
		objs = append(objs, coll.Data...)
		u = coll.Links.NextHref()
	}
	return objs, nil
}

// getJSON GETs u with retries and decodes the body into T.
func getJSON[T any](ctx context.Context, c *Client, endpoint, u string) (*T, error) {
	return retry.DoWithResult(ctx, c.retryConfig, func() (*T, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/vnd.api+json, application/json")
		if err := c.applyAuth(req); err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordAPIRequest(endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, retry.Retryable(err)
		}
		defer resp.Body.Close()
		metrics.RecordAPIRequest(endpoint, resp.StatusCode, time.Since(start))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			apiErr := &APIError{Status: resp.StatusCode, Body: string(data)}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				logging.WithContext(ctx).Debug("retryable response",
					logging.String("endpoint", endpoint),
					logging.Int("status", resp.StatusCode),
				)
				return nil, retry.RetryableAfter(apiErr, retryAfter(resp.Header.Get("Retry-After")))
			}
			return nil, apiErr
		}

		var out T
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
		}
		return &out, nil
	})
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
