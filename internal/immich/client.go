// Package immich implements the subset of the Immich HTTP API used by immich-tools.
package immich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/kilupskalvis/immich-tools/internal/models"
)

// APIClient defines the contract for talking to an Immich server.
type APIClient interface {
	UniquePaths(ctx context.Context) ([]string, error)
	FolderAssets(ctx context.Context, path string) ([]*models.Asset, error)

	CreateStack(ctx context.Context, assetIDs []string) error
	UpdateAsset(ctx context.Context, id string, update *models.UpdateAsset) error
}

// HTTPClient implements APIClient over HTTP.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a client for the Immich server at host. API paths are
// resolved against host the way a browser resolves an absolute path, so any
// path component of host is replaced.
func NewHTTPClient(host, apiKey string, timeout time.Duration, logger *slog.Logger) (*HTTPClient, error) {
	u, err := ParseHost(host)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &HTTPClient{
		baseURL:    u,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// ParseHost validates a server URL.
func ParseHost(host string) (*url.URL, error) {
	if host == "" {
		return nil, fmt.Errorf("host cannot be empty")
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host: %w", err)
	}

	if u.Scheme == "" {
		return nil, fmt.Errorf("host must include a scheme (e.g., https://)")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("host scheme must be http or https, got '%s'", u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("host must include a hostname")
	}

	return u, nil
}

func (c *HTTPClient) apiURL(path string, query url.Values) string {
	ref := &url.URL{Path: path}
	if query != nil {
		ref.RawQuery = query.Encode()
	}
	return c.baseURL.ResolveReference(ref).String()
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			"method", method,
			"path", req.URL.Path,
			"error", err,
		)
		return nil, fmt.Errorf("execute request: %w", err)
	}

	c.logger.Debug("request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return resp, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, url string, reqBody, respBody interface{}) error {
	var body io.Reader
	var headers map[string]string

	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		headers = map[string]string{"Content-Type": "application/json"}
	}

	resp, err := c.do(ctx, method, url, body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// UniquePaths returns every folder path known to the server.
func (c *HTTPClient) UniquePaths(ctx context.Context) ([]string, error) {
	var paths []string
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/api/view/folder/unique-paths", nil), nil, &paths); err != nil {
		return nil, fmt.Errorf("list folder paths: %w", err)
	}
	return paths, nil
}

// FolderAssets returns the assets directly inside one folder.
func (c *HTTPClient) FolderAssets(ctx context.Context, path string) ([]*models.Asset, error) {
	query := url.Values{"path": []string{path}}
	var assets []*models.Asset
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/api/view/folder", query), nil, &assets); err != nil {
		return nil, fmt.Errorf("list assets in %s: %w", path, err)
	}
	return assets, nil
}

// CreateStack groups the given assets into a stack; the first id is the primary asset.
func (c *HTTPClient) CreateStack(ctx context.Context, assetIDs []string) error {
	req := &models.CreateStack{AssetIDs: assetIDs}
	if err := c.doJSON(ctx, http.MethodPost, c.apiURL("/api/stacks", nil), req, nil); err != nil {
		return fmt.Errorf("create stack: %w", err)
	}
	return nil
}

// UpdateAsset patches the metadata of a single asset.
func (c *HTTPClient) UpdateAsset(ctx context.Context, id string, update *models.UpdateAsset) error {
	if err := c.doJSON(ctx, http.MethodPut, c.apiURL("/api/assets/"+url.PathEscape(id), nil), update, nil); err != nil {
		return fmt.Errorf("update asset %s: %w", id, err)
	}
	return nil
}

// APIError is a non-success response from the server.
type APIError struct {
	Status  int
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("immich error (%d %s)", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("immich error (%d %s): %s", e.Status, http.StatusText(e.Status), e.Message)
}

// StatusText renders the status the way it is shown to users, e.g. "400 Bad Request".
func (e *APIError) StatusText() string {
	return fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status))
}

// errorResponse is the structured error body returned by Immich. Message is a
// string for most errors and a list of strings for validation failures.
type errorResponse struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Status: resp.StatusCode, Body: string(data)}

	var errResp errorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return apiErr
	}

	var message string
	var messages []string
	switch {
	case json.Unmarshal(errResp.Message, &message) == nil:
		apiErr.Message = message
	case json.Unmarshal(errResp.Message, &messages) == nil && len(messages) > 0:
		apiErr.Message = messages[0]
		for _, m := range messages[1:] {
			apiErr.Message += "; " + m
		}
	default:
		apiErr.Message = errResp.Error
	}

	return apiErr
}
