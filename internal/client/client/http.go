package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/marketlist/internal/client/models"
)

const (
	pathRoot     = "/"
	pathUsers    = "/users/"
	pathRegister = "/register/"
	pathLogin    = "/login/"
	pathList     = "/list/"

	maxResponseSize = 4 << 20
)

// HTTPClient talks to the REST backend. Paths are fixed; only the base URL
// is configurable.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client for baseURL (e.g. "http://127.0.0.1:8000").
// A zero timeout leaves requests bounded only by their context.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return NewHTTPClientWith(baseURL, &http.Client{Timeout: timeout})
}

func NewHTTPClientWith(baseURL string, hc *http.Client) *HTTPClient {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp pingResponse
	return c.do(ctx, http.MethodGet, pathRoot, "", nil, &resp)
}

// Register signs a user up through /register/.
func (c *HTTPClient) Register(ctx context.Context, username string, password []byte) error {
	req := credentialsRequest{Username: username, UserPassword: string(password)}
	return c.do(ctx, http.MethodPost, pathRegister, "", req, nil)
}

// CreateUser signs a user up through /users/ and returns the stored username.
func (c *HTTPClient) CreateUser(ctx context.Context, username string, password []byte) (string, error) {
	req := credentialsRequest{Username: username, UserPassword: string(password)}

	var resp userResponse
	if err := c.do(ctx, http.MethodPost, pathUsers, "", req, &resp); err != nil {
		return "", err
	}
	return resp.Username, nil
}

// Login exchanges credentials for a bearer token.
func (c *HTTPClient) Login(ctx context.Context, username string, password []byte) (string, error) {
	req := credentialsRequest{Username: username, UserPassword: string(password)}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, pathLogin, "", req, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", ErrBadResponse)
	}
	return resp.AccessToken, nil
}

func (c *HTTPClient) List(ctx context.Context, token string) ([]models.ListItem, error) {
	var records []itemRecord
	if err := c.do(ctx, http.MethodGet, pathList, token, nil, &records); err != nil {
		return nil, err
	}

	items := make([]models.ListItem, 0, len(records))
	for _, r := range records {
		item, err := r.toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *HTTPClient) Create(ctx context.Context, token string, text string, subjectID int64) (models.ListItem, error) {
	req := itemRequest{ItemName: text, ItemStatus: string(models.StatusPending), UserID: subjectID}

	var rec itemRecord
	if err := c.do(ctx, http.MethodPost, pathList, token, req, &rec); err != nil {
		return models.ListItem{}, err
	}
	return rec.toModel()
}

// Update replaces the item as a whole; the backend has no partial patch.
func (c *HTTPClient) Update(ctx context.Context, token string, id int64, text string, status models.Status, subjectID int64) (models.ListItem, error) {
	req := itemRequest{ItemName: text, ItemStatus: string(status), UserID: subjectID}

	var rec itemRecord
	if err := c.do(ctx, http.MethodPut, itemPath(id), token, req, &rec); err != nil {
		return models.ListItem{}, err
	}
	return rec.toModel()
}

func (c *HTTPClient) Remove(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), token, nil, nil)
}

func itemPath(id int64) string {
	return pathList + strconv.FormatInt(id, 10)
}

// do performs one request. in is JSON-encoded when non-nil; out is decoded
// from a 2xx body when non-nil. A nil out accepts any (or no) body.
func (c *HTTPClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty body for %s %s", ErrBadResponse, method, path)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %w", ErrBadResponse, method, path, err)
	}
	return nil
}
