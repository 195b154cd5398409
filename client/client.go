// client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"twig/shared/types"
)

// Error is a non-2xx response from the server.
type Error struct {
	Status int
	shared.ErrorResponse
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Type, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, want int) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		e := &Error{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(&e.ErrorResponse); err != nil {
			e.Message = resp.Status
		}
		return e
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Stage stages content under name and returns the resulting index entry.
func (c *Client) Stage(ctx context.Context, name string, content []byte) (*shared.IndexEntry, error) {
	var entry shared.IndexEntry
	req := shared.StageRequest{Name: name, Content: content}
	if err := c.do(ctx, http.MethodPost, "/api/index", req, &entry, http.StatusCreated); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) Unstage(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/index/"+escapeName(name), nil, nil, http.StatusNoContent)
}

// escapeName escapes each segment of a slash separated worktree name.
func escapeName(name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (c *Client) Index(ctx context.Context) ([]shared.IndexEntry, error) {
	var entries []shared.IndexEntry
	if err := c.do(ctx, http.MethodGet, "/api/index", nil, &entries, http.StatusOK); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Commit(ctx context.Context, message string) (*shared.CommitView, error) {
	var commit shared.CommitView
	req := shared.CommitRequest{Message: message}
	if err := c.do(ctx, http.MethodPost, "/api/commits", req, &commit, http.StatusCreated); err != nil {
		return nil, err
	}
	return &commit, nil
}

// Log returns up to limit commits, newest first. Zero means all.
func (c *Client) Log(ctx context.Context, limit int) ([]shared.CommitView, error) {
	path := "/api/commits"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var commits []shared.CommitView
	if err := c.do(ctx, http.MethodGet, path, nil, &commits, http.StatusOK); err != nil {
		return nil, err
	}
	return commits, nil
}

func (c *Client) GetCommit(ctx context.Context, id string) (*shared.CommitView, error) {
	var commit shared.CommitView
	if err := c.do(ctx, http.MethodGet, "/api/commits/"+id, nil, &commit, http.StatusOK); err != nil {
		return nil, err
	}
	return &commit, nil
}

func (c *Client) Head(ctx context.Context) (*shared.HeadView, error) {
	var head shared.HeadView
	if err := c.do(ctx, http.MethodGet, "/api/head", nil, &head, http.StatusOK); err != nil {
		return nil, err
	}
	return &head, nil
}

func (c *Client) GetBlob(ctx context.Context, id string) (*shared.BlobView, error) {
	var blob shared.BlobView
	if err := c.do(ctx, http.MethodGet, "/api/blobs/"+id, nil, &blob, http.StatusOK); err != nil {
		return nil, err
	}
	return &blob, nil
}

func (c *Client) GetTree(ctx context.Context, id string) (*shared.TreeView, error) {
	var tree shared.TreeView
	if err := c.do(ctx, http.MethodGet, "/api/trees/"+id, nil, &tree, http.StatusOK); err != nil {
		return nil, err
	}
	return &tree, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, http.StatusOK)
}
