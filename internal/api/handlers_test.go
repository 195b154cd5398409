package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"twig/internal/logging"
	"twig/internal/object"
	"twig/internal/repository"
	"twig/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupHandler(t *testing.T) (*httptest.Server, *repository.Repository) {
	t.Helper()

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := repository.New(repository.WithClock(func() time.Time {
		at = at.Add(time.Second)
		return at
	}))
	mux := http.NewServeMux()
	NewRepoHandler(repo, &logging.Logger{Logger: zap.NewNop()}).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, repo
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRepoHandler_StageAndCommit(t *testing.T) {
	srv, _ := setupHandler(t)

	var entry shared.IndexEntry
	status := do(t, http.MethodPost, srv.URL+"/api/index", shared.StageRequest{Name: "a.txt", Content: []byte("hello")}, &entry)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, string(object.Hash([]byte("hello"))), entry.BlobID)

	var index []shared.IndexEntry
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/index", nil, &index))
	assert.Equal(t, []shared.IndexEntry{entry}, index)

	var first shared.CommitView
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/commits", shared.CommitRequest{Message: "first"}, &first))
	assert.Equal(t, "root", first.ParentKind)
	assert.Equal(t, first.TreeID, first.ParentID)

	var second shared.CommitView
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, srv.URL+"/api/commits", shared.CommitRequest{Message: "second"}, &second))
	assert.Equal(t, "commit", second.ParentKind)
	assert.Equal(t, first.ID, second.ParentID)

	var log []shared.CommitView
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/commits", nil, &log))
	require.Len(t, log, 2)
	assert.Equal(t, second.ID, log[0].ID)
	assert.Equal(t, first.ID, log[1].ID)

	log = nil
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/commits?limit=1", nil, &log))
	assert.Len(t, log, 1)

	var head shared.HeadView
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/head", nil, &head))
	assert.Equal(t, second.ID, head.Commit)
	assert.Equal(t, "committed", head.State)

	var tree shared.TreeView
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/trees/"+second.TreeID, nil, &tree))
	assert.Equal(t, []shared.IndexEntry{entry}, tree.Entries)

	var blob shared.BlobView
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/blobs/"+entry.BlobID, nil, &blob))
	assert.Equal(t, []byte("hello"), blob.Content)

	var got shared.CommitView
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/commits/"+first.ID, nil, &got))
	assert.Equal(t, first, got)
}

func TestRepoHandler_Errors(t *testing.T) {
	srv, _ := setupHandler(t)
	missing := string(object.Hash([]byte("missing")))

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantType   string
	}{
		{"empty name", http.MethodPost, "/api/index", shared.StageRequest{Content: []byte("x")}, http.StatusBadRequest, "VALIDATION"},
		{"escaping name", http.MethodPost, "/api/index", shared.StageRequest{Name: "../x"}, http.StatusBadRequest, "VALIDATION"},
		{"unstage unknown", http.MethodDelete, "/api/index/nope.txt", nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad commit id", http.MethodGet, "/api/commits/xyz", nil, http.StatusBadRequest, "VALIDATION"},
		{"unknown commit", http.MethodGet, "/api/commits/" + missing, nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown blob", http.MethodGet, "/api/blobs/" + missing, nil, http.StatusNotFound, "NOT_FOUND"},
		{"unknown tree", http.MethodGet, "/api/trees/" + missing, nil, http.StatusNotFound, "NOT_FOUND"},
		{"bad limit", http.MethodGet, "/api/commits?limit=-1", nil, http.StatusBadRequest, "VALIDATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp shared.ErrorResponse
			status := do(t, tt.method, srv.URL+tt.path, tt.body, &resp)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantType, resp.Type)
		})
	}
}

func TestRepoHandler_EmptyRepository(t *testing.T) {
	srv, _ := setupHandler(t)

	var head shared.HeadView
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/head", nil, &head))
	assert.Empty(t, head.Commit)
	assert.Equal(t, "empty", head.State)
	assert.Len(t, head.Refs, 2)

	var log []shared.CommitView
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/commits", nil, &log))
	assert.Empty(t, log)
}

func TestRepoHandler_Unstage(t *testing.T) {
	srv, repo := setupHandler(t)
	require.NoError(t, repo.Stage("dir/a.txt", repository.Bytes("a")))

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, srv.URL+"/api/index/dir/a.txt", nil, nil))
	assert.Empty(t, repo.Index())
}
