// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"twig/internal/errors"
	"twig/internal/logging"
	"twig/internal/object"
	"twig/internal/repository"
	"twig/internal/validation"
	"twig/shared/types"

	"go.uber.org/zap"
)

// RepoHandler serves a repository over HTTP. The repository is not safe for
// concurrent use, so every request holds mu.
type RepoHandler struct {
	mu     sync.Mutex
	repo   *repository.Repository
	logger *logging.Logger
}

func NewRepoHandler(repo *repository.Repository, logger *logging.Logger) *RepoHandler {
	return &RepoHandler{repo: repo, logger: logger}
}

// Register installs the handler's routes on mux.
func (h *RepoHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /api/index", h.Stage)
	mux.HandleFunc("GET /api/index", h.ListIndex)
	mux.HandleFunc("DELETE /api/index/{name...}", h.Unstage)
	mux.HandleFunc("POST /api/commits", h.Commit)
	mux.HandleFunc("GET /api/commits", h.Log)
	mux.HandleFunc("GET /api/commits/{id}", h.GetCommit)
	mux.HandleFunc("GET /api/head", h.Head)
	mux.HandleFunc("GET /api/blobs/{id}", h.GetBlob)
	mux.HandleFunc("GET /api/trees/{id}", h.GetTree)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *RepoHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := shared.ErrorResponse{Type: string(errors.ErrorTypeInternal), Message: err.Error()}
	var e *errors.Error
	if errors.As(err, &e) {
		resp.Type = string(e.Type)
		resp.Details = e.Details
	}

	code := errors.Code(err)
	if code >= http.StatusInternalServerError {
		h.logger.WithRequestID(r.Context()).Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, resp)
}

func (h *RepoHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RepoHandler) Stage(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateStageRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.repo.Stage(req.Name, repository.Bytes(req.Content)); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, _ := h.repo.Staged(req.Name)
	writeJSON(w, http.StatusCreated, shared.IndexEntry{Name: req.Name, BlobID: string(id)})
}

func (h *RepoHandler) Unstage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.repo.Unstage(name); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepoHandler) ListIndex(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	entries := h.repo.Index()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, indexView(entries))
}

func (h *RepoHandler) Commit(w http.ResponseWriter, r *http.Request) {
	req, err := validation.ValidateCommitRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	id, err := h.repo.Commit(req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.repo.LookupCommit(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, commitView(c))
}

// Log lists history newest first. ?limit=n bounds the result.
func (h *RepoHandler) Log(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			h.writeError(w, r, errors.ValidationError("invalid limit", map[string]string{"limit": s}))
			return
		}
		limit = n
	}

	h.mu.Lock()
	commits, err := h.repo.Log(limit)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	views := make([]shared.CommitView, 0, len(commits))
	for _, c := range commits {
		views = append(views, commitView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *RepoHandler) GetCommit(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ValidateID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.mu.Lock()
	c, err := h.repo.LookupCommit(id)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commitView(c))
}

func (h *RepoHandler) Head(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	state, err := h.repo.State()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	view := shared.HeadView{State: state.String()}
	for _, rf := range h.repo.References() {
		view.Refs = append(view.Refs, shared.RefView{Label: rf.Label, Target: rf.Target.String()})
	}

	id, err := h.repo.Head()
	switch {
	case err == nil:
		view.Commit = string(id)
	case !errors.Is(err, errors.ErrorTypeDanglingReference):
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RepoHandler) GetBlob(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ValidateID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.mu.Lock()
	b, err := h.repo.Blob(id)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shared.BlobView{ID: string(b.ID), Size: b.Size(), Content: b.Content})
}

func (h *RepoHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ValidateID(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.mu.Lock()
	t, err := h.repo.Tree(id)
	h.mu.Unlock()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shared.TreeView{ID: string(t.ID), Entries: indexView(t.Entries)})
}

func indexView(entries []object.TreeEntry) []shared.IndexEntry {
	out := make([]shared.IndexEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, shared.IndexEntry{Name: e.Name, BlobID: string(e.BlobID)})
	}
	return out
}

func commitView(c *object.Commit) shared.CommitView {
	return shared.CommitView{
		ID:         string(c.ID),
		TreeID:     string(c.TreeID),
		Message:    c.Message,
		Timestamp:  c.Timestamp,
		ParentKind: c.Parent.Kind().String(),
		ParentID:   string(c.Parent.ID()),
	}
}
