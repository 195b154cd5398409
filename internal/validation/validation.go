package validation

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"twig/internal/errors"
	"twig/internal/object"
	"twig/internal/worktree"
	"twig/shared/types"
)

// MaxBodyBytes bounds request bodies, blob content included.
const MaxBodyBytes = 32 << 20

type Validator interface {
	Validate() error
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.ValidationError("invalid request body", err.Error())
	}
	return nil
}

// ValidateName checks that name is a usable worktree name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.ValidationError("name is required", nil)
	}
	if strings.HasPrefix(name, "/") || name == ".." || strings.HasPrefix(name, "../") || strings.Contains(name, "/../") {
		return errors.ValidationError("name must be relative to the worktree", map[string]string{"name": name})
	}
	if !utf8.ValidString(name) {
		return errors.ValidationError("name must be valid UTF-8", map[string]string{"name": name})
	}
	if worktree.ShouldIgnore(name) {
		return errors.ValidationError("name is ignored", map[string]string{"name": name})
	}
	return nil
}

func ValidateStageRequest(w http.ResponseWriter, r *http.Request) (*shared.StageRequest, error) {
	var req shared.StageRequest
	if err := decode(w, r, &req); err != nil {
		return nil, err
	}
	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}
	return &req, nil
}

// ValidateCommitRequest accepts any message, the empty one included.
func ValidateCommitRequest(w http.ResponseWriter, r *http.Request) (*shared.CommitRequest, error) {
	var req shared.CommitRequest
	if err := decode(w, r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ValidateID parses an object ID taken from a URL path.
func ValidateID(s string) (object.ID, error) {
	id, err := object.ParseID(s)
	if err != nil {
		return "", errors.ValidationError("invalid object id", map[string]string{"id": s})
	}
	return id, nil
}
