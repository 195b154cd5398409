package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"twig/internal/errors"
	"twig/internal/object"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"a.txt", false},
		{"src/main.go", false},
		{"", true},
		{"   ", true},
		{"/etc/passwd", true},
		{"../up", true},
		{"a/../../b", true},
		{".twig/db", true},
		{"bad\xffname", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateStageRequest(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/index", strings.NewReader(`{"name":"a.txt","content":"aGVsbG8="}`))
		req, err := ValidateStageRequest(httptest.NewRecorder(), r)
		require.NoError(t, err)
		assert.Equal(t, "a.txt", req.Name)
		assert.Equal(t, []byte("hello"), req.Content)
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/index", strings.NewReader(`{"name":"a.txt","mode":1}`))
		_, err := ValidateStageRequest(httptest.NewRecorder(), r)
		assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
	})

	t.Run("malformed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/index", strings.NewReader(`{`))
		_, err := ValidateStageRequest(httptest.NewRecorder(), r)
		assert.Equal(t, http.StatusBadRequest, errors.Code(err))
	})
}

func TestValidateID(t *testing.T) {
	id := object.Hash([]byte("x"))
	got, err := ValidateID(string(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ValidateID("xyz")
	assert.True(t, errors.Is(err, errors.ErrorTypeValidation))
}
