package utils

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondError(resp, http.StatusBadRequest, "Message is required")

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Message is required"}`, resp.Body.String())
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	var dst struct {
		Message string `json:"message"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))

	err := DecodeJSON(httptest.NewRecorder(), req, &dst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestDecodeJSONTooLarge(t *testing.T) {
	var dst map[string]string
	body := `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	err := DecodeJSON(httptest.NewRecorder(), req, &dst)
	var maxErr *http.MaxBytesError
	assert.True(t, errors.As(err, &maxErr))
}
