package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendHTTPResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	SendHTTPResponse(context.Background(), rec, http.StatusOK, api.MessageResp{Message: "hi"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"message":"hi"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	SendHTTPResponse(context.Background(), rec, http.StatusNoContent, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestSendHTTPError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendHTTPError(context.Background(), rec, http.StatusInternalServerError, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp api.ErrorResp
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, errorMessage, resp.Message)
	assert.Equal(t, "boom", resp.Error)
}

func TestUnmarshalRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"x"}`))
	var m api.MessageResp
	require.Nil(t, UnmarshalRequest(r, &m))
	assert.Equal(t, "x", m.Message)
}
