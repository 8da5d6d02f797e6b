package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPServer_EmptyAddrDisables(t *testing.T) {
	s := &Server{started: time.Now()}
	assert.Nil(t, s.httpServer(""))
}

func TestHTTPServer_Routes(t *testing.T) {
	s := &Server{started: time.Now(), ticks: 2, lastError: "boom"}
	srv := s.httpServer(":0")
	require.NotNil(t, srv)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "running", resp.Status)
	assert.Equal(t, 2, resp.Ticks)
	assert.Equal(t, "boom", resp.LastError)

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
