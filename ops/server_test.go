package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerStub struct{ err error }

func (p pingerStub) Ping(context.Context) error { return p.err }

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRootReportsIdentity(t *testing.T) {
	srv := New(":0", pingerStub{})
	rec := doGet(t, srv, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "offerbot", body["service"])
	assert.NotEmpty(t, body["version"])
}

func TestHealthOK(t *testing.T) {
	srv := New(":0", pingerStub{})
	rec := doGet(t, srv, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthStorageDown(t *testing.T) {
	srv := New(":0", pingerStub{err: errors.New("connection refused")})
	rec := doGet(t, srv, "/health")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"down"`)
}

func TestMetricsExposed(t *testing.T) {
	srv := New(":0", pingerStub{})
	rec := doGet(t, srv, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
