package debug

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyEndpoint(t *testing.T) {
	t.Cleanup(func() {
		SetNotReady()
		SetReadyCheck(nil)
	})

	mux := NewMux()
	probe := func() int {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		return rec.Code
	}

	SetNotReady()
	assert.Equal(t, http.StatusServiceUnavailable, probe())

	SetReady()
	assert.Equal(t, http.StatusOK, probe())

	SetReadyCheck(func(context.Context) error { return errors.New("store unreachable") })
	assert.Equal(t, http.StatusServiceUnavailable, probe())
}

func TestHealthAndMetrics(t *testing.T) {
	mux := NewMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
