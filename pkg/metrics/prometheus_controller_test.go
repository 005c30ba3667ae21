package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(c interface{ Register(*mux.Router) }, path string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	c.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPrometheusController(t *testing.T) {
	c := NewPrometheusController("")
	assert.Equal(t, "/debug/prometheus", c.Key())

	rec := serve(c, "/debug/prometheus")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestHealthController(t *testing.T) {
	rec := serve(NewHealthController(pingerFunc(func(context.Context) error { return nil })), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","database":"ok"}`, rec.Body.String())

	rec = serve(NewHealthController(pingerFunc(func(context.Context) error { return errors.New("refused") })), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "refused")
}
