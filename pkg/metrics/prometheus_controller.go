package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/application"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/httpapi"
)

type PrometheusController struct {
	path string
}

func NewPrometheusController(path string) application.Controller {
	if path == "" {
		path = "/debug/prometheus"
	}
	return &PrometheusController{path: path}
}

func (c *PrometheusController) Key() string {
	return c.path
}

func (c *PrometheusController) Register(r *mux.Router) {
	r.Handle(c.path, promhttp.Handler()).Methods(http.MethodGet)
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthController answers /health with 200 while the database responds and
// 503 otherwise.
type HealthController struct {
	db      Pinger
	timeout time.Duration
}

func NewHealthController(db Pinger) application.Controller {
	return &HealthController{db: db, timeout: 2 * time.Second}
}

func (c *HealthController) Key() string {
	return "/health"
}

func (c *HealthController) Register(r *mux.Router) {
	r.HandleFunc("/health", c.health).Methods(http.MethodGet)
}

func (c *HealthController) health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "ok"}
	if c.db == nil {
		status["database"] = "unconfigured"
		_ = httpapi.WriteJSON(w, http.StatusOK, status)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()
	if err := c.db.Ping(ctx); err != nil {
		status["status"] = "degraded"
		status["database"] = err.Error()
		_ = httpapi.WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, status)
}
