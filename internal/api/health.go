package api

import (
	"context"
	"net/http"
	"time"
)

// DBChecker reports whether the submissions archive is reachable.
type DBChecker interface {
	HealthCheck(ctx context.Context) error
}

// BrokerChecker reports whether the event broker connection is up.
type BrokerChecker interface {
	IsConnected() bool
}

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// HealthHandler reports service health. The database and broker are optional
// integrations: absent means not_configured, not unhealthy.
type HealthHandler struct {
	db        DBChecker
	broker    BrokerChecker
	version   string
	startTime time.Time
}

func NewHealthHandler(db DBChecker, broker BrokerChecker, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		broker:    broker,
		version:   version,
		startTime: startTime,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"
	httpStatus := http.StatusOK

	if h.db != nil {
		if err := h.db.HealthCheck(r.Context()); err != nil {
			checks["database"] = "error"
			status = "degraded"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not_configured"
	}

	if h.broker != nil {
		if h.broker.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			if status == "healthy" {
				status = "degraded"
			}
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	WriteJSON(w, httpStatus, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}
