// Package handler exposes the liveness endpoint.
package handler

import (
	"context"
	"net/http"
	"time"

	"propertydesk/backend/internal/server/httpjson"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves GET /healthz for Kubernetes, load balancers, and CI.
type Handler struct {
	db Pinger
}

// NewHandler returns a health handler. db may be nil to skip the DB probe.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

type healthResponse struct {
	Status string `json:"status"`
}

// Healthz answers 200 when the process is up and the database responds.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			httpjson.Write(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
			return
		}
	}
	httpjson.Write(w, http.StatusOK, healthResponse{Status: "ok"})
}
