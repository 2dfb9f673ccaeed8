package handler

import (
	"context"
	"net/http"

	"github.com/nerixyz/go-eventsub/internal/xhttp"
	"github.com/nerixyz/go-eventsub/internal/xslog"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	store Pinger
}

func NewHealth(store Pinger) *Health {
	return &Health{store: store}
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.store.Ping(ctx); err != nil {
		xslog.FromContext(ctx).ErrorContext(ctx, "replay store unreachable", xslog.Error(err))
		xhttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}

	xhttp.WriteOK(w, map[string]string{"status": "ok"})
}
