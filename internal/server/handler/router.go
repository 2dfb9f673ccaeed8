package handler

import (
	"net/http"

	"github.com/nerixyz/go-eventsub/internal/eventsub"
	"github.com/nerixyz/go-eventsub/internal/xerrors"
)

type routeKey struct {
	eventType string
	version   string
}

// EventRouter lets multiple event kinds share one callback endpoint.
// Deliveries are dispatched on the subscription-type and
// subscription-version headers before any body is read; an unknown pair
// is not an EventSub delivery we subscribed to and gets a 404.
type EventRouter struct {
	routes map[routeKey]http.Handler
}

func NewEventRouter() *EventRouter {
	return &EventRouter{routes: make(map[routeKey]http.Handler)}
}

// Handle registers h for the event kind described by sub.
func (er *EventRouter) Handle(sub eventsub.EventSubscription, h http.Handler) {
	er.routes[routeKey{eventType: sub.EventType(), version: sub.EventVersion()}] = h
}

func (er *EventRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := routeKey{
		eventType: r.Header.Get(eventsub.HeaderSubscriptionType),
		version:   r.Header.Get(eventsub.HeaderSubscriptionVersion),
	}

	h, ok := er.routes[key]
	if !ok {
		xerrors.WriteError(r.Context(), w, xerrors.NotFound(xerrors.WithMessage("unknown subscription type or version")))
		return
	}
	h.ServeHTTP(w, r)
}
