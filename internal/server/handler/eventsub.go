package handler

import (
	"context"
	"net/http"

	"github.com/nerixyz/go-eventsub/internal/eventsub"
	"github.com/nerixyz/go-eventsub/internal/xerrors"
	"github.com/nerixyz/go-eventsub/internal/xhttp"
	"github.com/nerixyz/go-eventsub/internal/xslog"
)

// NotifyFunc handles one verified notification.
type NotifyFunc[T eventsub.EventSubscription] func(ctx context.Context, notification eventsub.Notification[T]) error

// EventSub serves POST deliveries for one event type. It verifies and
// decodes each delivery through the pipeline, echoes verification
// challenges, and hands notifications to the injected NotifyFunc.
type EventSub[T eventsub.EventSubscription] struct {
	cfg    eventsub.Config
	notify NotifyFunc[T]
}

func NewEventSub[T eventsub.EventSubscription](cfg eventsub.Config, notify NotifyFunc[T]) *EventSub[T] {
	return &EventSub[T]{cfg: cfg, notify: notify}
}

func (h *EventSub[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := xslog.FromContext(ctx)

	payload, err := eventsub.Verify[T](ctx, h.cfg, r.Header, r.Body)
	if err != nil {
		xerrors.WriteError(ctx, w, verifyError(err))
		return
	}

	messageID := r.Header.Get(eventsub.HeaderMessageID)

	switch payload.Type {
	case eventsub.MessageTypeVerification:
		logger.InfoContext(ctx, "verification challenge",
			xslog.MessageGroup(messageID, string(payload.Type), payload.Verification.Subscription.Type),
			xslog.SubscriptionID(payload.Verification.Subscription.ID),
		)
		// The challenge must be echoed verbatim as the response body.
		xhttp.SetHeaderContentTypeTextPlain(w)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(payload.Verification.Challenge))

	case eventsub.MessageTypeNotification:
		if err := h.notify(ctx, *payload.Notification); err != nil {
			logger.ErrorContext(ctx, "failed to handle notification",
				xslog.Error(err),
				xslog.MessageID(messageID),
			)
			xerrors.WriteError(ctx, w, xerrors.Internal(xerrors.WithMessage("failed to handle notification"), xerrors.WithCause(err)))
			return
		}
		logger.InfoContext(ctx, "handled notification",
			xslog.MessageGroup(messageID, string(payload.Type), payload.Notification.Subscription.Type),
			xslog.SubscriptionID(payload.Notification.Subscription.ID),
		)
		xhttp.WriteNoContent(w)

	case eventsub.MessageTypeRevocation:
		logger.WarnContext(ctx, "subscription revoked",
			xslog.MessageGroup(messageID, string(payload.Type), payload.Revocation.Subscription.Type),
			xslog.SubscriptionID(payload.Revocation.Subscription.ID),
			xslog.SubscriptionStatus(payload.Revocation.Subscription.Status),
		)
		xhttp.WriteNoContent(w)
	}
}

// verifyError maps pipeline errors onto HTTP errors: configuration defects
// are server faults, everything else is a bad request.
func verifyError(err error) *xerrors.Error {
	if eventsub.IsServerFault(err) {
		return xerrors.Internal(xerrors.WithCause(err))
	}
	return xerrors.BadRequest(xerrors.WithMessage(err.Error()), xerrors.WithCause(err))
}
