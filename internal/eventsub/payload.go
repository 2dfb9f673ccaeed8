package eventsub

import (
	"fmt"
	"time"

	go_json "github.com/goccy/go-json"
)

// Transport describes how the sender delivers events for a subscription.
type Transport struct {
	Method   string `json:"method"`
	Callback string `json:"callback"`
}

// Subscription is the subscription object embedded in every payload variant.
type Subscription struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	Type      string             `json:"type"`
	Version   string             `json:"version"`
	Cost      int                `json:"cost"`
	Condition go_json.RawMessage `json:"condition"`
	Transport Transport          `json:"transport"`
	CreatedAt time.Time          `json:"created_at"`
}

// Verification is the one-time challenge payload sent when a subscription is
// created. The receiver must echo Challenge verbatim as the response body.
type Verification struct {
	Challenge    string       `json:"challenge"`
	Subscription Subscription `json:"subscription"`
}

// Notification carries an occurred event's data.
type Notification[T EventSubscription] struct {
	Event        T            `json:"event"`
	Subscription Subscription `json:"subscription"`
}

// Revocation indicates the sender has unilaterally ended the subscription.
type Revocation struct {
	Subscription Subscription `json:"subscription"`
}

// Payload is the decoded body of one delivery. Exactly one variant is
// non-nil, matching Type.
type Payload[T EventSubscription] struct {
	Type         MessageType
	Verification *Verification
	Notification *Notification[T]
	Revocation   *Revocation
}

// decodePayload deserializes body into the variant selected by messageType.
// Exactly one variant is attempted, never all three.
func decodePayload[T EventSubscription](messageType MessageType, body []byte) (Payload[T], error) {
	payload := Payload[T]{Type: messageType}

	var err error
	switch messageType {
	case MessageTypeVerification:
		var v Verification
		if err = go_json.Unmarshal(body, &v); err == nil {
			payload.Verification = &v
		}
	case MessageTypeNotification:
		var n Notification[T]
		if err = go_json.Unmarshal(body, &n); err == nil {
			payload.Notification = &n
		}
	case MessageTypeRevocation:
		var r Revocation
		if err = go_json.Unmarshal(body, &r); err == nil {
			payload.Revocation = &r
		}
	default:
		return Payload[T]{}, fmt.Errorf("%w: %q", ErrBadMessageType, messageType)
	}
	if err != nil {
		return Payload[T]{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return payload, nil
}
