package eventsub

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Request headers sent with every EventSub webhook delivery.
// https://dev.twitch.tv/docs/eventsub/handling-webhook-events#list-of-request-headers
const (
	HeaderSubscriptionType    = "Twitch-Eventsub-Subscription-Type"
	HeaderSubscriptionVersion = "Twitch-Eventsub-Subscription-Version"
	HeaderMessageSignature    = "Twitch-Eventsub-Message-Signature"
	HeaderMessageType         = "Twitch-Eventsub-Message-Type"
	HeaderMessageID           = "Twitch-Eventsub-Message-Id"
	HeaderMessageTimestamp    = "Twitch-Eventsub-Message-Timestamp"
)

const signaturePrefix = "sha256="

// MaxMessageAge is the freshness window. Messages whose timestamp header is
// older than this are rejected before any body bytes are read.
const MaxMessageAge = 10 * time.Minute

// MessageType identifies which payload variant a delivery carries.
type MessageType string

const (
	MessageTypeNotification MessageType = "notification"
	MessageTypeVerification MessageType = "webhook_callback_verification"
	MessageTypeRevocation   MessageType = "revocation"
)

func parseMessageType(s string) (MessageType, bool) {
	switch MessageType(s) {
	case MessageTypeNotification, MessageTypeVerification, MessageTypeRevocation:
		return MessageType(s), true
	default:
		return "", false
	}
}

// EventSubscription associates an event payload type with the subscription
// type and version strings the sender declares in its headers.
type EventSubscription interface {
	EventType() string
	EventVersion() string
}

// ParsedHeaders is the validated header set for one delivery.
// ID and Timestamp hold the raw header values; they are fed to the HMAC
// before any body bytes.
type ParsedHeaders struct {
	MessageType MessageType
	// Signature is the declared MAC, hex-decoded with the "sha256=" prefix stripped.
	Signature []byte
	ID        string
	Timestamp string
}

// ReadHeaders validates the EventSub headers against the expected
// subscription descriptor. Checks run in a fixed order and the first failure
// wins. It performs no I/O; now supplies the instant for the freshness check.
func ReadHeaders(header http.Header, sub EventSubscription, now time.Time) (*ParsedHeaders, error) {
	// Presence and equality are one check: a missing subscription-type header
	// is reported as the wrong subscription type.
	if header.Get(HeaderSubscriptionType) != sub.EventType() {
		return nil, fmt.Errorf("%w: expected %s", ErrWrongSubscriptionType, sub.EventType())
	}

	rawType := header.Get(HeaderMessageType)
	if rawType == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, HeaderMessageType)
	}
	messageType, ok := parseMessageType(rawType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadMessageType, rawType)
	}

	rawSignature := header.Get(HeaderMessageSignature)
	if rawSignature == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, HeaderMessageSignature)
	}
	if len(rawSignature) <= len(signaturePrefix) || !strings.HasPrefix(rawSignature, signaturePrefix) {
		return nil, ErrSignatureTooShort
	}
	signature, err := hex.DecodeString(rawSignature[len(signaturePrefix):])
	if err != nil {
		return nil, ErrSignatureNotHex
	}

	version := header.Get(HeaderSubscriptionVersion)
	if version == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, HeaderSubscriptionVersion)
	}
	if version != sub.EventVersion() {
		return nil, fmt.Errorf("%w: expected %s", ErrVersionMismatch, sub.EventVersion())
	}

	id := header.Get(HeaderMessageID)
	if id == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, HeaderMessageID)
	}

	rawTimestamp := header.Get(HeaderMessageTimestamp)
	if rawTimestamp == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeader, HeaderMessageTimestamp)
	}
	timestamp, err := time.Parse(time.RFC3339Nano, rawTimestamp)
	if err != nil {
		return nil, ErrBadTimestamp
	}
	// Only age is bounded; a timestamp ahead of now is not rejected.
	if now.Sub(timestamp) > MaxMessageAge {
		return nil, ErrMessageTooOld
	}

	return &ParsedHeaders{
		MessageType: messageType,
		Signature:   signature,
		ID:          id,
		Timestamp:   rawTimestamp,
	}, nil
}
