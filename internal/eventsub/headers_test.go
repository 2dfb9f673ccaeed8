package eventsub

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

// testSecret matches the key the twitch-cli uses in its documentation; it is
// used as a literal key, not hex-decoded.
const testSecret = "5f5f121fc807a21bab4209b2f34e90932778f12c099ca3ca17ee00afd0b328ba"

func validHeaders(now time.Time) http.Header {
	var sub ChannelFollowEvent
	h := http.Header{}
	h.Set(HeaderSubscriptionType, sub.EventType())
	h.Set(HeaderSubscriptionVersion, sub.EventVersion())
	h.Set(HeaderMessageType, string(MessageTypeNotification))
	h.Set(HeaderMessageID, "befa7b53-d79d-478f-86b9-120f112b044e")
	h.Set(HeaderMessageTimestamp, now.UTC().Format(time.RFC3339Nano))
	h.Set(HeaderMessageSignature, "sha256="+"00"+"11"+"22"+"33")
	return h
}

func TestReadHeaders(t *testing.T) {
	t.Parallel()

	now := time.Date(2023, 4, 12, 18, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(h http.Header)
		wantErr error
	}{
		{
			name:    "valid",
			mutate:  func(http.Header) {},
			wantErr: nil,
		},
		{
			name:    "wrong subscription type",
			mutate:  func(h http.Header) { h.Set(HeaderSubscriptionType, "channel.update") },
			wantErr: ErrWrongSubscriptionType,
		},
		{
			name:    "missing subscription type reported as wrong type",
			mutate:  func(h http.Header) { h.Del(HeaderSubscriptionType) },
			wantErr: ErrWrongSubscriptionType,
		},
		{
			name:    "missing message type",
			mutate:  func(h http.Header) { h.Del(HeaderMessageType) },
			wantErr: ErrMissingHeader,
		},
		{
			name:    "bogus message type",
			mutate:  func(h http.Header) { h.Set(HeaderMessageType, "bogus") },
			wantErr: ErrBadMessageType,
		},
		{
			name:    "message type is case sensitive",
			mutate:  func(h http.Header) { h.Set(HeaderMessageType, "Notification") },
			wantErr: ErrBadMessageType,
		},
		{
			name:    "missing signature",
			mutate:  func(h http.Header) { h.Del(HeaderMessageSignature) },
			wantErr: ErrMissingHeader,
		},
		{
			name:    "signature without prefix",
			mutate:  func(h http.Header) { h.Set(HeaderMessageSignature, "deadbeefdeadbeef") },
			wantErr: ErrSignatureTooShort,
		},
		{
			name:    "signature prefix only",
			mutate:  func(h http.Header) { h.Set(HeaderMessageSignature, "sha256=") },
			wantErr: ErrSignatureTooShort,
		},
		{
			name:    "signature not hex",
			mutate:  func(h http.Header) { h.Set(HeaderMessageSignature, "sha256=zzzz") },
			wantErr: ErrSignatureNotHex,
		},
		{
			name:    "missing version",
			mutate:  func(h http.Header) { h.Del(HeaderSubscriptionVersion) },
			wantErr: ErrMissingHeader,
		},
		{
			name:    "version mismatch",
			mutate:  func(h http.Header) { h.Set(HeaderSubscriptionVersion, "1") },
			wantErr: ErrVersionMismatch,
		},
		{
			name:    "missing id",
			mutate:  func(h http.Header) { h.Del(HeaderMessageID) },
			wantErr: ErrMissingHeader,
		},
		{
			name:    "missing timestamp",
			mutate:  func(h http.Header) { h.Del(HeaderMessageTimestamp) },
			wantErr: ErrMissingHeader,
		},
		{
			name:    "malformed timestamp",
			mutate:  func(h http.Header) { h.Set(HeaderMessageTimestamp, "yesterday") },
			wantErr: ErrBadTimestamp,
		},
		{
			name: "timestamp ten minutes and one second old",
			mutate: func(h http.Header) {
				h.Set(HeaderMessageTimestamp, now.Add(-10*time.Minute-time.Second).Format(time.RFC3339Nano))
			},
			wantErr: ErrMessageTooOld,
		},
		{
			name: "timestamp nine minutes fifty-nine seconds old",
			mutate: func(h http.Header) {
				h.Set(HeaderMessageTimestamp, now.Add(-9*time.Minute-59*time.Second).Format(time.RFC3339Nano))
			},
			wantErr: nil,
		},
		{
			name: "timestamp exactly ten minutes old",
			mutate: func(h http.Header) {
				h.Set(HeaderMessageTimestamp, now.Add(-10*time.Minute).Format(time.RFC3339Nano))
			},
			wantErr: nil,
		},
		{
			name: "future timestamp accepted",
			mutate: func(h http.Header) {
				h.Set(HeaderMessageTimestamp, now.Add(time.Hour).Format(time.RFC3339Nano))
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := validHeaders(now)
			tt.mutate(h)

			parsed, err := ReadHeaders(h, ChannelFollowEvent{}, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadHeaders() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadHeaders() unexpected error: %v", err)
			}
			if parsed.MessageType != MessageTypeNotification {
				t.Errorf("MessageType = %q, want %q", parsed.MessageType, MessageTypeNotification)
			}
			if parsed.ID == "" || parsed.Timestamp == "" {
				t.Errorf("ParsedHeaders missing id or timestamp: %+v", parsed)
			}
		})
	}
}

func TestReadHeadersChecksOrder(t *testing.T) {
	t.Parallel()

	now := time.Now()

	// A request can fail several checks at once; the first applicable
	// failure in the fixed order is the one reported.
	h := validHeaders(now)
	h.Set(HeaderMessageType, "bogus")
	h.Del(HeaderMessageSignature)

	if _, err := ReadHeaders(h, ChannelFollowEvent{}, now); !errors.Is(err, ErrBadMessageType) {
		t.Fatalf("ReadHeaders() error = %v, want %v", err, ErrBadMessageType)
	}
}

func TestReadHeadersDecodesSignature(t *testing.T) {
	t.Parallel()

	now := time.Now()

	h := validHeaders(now)
	h.Set(HeaderMessageSignature, "sha256=DEADBEEF")

	parsed, err := ReadHeaders(h, ChannelFollowEvent{}, now)
	if err != nil {
		t.Fatalf("ReadHeaders() unexpected error: %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if string(parsed.Signature) != string(want) {
		t.Errorf("Signature = %x, want %x", parsed.Signature, want)
	}
}
