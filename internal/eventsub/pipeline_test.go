package eventsub

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// signedHeaders builds a header set whose signature matches body.
func signedHeaders(tb testing.TB, sub EventSubscription, messageType MessageType, id string, body []byte) http.Header {
	tb.Helper()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	h := http.Header{}
	h.Set(HeaderSubscriptionType, sub.EventType())
	h.Set(HeaderSubscriptionVersion, sub.EventVersion())
	h.Set(HeaderMessageType, string(messageType))
	h.Set(HeaderMessageID, id)
	h.Set(HeaderMessageTimestamp, timestamp)
	h.Set(HeaderMessageSignature, Sign([]byte(testSecret), []byte(id), []byte(timestamp), body))
	return h
}

// onceChecker handles each id exactly once, like a claim store would.
type onceChecker struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (c *onceChecker) CheckEventID(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[id] {
		return false, nil
	}
	c.seen[id] = true
	return true, nil
}

func testConfig(replay ReplayChecker) Config {
	return Config{
		Secret: StaticSecret([]byte(testSecret)),
		Replay: replay,
	}
}

func TestPipelineVerificationChallenge(t *testing.T) {
	t.Parallel()

	body := []byte(verificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeVerification, "msg-1", body)

	payload, err := Verify[ChannelFollowEvent](context.Background(), testConfig(&onceChecker{}), h, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if payload.Verification == nil {
		t.Fatal("Verification variant is nil")
	}
	if got, want := payload.Verification.Challenge, "pogchamp-kappa-360noscope-vohiyo"; got != want {
		t.Errorf("Challenge = %q, want %q", got, want)
	}
}

func TestPipelineNotification(t *testing.T) {
	t.Parallel()

	body := []byte(followNotificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeNotification, "msg-2", body)

	payload, err := Verify[ChannelFollowEvent](context.Background(), testConfig(&onceChecker{}), h, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if payload.Notification == nil {
		t.Fatal("Notification variant is nil")
	}
	if got, want := payload.Notification.Event.UserLogin, "cool_user"; got != want {
		t.Errorf("Event.UserLogin = %q, want %q", got, want)
	}
}

func TestPipelineSignatureMismatch(t *testing.T) {
	t.Parallel()

	body := []byte(followNotificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeNotification, "msg-3", body)

	// Flip one body byte after signing.
	tampered := append([]byte(nil), body...)
	tampered[10] ^= 0x01

	_, err := Verify[ChannelFollowEvent](context.Background(), testConfig(&onceChecker{}), h, bytes.NewReader(tampered))
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrSignatureMismatch)
	}
}

func TestPipelineRechunkingInvariance(t *testing.T) {
	t.Parallel()

	body := []byte(verificationBody)

	for _, chunkSize := range []int{1, 13, 256, len(body)} {
		h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeVerification, "msg-4", body)

		p := New[ChannelFollowEvent](testConfig(nil))
		if err := p.Start(context.Background(), h); err != nil {
			t.Fatalf("Start() error: %v", err)
		}
		for start := 0; start < len(body); start += chunkSize {
			end := min(start+chunkSize, len(body))
			if err := p.Feed(body[start:end]); err != nil {
				t.Fatalf("Feed() error: %v", err)
			}
		}
		if _, err := p.Finish(context.Background()); err != nil {
			t.Errorf("Finish() error with chunk size %d: %v", chunkSize, err)
		}
	}
}

func TestPipelineBodySizeBoundary(t *testing.T) {
	t.Parallel()

	p := New[ChannelFollowEvent](testConfig(nil))
	body := []byte(verificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeVerification, "msg-5", body)
	if err := p.Start(context.Background(), h); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	// Exactly MaxBodySize bytes accumulate without error.
	chunk := make([]byte, 1_000_000)
	for i := 0; i < 10; i++ {
		if err := p.Feed(chunk); err != nil {
			t.Fatalf("Feed() error below the cap: %v", err)
		}
	}

	// One more byte crosses the cap before it is consumed.
	if err := p.Feed([]byte{'x'}); !errors.Is(err, ErrRequestTooLarge) {
		t.Fatalf("Feed() error = %v, want %v", err, ErrRequestTooLarge)
	}

	// The pipeline is terminal: no signature finalization is attempted.
	if _, err := p.Finish(context.Background()); !errors.Is(err, errPipelineState) {
		t.Errorf("Finish() after overflow error = %v, want %v", err, errPipelineState)
	}
}

func TestPipelineMaxSizeBodyVerifies(t *testing.T) {
	t.Parallel()

	const (
		prefix = `{"challenge":"`
		suffix = `","subscription":{}}`
	)
	pad := MaxBodySize - len(prefix) - len(suffix)
	body := []byte(prefix + strings.Repeat("a", pad) + suffix)
	if len(body) != MaxBodySize {
		t.Fatalf("test body is %d bytes, want %d", len(body), MaxBodySize)
	}

	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeVerification, "msg-max", body)

	payload, err := Verify[ChannelFollowEvent](context.Background(), testConfig(nil), h, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Verify() error for a body of exactly MaxBodySize: %v", err)
	}
	if payload.Verification == nil || len(payload.Verification.Challenge) != pad {
		t.Error("challenge was not decoded intact")
	}
}

func TestPipelineReplayGuard(t *testing.T) {
	t.Parallel()

	cfg := testConfig(&onceChecker{})
	body := []byte(followNotificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeNotification, "dup-id", body)

	if _, err := Verify[ChannelFollowEvent](context.Background(), cfg, h, bytes.NewReader(body)); err != nil {
		t.Fatalf("first Verify() error: %v", err)
	}

	// A structurally identical, correctly signed request with the same id
	// is a duplicate.
	_, err := Verify[ChannelFollowEvent](context.Background(), cfg, h, bytes.NewReader(body))
	if !errors.Is(err, ErrWontHandleID) {
		t.Fatalf("second Verify() error = %v, want %v", err, ErrWontHandleID)
	}
}

func TestPipelineReplayGuardOutage(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Secret: StaticSecret([]byte(testSecret)),
		Replay: ReplayCheckerFunc(func(context.Context, string) (bool, error) {
			return false, errors.New("connection refused")
		}),
	}

	body := []byte(followNotificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeNotification, "msg-6", body)

	_, err := Verify[ChannelFollowEvent](context.Background(), cfg, h, bytes.NewReader(body))
	if !errors.Is(err, ErrReplayCheck) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrReplayCheck)
	}
	if !IsServerFault(err) {
		t.Error("IsServerFault() = false for a replay store outage")
	}
}

func TestPipelineBadMessageTypeBeforeSecret(t *testing.T) {
	t.Parallel()

	secretCalled := false
	cfg := Config{
		Secret: SecretFunc(func(context.Context) ([]byte, error) {
			secretCalled = true
			return []byte(testSecret), nil
		}),
	}

	body := []byte(verificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeVerification, "msg-7", body)
	h.Set(HeaderMessageType, "bogus")

	_, err := Verify[ChannelFollowEvent](context.Background(), cfg, h, bytes.NewReader(body))
	if !errors.Is(err, ErrBadMessageType) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrBadMessageType)
	}
	if secretCalled {
		t.Error("secret was fetched for a request with a malformed message type")
	}
}

func TestPipelineIDNotUTF8(t *testing.T) {
	t.Parallel()

	guardCalled := false
	cfg := Config{
		Secret: StaticSecret([]byte(testSecret)),
		Replay: ReplayCheckerFunc(func(context.Context, string) (bool, error) {
			guardCalled = true
			return true, nil
		}),
	}

	var sub ChannelFollowEvent
	body := []byte(verificationBody)
	id := "bad-\xff\xfe-id"
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	h := http.Header{}
	h.Set(HeaderSubscriptionType, sub.EventType())
	h.Set(HeaderSubscriptionVersion, sub.EventVersion())
	h.Set(HeaderMessageType, string(MessageTypeVerification))
	h[HeaderMessageID] = []string{id}
	h.Set(HeaderMessageTimestamp, timestamp)
	h.Set(HeaderMessageSignature, Sign([]byte(testSecret), []byte(id), []byte(timestamp), body))

	_, err := Verify[ChannelFollowEvent](context.Background(), cfg, h, bytes.NewReader(body))
	if !errors.Is(err, ErrIDNotUTF8) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrIDNotUTF8)
	}
	if guardCalled {
		t.Error("replay guard was invoked for a non-utf8 id")
	}
}

func TestPipelineNoSecret(t *testing.T) {
	t.Parallel()

	body := []byte(verificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeVerification, "msg-8", body)

	_, err := Verify[ChannelFollowEvent](context.Background(), Config{}, h, bytes.NewReader(body))
	if !errors.Is(err, ErrNoHMACKey) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrNoHMACKey)
	}
	if !IsServerFault(err) {
		t.Error("IsServerFault() = false for a missing secret")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestPipelinePayloadReadError(t *testing.T) {
	t.Parallel()

	body := []byte(verificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeVerification, "msg-9", body)

	_, err := Verify[ChannelFollowEvent](context.Background(), testConfig(nil), h, failingReader{})
	if !errors.Is(err, ErrPayload) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrPayload)
	}
}

func TestPipelineSerdeError(t *testing.T) {
	t.Parallel()

	body := []byte(`{"event": "not-an-object"`)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeNotification, "msg-10", body)

	_, err := Verify[ChannelFollowEvent](context.Background(), testConfig(nil), h, bytes.NewReader(body))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Verify() error = %v, want %v", err, ErrDecode)
	}
}

func TestPipelineYieldsResultOnce(t *testing.T) {
	t.Parallel()

	body := []byte(verificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeVerification, "msg-11", body)

	p := New[ChannelFollowEvent](testConfig(nil))
	if _, err := p.Run(context.Background(), h, bytes.NewReader(body)); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if _, err := p.Run(context.Background(), h, strings.NewReader("")); !errors.Is(err, errPipelineState) {
		t.Errorf("second Run() error = %v, want %v", err, errPipelineState)
	}
	if _, err := p.Finish(context.Background()); !errors.Is(err, errPipelineState) {
		t.Errorf("Finish() after completion error = %v, want %v", err, errPipelineState)
	}
}

func TestPipelineCancelledContext(t *testing.T) {
	t.Parallel()

	body := []byte(verificationBody)
	h := signedHeaders(t, ChannelFollowEvent{}, MessageTypeVerification, "msg-12", body)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Verify[ChannelFollowEvent](ctx, testConfig(nil), h, bytes.NewReader(body))
	if !errors.Is(err, ErrPayload) {
		t.Fatalf("Verify() with cancelled context error = %v, want %v", err, ErrPayload)
	}
}
