package eventsub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"
)

// MaxBodySize bounds the accumulated body of a single delivery.
const MaxBodySize = 10_000_000

// SecretSource supplies the HMAC key for a delivery.
type SecretSource interface {
	// Secret returns the shared secret. Return ErrNoHMACKey (or wrap it)
	// if the secret is unavailable.
	Secret(ctx context.Context) ([]byte, error)
}

// SecretFunc adapts a function to a SecretSource.
type SecretFunc func(ctx context.Context) ([]byte, error)

func (f SecretFunc) Secret(ctx context.Context) ([]byte, error) { return f(ctx) }

// StaticSecret returns a SecretSource backed by a fixed secret.
func StaticSecret(secret []byte) SecretSource {
	return SecretFunc(func(context.Context) ([]byte, error) {
		if len(secret) == 0 {
			return nil, ErrNoHMACKey
		}
		return secret, nil
	})
}

// ReplayChecker answers whether a message id should be processed now.
// A typical implementation claims the id in a shared keyed store with a TTL
// around the freshness window: true means the id was newly claimed, false
// means it was already present and the delivery is a duplicate.
type ReplayChecker interface {
	CheckEventID(ctx context.Context, id string) (bool, error)
}

// ReplayCheckerFunc adapts a function to a ReplayChecker.
type ReplayCheckerFunc func(ctx context.Context, id string) (bool, error)

func (f ReplayCheckerFunc) CheckEventID(ctx context.Context, id string) (bool, error) {
	return f(ctx, id)
}

// Config bundles the collaborators a pipeline needs. Secret is required.
// A nil Replay disables duplicate-id suppression: every id is handled.
type Config struct {
	Secret SecretSource
	Replay ReplayChecker
}

type pipelineState int

const (
	stateDecoding pipelineState = iota
	stateCheckingID
	stateDone
)

var errPipelineState = errors.New("pipeline used out of order")

// Pipeline verifies and decodes a single EventSub delivery. It is a one-shot
// state machine: header validation and MAC initialization in Start, size-bounded
// body accumulation in Feed, then signature finalization, payload decoding, and
// the replay check in Finish. Any failure is terminal; the instance must not be
// reused. Run drives the whole sequence from an io.Reader.
//
// A Pipeline serves exactly one request and shares no state with other
// instances; the Config collaborators must be safe for concurrent use.
type Pipeline[T EventSubscription] struct {
	cfg Config

	state    pipelineState
	headers  *ParsedHeaders
	verifier *Verifier
	body     bytes.Buffer
}

// New creates a pipeline for one delivery of the event type T.
func New[T EventSubscription](cfg Config) *Pipeline[T] {
	return &Pipeline[T]{cfg: cfg}
}

// Start validates the headers and initializes the MAC with the secret, the
// message id, and the timestamp. No body bytes are read here; header failures
// are reported before any HMAC work.
func (p *Pipeline[T]) Start(ctx context.Context, header http.Header) error {
	if p.state != stateDecoding || p.headers != nil {
		return errPipelineState
	}

	var sub T
	parsed, err := ReadHeaders(header, sub, time.Now())
	if err != nil {
		return p.fail(err)
	}

	if p.cfg.Secret == nil {
		return p.fail(ErrNoHMACKey)
	}
	secret, err := p.cfg.Secret.Secret(ctx)
	if err != nil {
		return p.fail(err)
	}

	verifier, err := NewVerifier(secret, []byte(parsed.ID), []byte(parsed.Timestamp))
	if err != nil {
		return p.fail(err)
	}

	p.headers = parsed
	p.verifier = verifier
	return nil
}

// Feed accumulates one body chunk, updating the MAC. Chunk boundaries carry
// no meaning: re-chunking the same byte stream verifies identically. If the
// accumulated size would exceed MaxBodySize the pipeline fails terminally
// without consuming further chunks.
func (p *Pipeline[T]) Feed(chunk []byte) error {
	if p.state != stateDecoding || p.verifier == nil {
		return errPipelineState
	}
	if int64(p.body.Len())+int64(len(chunk)) > MaxBodySize {
		return p.fail(ErrRequestTooLarge)
	}
	p.body.Write(chunk)
	if _, err := p.verifier.Write(chunk); err != nil {
		return p.fail(err)
	}
	return nil
}

// Finish finalizes the signature check, decodes the payload, and runs the
// replay check. It yields the result exactly once.
func (p *Pipeline[T]) Finish(ctx context.Context) (Payload[T], error) {
	if p.state != stateDecoding || p.verifier == nil {
		return Payload[T]{}, errPipelineState
	}

	ok, err := p.verifier.Verify(p.headers.Signature)
	if err != nil {
		return Payload[T]{}, p.fail(err)
	}
	if !ok {
		return Payload[T]{}, p.fail(ErrSignatureMismatch)
	}

	payload, err := decodePayload[T](p.headers.MessageType, p.body.Bytes())
	if err != nil {
		return Payload[T]{}, p.fail(err)
	}

	if !utf8.ValidString(p.headers.ID) {
		return Payload[T]{}, p.fail(ErrIDNotUTF8)
	}

	if p.cfg.Replay != nil {
		p.state = stateCheckingID
		handle, err := p.cfg.Replay.CheckEventID(ctx, p.headers.ID)
		if err != nil {
			return Payload[T]{}, p.fail(fmt.Errorf("%w: %v", ErrReplayCheck, err))
		}
		if !handle {
			return Payload[T]{}, p.fail(ErrWontHandleID)
		}
	}

	p.state = stateDone
	return payload, nil
}

// Run drives Start, Feed, and Finish from an io.Reader body.
func (p *Pipeline[T]) Run(ctx context.Context, header http.Header, body io.Reader) (Payload[T], error) {
	if err := p.Start(ctx, header); err != nil {
		return Payload[T]{}, err
	}

	chunk := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return Payload[T]{}, p.fail(fmt.Errorf("%w: %v", ErrPayload, err))
		}
		n, err := body.Read(chunk)
		if n > 0 {
			if ferr := p.Feed(chunk[:n]); ferr != nil {
				return Payload[T]{}, ferr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Payload[T]{}, p.fail(fmt.Errorf("%w: %v", ErrPayload, err))
		}
	}

	return p.Finish(ctx)
}

func (p *Pipeline[T]) fail(err error) error {
	p.state = stateDone
	p.verifier = nil
	return err
}

// Verify runs a fresh pipeline over one request's headers and body.
func Verify[T EventSubscription](ctx context.Context, cfg Config, header http.Header, body io.Reader) (Payload[T], error) {
	return New[T](cfg).Run(ctx, header, body)
}
