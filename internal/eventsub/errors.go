package eventsub

import "errors"

// Header validation errors. All are terminal for the current request.
var (
	ErrMissingHeader         = errors.New("missing header")
	ErrBadMessageType        = errors.New("message type is not recognized")
	ErrSignatureTooShort     = errors.New("signature too short")
	ErrSignatureNotHex       = errors.New("signature is not hexadecimal")
	ErrVersionMismatch       = errors.New("subscription version mismatch")
	ErrWrongSubscriptionType = errors.New("wrong subscription type")
	ErrBadTimestamp          = errors.New("timestamp is improperly formatted")
	ErrMessageTooOld         = errors.New("message is too old")
)

// Verification and decoding errors.
var (
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrRequestTooLarge   = errors.New("request too large")
	ErrPayload           = errors.New("payload read failed")
	ErrDecode            = errors.New("payload decode failed")
	ErrIDNotUTF8         = errors.New("message id is not valid utf-8")
	ErrWontHandleID      = errors.New("won't handle id (possible duplicate)")
)

// Configuration errors. These indicate a host setup defect, not a bad
// request, and should surface as server-side faults.
var (
	ErrNoHMACKey   = errors.New("no hmac key provided")
	ErrHMACInit    = errors.New("bad secret key")
	ErrReplayCheck = errors.New("replay check failed")
)

// IsServerFault reports whether err indicates a defect in the host
// (missing or invalid secret, replay store outage) rather than an invalid
// or malicious request.
func IsServerFault(err error) bool {
	return errors.Is(err, ErrNoHMACKey) ||
		errors.Is(err, ErrHMACInit) ||
		errors.Is(err, ErrReplayCheck)
}
