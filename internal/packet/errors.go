package packet

import "errors"

// Parse errors. Both are expected for arbitrary traffic seen by a capture
// socket and are meant to be counted and skipped, not reported as failures.
var (
	// ErrTooShort is returned when the datagram ends before the IP header,
	// the ICMP header or the hidden data byte.
	ErrTooShort = errors.New("packet too short")

	// ErrNotEchoRequest is returned for well-formed ICMP messages that are
	// not Echo Requests (replies, unreachables, ...).
	ErrNotEchoRequest = errors.New("not an echo request")
)

// Reason is a short machine-readable label for a parse failure,
// suitable for log attributes and counters.
type Reason string

// Parse failure reasons.
const (
	ReasonNone      Reason = ""
	ReasonTooShort  Reason = "too-short"
	ReasonWrongType Reason = "wrong-type"
	ReasonUnknown   Reason = "unknown"
)

// ReasonOf maps a parse error to its Reason.
func ReasonOf(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case errors.Is(err, ErrTooShort):
		return ReasonTooShort
	case errors.Is(err, ErrNotEchoRequest):
		return ReasonWrongType
	default:
		return ReasonUnknown
	}
}
