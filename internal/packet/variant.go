package packet

import (
	"fmt"
	"strings"
)

// Variant selects the payload layout.
type Variant int

const (
	// Classic is a 32-byte payload: the data byte followed by 31 filler
	// bytes counting up from 0x08.
	Classic Variant = iota

	// Timestamped is a 56-byte payload shaped like Linux ping: the data
	// byte, an 8-byte big-endian Unix nanosecond timestamp, then 47 filler
	// bytes counting up from 0x08.
	Timestamped
)

// Payload sizes of each variant.
const (
	ClassicPayloadLen     = 32
	TimestampedPayloadLen = 56
)

// fillerStart is the first filler byte, as in the ping utility's pattern.
const fillerStart = 0x08

// PayloadLen returns the payload size of v in bytes.
func (v Variant) PayloadLen() int {
	if v == Timestamped {
		return TimestampedPayloadLen
	}
	return ClassicPayloadLen
}

// String returns the variant name used in config files and flags.
func (v Variant) String() string {
	switch v {
	case Classic:
		return "classic"
	case Timestamped:
		return "timestamped"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant parses a variant name, case-insensitively.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classic", "32":
		return Classic, nil
	case "timestamped", "56":
		return Timestamped, nil
	default:
		return Classic, fmt.Errorf("unknown packet variant %q: use classic or timestamped", s)
	}
}
