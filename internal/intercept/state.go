package intercept

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// State is the phase of a capture session.
type State int

const (
	// Listening is the initial state: nothing has been captured yet.
	Listening State = iota
	// Capturing means at least one covert byte has been recorded.
	Capturing
	// Done means the end marker was received.
	Done
	// Cancelled means capture stopped before the end marker, either on
	// request or because the source ran dry.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case Capturing:
		return "capturing"
	case Done:
		return "done"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Done || s == Cancelled
}

// Text encodings reported by Decode.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

// CaptureState maps sequence numbers to received data bytes. A repeated
// sequence number overwrites the earlier byte. It belongs to a single
// capture session and is not safe for concurrent use.
type CaptureState struct {
	bytes map[uint16]byte
}

// NewCaptureState returns an empty CaptureState.
func NewCaptureState() *CaptureState {
	return &CaptureState{bytes: make(map[uint16]byte)}
}

// Record stores b at seq. It returns the previous byte and true if seq had
// already been recorded.
func (c *CaptureState) Record(seq uint16, b byte) (byte, bool) {
	prev, ok := c.bytes[seq]
	c.bytes[seq] = b
	return prev, ok
}

// Len returns the number of distinct sequence numbers recorded.
func (c *CaptureState) Len() int {
	return len(c.bytes)
}

// Sequences returns the recorded sequence numbers in ascending order.
func (c *CaptureState) Sequences() []uint16 {
	seqs := make([]uint16, 0, len(c.bytes))
	for seq := range c.bytes {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	return seqs
}

// Reassemble concatenates the recorded bytes in ascending sequence order,
// leaving out every byte equal to endMarker.
func (c *CaptureState) Reassemble(endMarker byte) []byte {
	out := make([]byte, 0, len(c.bytes))
	for _, seq := range c.Sequences() {
		if b := c.bytes[seq]; b != endMarker {
			out = append(out, b)
		}
	}
	return out
}

// Missing returns the sequence numbers between 1 and the highest recorded
// one that never arrived.
func (c *CaptureState) Missing() []uint16 {
	seqs := c.Sequences()
	if len(seqs) == 0 {
		return nil
	}

	var missing []uint16
	next := uint16(1)
	for _, seq := range seqs {
		for ; next < seq; next++ {
			missing = append(missing, next)
		}
		next = seq + 1
	}
	return missing
}

// Decode turns reassembled bytes into text. Valid UTF-8 is used as is;
// anything else is decoded as ISO-8859-1, which maps every byte to one
// character, so no byte is lost.
func Decode(b []byte) (string, string) {
	if utf8.Valid(b) {
		return string(b), EncodingUTF8
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		// ISO-8859-1 decoding cannot fail; keep the bytes regardless.
		return string(b), EncodingLatin1
	}
	return string(text), EncodingLatin1
}
