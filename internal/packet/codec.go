package packet

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Wire constants.
const (
	// TypeEchoRequest is the ICMP type of an Echo Request.
	TypeEchoRequest = 8

	// HeaderLen is the size of the ICMP header.
	HeaderLen = 8

	// minIPHeaderLen is the smallest legal IPv4 header (IHL = 5).
	minIPHeaderLen = 20
)

// Echo is a parsed Echo Request.
type Echo struct {
	Type     uint8
	Code     uint8
	Checksum uint16
	ID       uint16
	Seq      uint16

	// Data is the hidden byte, the first byte of the payload.
	Data byte

	// ChecksumOK is false when the message fails Verify. Such messages
	// are still returned; deciding what to do with them is up to the caller.
	ChecksumOK bool

	// Source is the sender address taken from the IP header.
	// It is nil when the message was parsed without one.
	Source net.IP
}

func (e Echo) String() string {
	return fmt.Sprintf("echo id=%d seq=%d data=%#02x src=%v", e.ID, e.Seq, e.Data, e.Source)
}

// Checksum computes the Internet checksum of b: the one's complement of the
// one's complement sum of its 16-bit big-endian words, with an odd trailing
// byte padded by zero.
func Checksum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i:]))
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}

// Verify reports whether the checksum of an ICMP message is consistent,
// that is, whether summing the message with its checksum field in place
// yields zero.
func Verify(icmp []byte) bool {
	return len(icmp) >= HeaderLen && Checksum(icmp) == 0
}

// Build returns an Echo Request carrying data, with the checksum filled in.
// now is only used by the Timestamped variant.
func Build(data byte, id, seq uint16, v Variant, now time.Time) []byte {
	b := make([]byte, HeaderLen+v.PayloadLen())

	b[0] = TypeEchoRequest
	b[1] = 0
	// b[2:4] checksum stays zero until the payload is written.
	binary.BigEndian.PutUint16(b[4:], id)
	binary.BigEndian.PutUint16(b[6:], seq)

	payload := b[HeaderLen:]
	payload[0] = data
	filler := payload[1:]
	if v == Timestamped {
		binary.BigEndian.PutUint64(payload[1:], uint64(now.UnixNano()))
		filler = payload[9:]
	}
	for i := range filler {
		filler[i] = byte(fillerStart + i)
	}

	binary.BigEndian.PutUint16(b[2:], Checksum(b))
	return b
}

// Parse decodes an IPv4 datagram (IP header followed by ICMP) and returns
// the Echo Request it carries. The IP header length is taken from the low
// nibble of the first byte.
func Parse(datagram []byte) (Echo, error) {
	if len(datagram) < minIPHeaderLen {
		return Echo{}, fmt.Errorf("%w: %d bytes, no room for an IP header", ErrTooShort, len(datagram))
	}
	ihl := int(datagram[0]&0x0F) * 4
	if ihl < minIPHeaderLen || ihl > len(datagram) {
		return Echo{}, fmt.Errorf("%w: IP header length %d exceeds %d bytes", ErrTooShort, ihl, len(datagram))
	}

	e, err := ParseICMP(datagram[ihl:])
	if err != nil {
		return Echo{}, err
	}
	e.Source = net.IPv4(datagram[12], datagram[13], datagram[14], datagram[15])
	return e, nil
}

// ParseICMP decodes an ICMP message with no IP header in front of it.
func ParseICMP(msg []byte) (Echo, error) {
	if len(msg) < HeaderLen {
		return Echo{}, fmt.Errorf("%w: %d bytes, no room for an ICMP header", ErrTooShort, len(msg))
	}

	e := Echo{
		Type:     msg[0],
		Code:     msg[1],
		Checksum: binary.BigEndian.Uint16(msg[2:]),
		ID:       binary.BigEndian.Uint16(msg[4:]),
		Seq:      binary.BigEndian.Uint16(msg[6:]),
	}
	if e.Type != TypeEchoRequest {
		return Echo{}, fmt.Errorf("%w: type %d", ErrNotEchoRequest, e.Type)
	}
	if len(msg) <= HeaderLen {
		return Echo{}, fmt.Errorf("%w: echo request without payload", ErrTooShort)
	}

	e.Data = msg[HeaderLen]
	e.ChecksumOK = Verify(msg)
	return e, nil
}
