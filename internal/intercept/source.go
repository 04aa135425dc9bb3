package intercept

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/ipv4"
)

// Source yields IPv4 datagrams, IP header included.
type Source interface {
	// ReadDatagram blocks until a datagram is available or ctx is done.
	// It returns io.EOF when the source has nothing more to give.
	ReadDatagram(ctx context.Context) ([]byte, error)

	// Close releases the capture resource. It is safe to call more than once.
	Close() error
}

// DefaultPollInterval bounds how long a blocking read waits before
// checking for cancellation.
const DefaultPollInterval = 250 * time.Millisecond

// maxDatagram is large enough for any IPv4 datagram.
const maxDatagram = 65535

// RawSource reads ICMP datagrams addressed to this host from a raw socket.
type RawSource struct {
	conn *ipv4.RawConn
	poll time.Duration
	buf  []byte

	closeOnce sync.Once
	closeErr  error
}

// NewRawSource opens a raw ICMP socket. poll is the read deadline used to
// notice cancellation; zero selects DefaultPollInterval.
func NewRawSource(poll time.Duration) (*RawSource, error) {
	pc, err := net.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", ErrPermission, err)
		}
		return nil, fmt.Errorf("failed to open raw ICMP socket: %w", err)
	}

	conn, err := ipv4.NewRawConn(pc)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("failed to open raw IPv4 connection: %w", err)
	}

	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &RawSource{conn: conn, poll: poll, buf: make([]byte, maxDatagram)}, nil
}

// ReadDatagram returns the next datagram. Read timeouts are used only to
// poll ctx and are never returned.
func (s *RawSource) ReadDatagram(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.conn.SetReadDeadline(time.Now().Add(s.poll)); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}

		h, payload, _, err := s.conn.ReadFrom(s.buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return nil, err
		}

		// Header and payload are consecutive in buf.
		n := h.Len + len(payload)
		datagram := make([]byte, n)
		copy(datagram, s.buf[:n])
		return datagram, nil
	}
}

// Close closes the socket.
func (s *RawSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// IPv4Datagram extracts the IPv4 datagram from a link-layer frame.
func IPv4Datagram(frame []byte, linkType layers.LinkType) ([]byte, bool) {
	p := gopacket.NewPacket(frame, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	ip, ok := p.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		return nil, false
	}

	datagram := make([]byte, 0, len(ip.Contents)+len(ip.Payload))
	datagram = append(datagram, ip.Contents...)
	datagram = append(datagram, ip.Payload...)
	return datagram, true
}

// SliceSource replays datagrams held in memory.
type SliceSource struct {
	mu        sync.Mutex
	datagrams [][]byte
	closed    bool
}

// NewSliceSource returns a Source yielding datagrams in order, then io.EOF.
func NewSliceSource(datagrams ...[]byte) *SliceSource {
	return &SliceSource{datagrams: datagrams}
}

// ReadDatagram returns the next datagram.
func (s *SliceSource) ReadDatagram(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.datagrams) == 0 {
		return nil, io.EOF
	}
	d := s.datagrams[0]
	s.datagrams = s.datagrams[1:]
	return d, nil
}

// Close marks the source as exhausted.
func (s *SliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
