package transmit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/net/icmp"
)

// Sender puts one ICMP message on the wire.
type Sender interface {
	// Send transmits an ICMP message (no IP header).
	Send(ctx context.Context, packet []byte) error

	// Close releases the underlying resource. It is safe to call more than once.
	Close() error
}

// Resolve returns the first IPv4 address of host. A literal address is
// returned as is.
func Resolve(ctx context.Context, host string) (*net.IPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return &net.IPAddr{IP: ip4}, nil
		}
		return nil, fmt.Errorf("%w: %s is not an IPv4 address", ErrUnresolvable, host)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnresolvable, host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s has no IPv4 address", ErrUnresolvable, host)
	}
	return &net.IPAddr{IP: ips[0]}, nil
}

// RawSender writes Echo Requests to a raw ICMP socket. The kernel prepends
// the IP header.
type RawSender struct {
	conn *icmp.PacketConn
	dst  *net.IPAddr

	mu     sync.Mutex
	closed bool
}

// NewRawSender opens a raw ICMP socket for sending to dst.
func NewRawSender(dst *net.IPAddr) (*RawSender, error) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", ErrPermission, err)
		}
		return nil, fmt.Errorf("failed to open raw ICMP socket: %w", err)
	}
	return &RawSender{conn: conn, dst: dst}, nil
}

// Send writes packet to the destination. A deadline on ctx is applied to
// the write.
func (s *RawSender) Send(ctx context.Context, packet []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline, _ := ctx.Deadline()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if _, err := s.conn.WriteTo(packet, s.dst); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %w", ErrPermission, err)
		}
		return fmt.Errorf("failed to send to %s: %w", s.dst, err)
	}
	return nil
}

// Close closes the socket.
func (s *RawSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// Tee returns a Sender that sends every packet to each of senders in turn,
// stopping at the first error. Close closes all of them.
func Tee(senders ...Sender) Sender {
	return teeSender(senders)
}

type teeSender []Sender

func (t teeSender) Send(ctx context.Context, packet []byte) error {
	for _, s := range t {
		if err := s.Send(ctx, packet); err != nil {
			return err
		}
	}
	return nil
}

func (t teeSender) Close() error {
	var errs []error
	for _, s := range t {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Sender that drops every packet. It backs dry runs.
var Discard Sender = discardSender{}

type discardSender struct{}

func (discardSender) Send(ctx context.Context, _ []byte) error { return ctx.Err() }
func (discardSender) Close() error                             { return nil }

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
