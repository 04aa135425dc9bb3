//go:build cgo

package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/nao1215/stealthping/internal/intercept"
)

// snapLen is the number of bytes captured per frame.
const snapLen = 65535

// filter selects ICMP traffic in the kernel.
const filter = "icmp"

// Source sniffs ICMP traffic on a network interface, including traffic
// not addressed to this host when promiscuous mode is enabled.
type Source struct {
	handle *pcap.Handle

	closeOnce sync.Once
}

var _ intercept.Source = (*Source)(nil)

// OpenLive starts sniffing iface. poll is the libpcap read timeout used to
// notice cancellation; zero selects intercept.DefaultPollInterval.
func OpenLive(iface string, promiscuous bool, poll time.Duration) (*Source, error) {
	if poll <= 0 {
		poll = intercept.DefaultPollInterval
	}

	handle, err := pcap.OpenLive(iface, snapLen, promiscuous, poll)
	if err != nil {
		if isPermissionError(err) {
			return nil, fmt.Errorf("%w: %w", intercept.ErrPermission, err)
		}
		return nil, fmt.Errorf("failed to open interface %s: %w", iface, err)
	}

	if err := handle.SetBPFFilter(filter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to set capture filter %q: %w", filter, err)
	}

	return &Source{handle: handle}, nil
}

// ReadDatagram returns the next IPv4 datagram seen on the interface.
func (s *Source) ReadDatagram(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, _, err := s.handle.ReadPacketData()
		if err != nil {
			if errors.Is(err, pcap.NextErrorTimeoutExpired) {
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, pcap.NextErrorNoMorePackets) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read from interface: %w", err)
		}

		if datagram, ok := intercept.IPv4Datagram(frame, s.handle.LinkType()); ok {
			return datagram, nil
		}
	}
}

// Close stops the capture.
func (s *Source) Close() error {
	s.closeOnce.Do(s.handle.Close)
	return nil
}
