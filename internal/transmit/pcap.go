package transmit

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// pcapSnapLen is the snapshot length written to the pcap file header.
const pcapSnapLen = 65536

// PcapSender records each packet as a raw IPv4 frame in a pcap file instead
// of, or in addition to (see Tee), sending it. The file can be replayed by
// the capture side without privileges.
type PcapSender struct {
	w      *pcapgo.Writer
	closer io.Closer
	src    net.IP
	dst    net.IP
	now    func() time.Time

	mu     sync.Mutex
	closed bool
	ipID   uint16
}

// NewPcapSender writes a pcap header to w and returns a Sender recording
// packets from src to dst. If w is an io.Closer it is closed by Close.
func NewPcapSender(w io.Writer, src, dst net.IP) (*PcapSender, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(pcapSnapLen, layers.LinkTypeRaw); err != nil {
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}

	s := &PcapSender{
		w:   pw,
		src: src.To4(),
		dst: dst.To4(),
		now: time.Now,
	}
	if s.src == nil {
		s.src = net.IPv4zero.To4()
	}
	if s.dst == nil {
		s.dst = net.IPv4zero.To4()
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// CreatePcapFile creates path and returns a PcapSender writing to it.
func CreatePcapFile(path string, src, dst net.IP) (*PcapSender, error) {
	f, err := os.Create(path) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file: %w", err)
	}
	s, err := NewPcapSender(f, src, dst)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// Send wraps packet in an IPv4 header and appends it to the file.
func (s *PcapSender) Send(_ context.Context, packet []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}

	s.ipID++
	ip := &layers.IPv4{
		Version:  4,
		Id:       s.ipID,
		Flags:    layers.IPv4DontFragment,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    s.src,
		DstIP:    s.dst,
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, gopacket.Payload(packet)); err != nil {
		return fmt.Errorf("failed to serialize IPv4 frame: %w", err)
	}

	frame := buf.Bytes()
	ci := gopacket.CaptureInfo{
		Timestamp:     s.now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	if err := s.w.WritePacket(ci, frame); err != nil {
		return fmt.Errorf("failed to write pcap record: %w", err)
	}
	return nil
}

// Close closes the underlying file, if any.
func (s *PcapSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
