package intercept

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Capture file magic numbers.
const (
	magicPcapNG        = 0x0A0D0D0A
	magicPcapMicros    = 0xA1B2C3D4
	magicPcapNanos     = 0xA1B23C4D
	magicPcapMicrosRev = 0xD4C3B2A1
	magicPcapNanosRev  = 0x4D3CB2A1
)

// frameReader is implemented by pcapgo.Reader and pcapgo.NgReader.
type frameReader interface {
	LinkType() layers.LinkType
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// PcapFileSource replays the IPv4 datagrams of a pcap or pcapng file.
// Frames without an IPv4 layer are skipped.
type PcapFileSource struct {
	closer io.Closer
	reader frameReader

	closeOnce sync.Once
	closeErr  error
}

// OpenPcapFile opens a capture file, detecting pcap or pcapng from its magic number.
func OpenPcapFile(path string) (*PcapFileSource, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided capture path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	r, err := newFrameReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &PcapFileSource{closer: f, reader: r}, nil
}

// NewPcapReader replays capture data from r. r is closed by Close when it
// is an io.Closer.
func NewPcapReader(r io.Reader) (*PcapFileSource, error) {
	fr, err := newFrameReader(r)
	if err != nil {
		return nil, err
	}
	s := &PcapFileSource{reader: fr}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

func newFrameReader(r io.Reader) (frameReader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownPcapFormat, err)
	}

	switch binary.LittleEndian.Uint32(head) {
	case magicPcapNG:
		return pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
	case magicPcapMicros, magicPcapNanos, magicPcapMicrosRev, magicPcapNanosRev:
		return pcapgo.NewReader(br)
	default:
		return nil, ErrUnknownPcapFormat
	}
}

// ReadDatagram returns the next IPv4 datagram in the file, or io.EOF.
func (s *PcapFileSource) ReadDatagram(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, _, err := s.reader.ReadPacketData()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read capture file: %w", err)
		}

		if datagram, ok := IPv4Datagram(frame, s.reader.LinkType()); ok {
			return datagram, nil
		}
	}
}

// Close closes the underlying file.
func (s *PcapFileSource) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer.Close()
		}
	})
	return s.closeErr
}
