package intercept

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/nao1215/stealthping/internal/packet"
)

var testSrc = net.IPv4(198, 51, 100, 7)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// datagram builds an IPv4 datagram carrying an Echo Request.
func datagram(t *testing.T, data byte, id, seq uint16) []byte {
	t.Helper()
	return wrap(t, packet.Build(data, id, seq, packet.Classic, time.Time{}))
}

func wrap(t *testing.T, icmpMsg []byte) []byte {
	t.Helper()

	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    testSrc,
		DstIP:    net.IPv4(198, 51, 100, 1),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, gopacket.Payload(icmpMsg)); err != nil {
		t.Fatalf("SerializeLayers() error = %v", err)
	}
	return bytes.Clone(buf.Bytes())
}

// messageDatagrams returns the datagrams a transmitter produces for msg.
func messageDatagrams(t *testing.T, msg []byte, id uint16, marker byte) [][]byte {
	t.Helper()

	out := make([][]byte, 0, len(msg)+1)
	for i, b := range msg {
		out = append(out, datagram(t, b, id, uint16(i+1)))
	}
	return append(out, datagram(t, marker, id, uint16(len(msg)+1)))
}

func TestInterceptor_Run_Hello(t *testing.T) {
	t.Parallel()

	src := NewSliceSource(messageDatagrams(t, []byte("Hello"), 42, 'b')...)
	var captured []Captured
	ic := New(src, WithOnCapture(func(c Captured) { captured = append(captured, c) }))

	res, err := ic.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if res.State != Done {
		t.Errorf("State = %v, want done", res.State)
	}
	if res.Reason != ReasonEndMarker {
		t.Errorf("Reason = %q", res.Reason)
	}
	if !bytes.Equal(res.Bytes, []byte{72, 101, 108, 108, 111}) {
		t.Errorf("Bytes = %v", res.Bytes)
	}
	if res.Text != "Hello" || res.Encoding != EncodingUTF8 {
		t.Errorf("Text = %q (%s)", res.Text, res.Encoding)
	}
	if res.Packets != 6 || res.Discarded != 0 {
		t.Errorf("Packets = %d, Discarded = %d", res.Packets, res.Discarded)
	}
	if !slices.Equal(res.Sequences, []uint16{1, 2, 3, 4, 5, 6}) {
		t.Errorf("Sequences = %v", res.Sequences)
	}
	if len(captured) != 6 || !captured[5].EndMarker || !captured[0].Source.Equal(testSrc) {
		t.Errorf("unexpected capture callbacks: %+v", captured)
	}
	if !src.Closed() {
		t.Error("source was not closed")
	}
}

func TestInterceptor_Run_StopsAtEndMarker(t *testing.T) {
	t.Parallel()

	datagrams := messageDatagrams(t, []byte("ok"), 1, 'b')
	datagrams = append(datagrams, datagram(t, 'z', 1, 9))
	src := NewSliceSource(datagrams...)

	res, err := New(src).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State != Done || res.Text != "ok" {
		t.Errorf("result = %v %q, want done \"ok\"", res.State, res.Text)
	}
	if res.Packets != 3 {
		t.Errorf("Packets = %d, want 3: reading must stop after the end marker", res.Packets)
	}
}

func TestInterceptor_Feed_OrderIndependent(t *testing.T) {
	t.Parallel()

	msg := []byte("Hello")
	datagrams := messageDatagrams(t, msg, 7, 'b')

	perms := permutations(len(datagrams))
	if len(perms) != 720 {
		t.Fatalf("got %d permutations, want 720", len(perms))
	}

	for _, perm := range perms {
		ic := New(nil, WithLogger(quietLogger))
		for _, idx := range perm {
			ic.Feed(datagrams[idx])
		}
		res := ic.Result()
		if !bytes.Equal(res.Bytes, msg) {
			t.Fatalf("order %v: Bytes = %q, want %q", perm, res.Bytes, msg)
		}
		if res.State != Done {
			t.Fatalf("order %v: State = %v, want done", perm, res.State)
		}
	}
}

func permutations(n int) [][]int {
	var out [][]int
	var rec func(cur []int, used []bool)
	rec = func(cur []int, used []bool) {
		if len(cur) == n {
			out = append(out, slices.Clone(cur))
			return
		}
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			rec(append(cur, i), used)
			used[i] = false
		}
	}
	rec(nil, make([]bool, n))
	return out
}

func TestInterceptor_SentinelOnly(t *testing.T) {
	t.Parallel()

	res, err := New(NewSliceSource(datagram(t, 'b', 1, 1))).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State != Done {
		t.Errorf("State = %v, want done", res.State)
	}
	if len(res.Bytes) != 0 || res.Text != "" {
		t.Errorf("Bytes = %v, want empty", res.Bytes)
	}
}

// blockingSource yields its datagrams, then blocks until ctx is done.
type blockingSource struct {
	datagrams [][]byte
	closed    bool
}

func (s *blockingSource) ReadDatagram(ctx context.Context) ([]byte, error) {
	if len(s.datagrams) > 0 {
		d := s.datagrams[0]
		s.datagrams = s.datagrams[1:]
		return d, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *blockingSource) Close() error {
	s.closed = true
	return nil
}

func TestInterceptor_Run_CancelledKeepsPartialData(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &blockingSource{datagrams: [][]byte{
		datagram(t, 'H', 1, 1),
		datagram(t, 'e', 1, 2),
		datagram(t, 'o', 1, 5),
	}}
	ic := New(src, WithOnCapture(func(c Captured) {
		if c.Seq == 5 {
			cancel()
		}
	}))

	res, err := ic.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State != Cancelled || res.Reason != ReasonInterrupted {
		t.Errorf("State = %v (%s), want cancelled (interrupted)", res.State, res.Reason)
	}
	if res.Text != "Heo" {
		t.Errorf("Text = %q, want %q", res.Text, "Heo")
	}
	if !slices.Equal(res.Missing, []uint16{3, 4}) {
		t.Errorf("Missing = %v, want [3 4]", res.Missing)
	}
	if !src.closed {
		t.Error("source was not closed")
	}
}

func TestInterceptor_Run_SourceExhausted(t *testing.T) {
	t.Parallel()

	src := NewSliceSource(datagram(t, 'a', 1, 1), datagram(t, 'c', 1, 2))
	res, err := New(src).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.State != Cancelled || res.Reason != ReasonExhausted {
		t.Errorf("State = %v (%s), want cancelled (source exhausted)", res.State, res.Reason)
	}
	if res.Text != "ac" {
		t.Errorf("Text = %q, want \"ac\"", res.Text)
	}
}

// failingSource fails after its datagrams run out.
type failingSource struct {
	datagrams [][]byte
}

func (s *failingSource) ReadDatagram(context.Context) ([]byte, error) {
	if len(s.datagrams) == 0 {
		return nil, errors.New("network is down")
	}
	d := s.datagrams[0]
	s.datagrams = s.datagrams[1:]
	return d, nil
}

func (s *failingSource) Close() error { return nil }

func TestInterceptor_Run_SourceError(t *testing.T) {
	t.Parallel()

	res, err := New(&failingSource{datagrams: [][]byte{datagram(t, 'x', 1, 1)}}).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Text != "x" || res.State != Cancelled {
		t.Errorf("partial result = %q %v", res.Text, res.State)
	}
}

func TestInterceptor_Feed_Discards(t *testing.T) {
	t.Parallel()

	reply := packet.Build('q', 1, 1, packet.Classic, time.Time{})
	reply[0] = 0

	ic := New(nil, WithIdentifier(100))
	states := []State{
		ic.Feed(nil),
		ic.Feed([]byte{0x45, 0x00}),
		ic.Feed(wrap(t, reply)),
		ic.Feed(wrap(t, reply[:4])),
		ic.Feed(datagram(t, 'x', 99, 1)),
	}
	for i, s := range states {
		if s != Listening {
			t.Errorf("state after discard %d = %v, want listening", i, s)
		}
	}

	res := ic.Result()
	if res.Discarded != 5 || res.Packets != 0 {
		t.Errorf("Discarded = %d, Packets = %d", res.Discarded, res.Packets)
	}
	want := map[packet.Reason]int{
		packet.ReasonTooShort:  3,
		packet.ReasonWrongType: 1,
		ReasonFiltered:         1,
	}
	for reason, n := range want {
		if res.DiscardReasons[reason] != n {
			t.Errorf("DiscardReasons[%s] = %d, want %d", reason, res.DiscardReasons[reason], n)
		}
	}

	if got := ic.Feed(datagram(t, 'x', 100, 1)); got != Capturing {
		t.Errorf("state = %v, want capturing", got)
	}
}

func TestInterceptor_Feed_DuplicateOverwrites(t *testing.T) {
	t.Parallel()

	ic := New(nil)
	ic.Feed(datagram(t, 'x', 1, 1))
	ic.Feed(datagram(t, 'y', 1, 2))
	ic.Feed(datagram(t, 'z', 1, 1))

	res := ic.Result()
	if res.Text != "zy" {
		t.Errorf("Text = %q, want \"zy\"", res.Text)
	}
	if res.Duplicates != 1 || res.Packets != 3 {
		t.Errorf("Duplicates = %d, Packets = %d", res.Duplicates, res.Packets)
	}
}

func TestInterceptor_Feed_KeepsBadChecksum(t *testing.T) {
	t.Parallel()

	msg := packet.Build('k', 1, 1, packet.Classic, time.Time{})
	msg[packet.HeaderLen+1] ^= 0xFF

	ic := New(nil)
	if got := ic.Feed(wrap(t, msg)); got != Capturing {
		t.Fatalf("state = %v, want capturing", got)
	}
	res := ic.Result()
	if res.Text != "k" || res.Packets != 1 || res.Discarded != 0 {
		t.Errorf("Text = %q, Packets = %d, Discarded = %d", res.Text, res.Packets, res.Discarded)
	}
}

func TestInterceptor_CustomEndMarker(t *testing.T) {
	t.Parallel()

	ic := New(nil, WithEndMarker(255))
	ic.Feed(datagram(t, 'b', 1, 1))
	if ic.State() != Capturing {
		t.Fatalf("'b' must not end capture with a custom marker, state = %v", ic.State())
	}
	ic.Feed(datagram(t, 255, 1, 2))
	res := ic.Result()
	if res.State != Done || res.Text != "b" {
		t.Errorf("result = %v %q", res.State, res.Text)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       []byte
		want     string
		encoding string
	}{
		{name: "ascii", in: []byte("Khoor"), want: "Khoor", encoding: EncodingUTF8},
		{name: "utf-8 multibyte", in: []byte("año"), want: "año", encoding: EncodingUTF8},
		{name: "latin-1 fallback", in: []byte{0x48, 0xE9, 0xFF}, want: "Héÿ", encoding: EncodingLatin1},
		{name: "truncated utf-8", in: []byte{0x61, 0xC3}, want: "aÃ", encoding: EncodingLatin1},
		{name: "empty", in: nil, want: "", encoding: EncodingUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, enc := Decode(tt.in)
			if got != tt.want || enc != tt.encoding {
				t.Errorf("Decode(%x) = %q (%s), want %q (%s)", tt.in, got, enc, tt.want, tt.encoding)
			}
		})
	}
}

func TestCaptureState_Missing(t *testing.T) {
	t.Parallel()

	c := NewCaptureState()
	if c.Missing() != nil {
		t.Error("empty state must report no missing sequences")
	}
	for _, seq := range []uint16{2, 5, 6} {
		c.Record(seq, 'a')
	}
	if got := c.Missing(); !slices.Equal(got, []uint16{1, 3, 4}) {
		t.Errorf("Missing() = %v, want [1 3 4]", got)
	}
}

func TestPcapFileSource(t *testing.T) {
	t.Parallel()

	msg := []byte("Hi!")
	datagrams := messageDatagrams(t, msg, 3, 'b')

	t.Run("pcap with ethernet frames", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "ping.pcap")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		w := pcapgo.NewWriter(f)
		if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
			t.Fatal(err)
		}

		// An ARP frame without an IPv4 layer is skipped by the source.
		arp := ethernetFrame(t, layers.EthernetTypeARP, &layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   []byte{0, 1, 2, 3, 4, 5},
			SourceProtAddress: []byte{10, 0, 0, 1},
			DstHwAddress:      []byte{0, 0, 0, 0, 0, 0},
			DstProtAddress:    []byte{10, 0, 0, 2},
		})
		writeFrame(t, w, arp)
		for _, d := range datagrams {
			writeFrame(t, w, ethernetFrame(t, layers.EthernetTypeIPv4, gopacket.Payload(d)))
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}

		src, err := OpenPcapFile(path)
		if err != nil {
			t.Fatalf("OpenPcapFile() error = %v", err)
		}
		res, err := New(src, WithIdentifier(3)).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.State != Done || !bytes.Equal(res.Bytes, msg) {
			t.Errorf("result = %v %q, want done %q", res.State, res.Bytes, msg)
		}
	})

	t.Run("pcapng with raw ip", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "ping.pcapng")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		w, err := pcapgo.NewNgWriter(f, layers.LinkTypeRaw)
		if err != nil {
			t.Fatal(err)
		}
		// Leave out the end marker: replay ends with the file.
		for _, d := range datagrams[:len(datagrams)-1] {
			ci := gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(d), Length: len(d)}
			if err := w.WritePacket(ci, d); err != nil {
				t.Fatal(err)
			}
		}
		if err := w.Flush(); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}

		src, err := OpenPcapFile(path)
		if err != nil {
			t.Fatalf("OpenPcapFile() error = %v", err)
		}
		res, err := New(src).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.State != Cancelled || res.Reason != ReasonExhausted || !bytes.Equal(res.Bytes, msg) {
			t.Errorf("result = %v (%s) %q", res.State, res.Reason, res.Bytes)
		}
	})

	t.Run("in-memory reader", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := pcapgo.NewWriter(&buf)
		if err := w.WriteFileHeader(65536, layers.LinkTypeRaw); err != nil {
			t.Fatal(err)
		}
		for _, d := range datagrams {
			writeFrame(t, w, d)
		}

		src, err := NewPcapReader(&buf)
		if err != nil {
			t.Fatalf("NewPcapReader() error = %v", err)
		}
		res, err := New(src).Run(context.Background())
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.State != Done || !bytes.Equal(res.Bytes, msg) {
			t.Errorf("result = %v %q, want done %q", res.State, res.Bytes, msg)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "notes.txt")
		if err := os.WriteFile(path, []byte("not a capture file"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := OpenPcapFile(path); !errors.Is(err, ErrUnknownPcapFormat) {
			t.Errorf("error = %v, want ErrUnknownPcapFormat", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := OpenPcapFile(filepath.Join(t.TempDir(), "nope.pcap")); err == nil {
			t.Error("expected error")
		}
	})
}

func ethernetFrame(t *testing.T, ethType layers.EthernetType, payload gopacket.SerializableLayer) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: ethType,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, payload); err != nil {
		t.Fatalf("SerializeLayers() error = %v", err)
	}
	return bytes.Clone(buf.Bytes())
}

func writeFrame(t *testing.T, w *pcapgo.Writer, frame []byte) {
	t.Helper()

	ci := gopacket.CaptureInfo{Timestamp: time.Now(), CaptureLength: len(frame), Length: len(frame)}
	if err := w.WritePacket(ci, frame); err != nil {
		t.Fatalf("WritePacket() error = %v", err)
	}
}
