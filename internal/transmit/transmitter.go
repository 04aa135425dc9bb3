package transmit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/nao1215/stealthping/internal/packet"
)

// Defaults used when no option overrides them.
const (
	// DefaultInterval matches the default cadence of the ping utility.
	DefaultInterval = time.Second

	// DefaultEndMarker is the data byte of the final packet.
	DefaultEndMarker byte = 'b'

	// MaxMessageLen is the longest message whose end marker still gets a
	// 16-bit sequence number.
	MaxMessageLen = math.MaxUint16 - 1
)

// Progress describes one packet that has been sent.
type Progress struct {
	Seq       uint16
	Data      byte
	EndMarker bool
	Total     int
}

// Summary describes a completed or aborted transmission.
type Summary struct {
	ID      uint16
	Sent    int
	Total   int
	Started time.Time
	Elapsed time.Duration
}

// Transmitter sends messages one byte per packet.
// A Transmitter is not safe for concurrent use.
type Transmitter struct {
	sender    Sender
	id        uint16
	interval  time.Duration
	endMarker byte
	variant   packet.Variant
	logger    *slog.Logger
	progress  func(Progress)

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// Option configures a Transmitter.
type Option func(*Transmitter)

// WithID sets the ICMP identifier used for every packet of the run.
func WithID(id uint16) Option {
	return func(t *Transmitter) {
		t.id = id
	}
}

// WithInterval sets the pause between packets. Zero sends back to back.
func WithInterval(d time.Duration) Option {
	return func(t *Transmitter) {
		if d >= 0 {
			t.interval = d
		}
	}
}

// WithEndMarker sets the data byte of the final packet.
func WithEndMarker(b byte) Option {
	return func(t *Transmitter) {
		t.endMarker = b
	}
}

// WithVariant sets the payload layout.
func WithVariant(v packet.Variant) Option {
	return func(t *Transmitter) {
		t.variant = v
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transmitter) {
		t.logger = logger
	}
}

// WithProgress registers a callback invoked after each packet is sent.
func WithProgress(fn func(Progress)) Option {
	return func(t *Transmitter) {
		t.progress = fn
	}
}

// New creates a Transmitter that sends through sender. The identifier
// defaults to the low 16 bits of the process id, like ping does.
func New(sender Sender, opts ...Option) *Transmitter {
	t := &Transmitter{
		sender:    sender,
		id:        uint16(os.Getpid() & 0xFFFF), //nolint:gosec // masked to 16 bits
		interval:  DefaultInterval,
		endMarker: DefaultEndMarker,
		variant:   packet.Classic,
		now:       time.Now,
		wait:      sleep,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.logger == nil {
		t.logger = slog.Default()
	}

	return t
}

// ID returns the ICMP identifier of the run.
func (t *Transmitter) ID() uint16 {
	return t.id
}

// Run sends message, one byte per packet with sequence numbers starting at
// 1 and the configured interval between packets, followed by one end-marker
// packet with sequence len(message)+1. An empty message sends only the end
// marker. The first send error aborts the run; nothing is retried.
//
// If ctx is cancelled during a pause, Run stops and returns ctx.Err()
// without sending the end marker.
func (t *Transmitter) Run(ctx context.Context, message []byte) (Summary, error) {
	summary := Summary{
		ID:      t.id,
		Total:   len(message) + 1,
		Started: t.now(),
	}

	if len(message) > MaxMessageLen {
		return summary, fmt.Errorf("%w: %d bytes, at most %d fit the sequence space",
			ErrMessageTooLong, len(message), MaxMessageLen)
	}
	if bytes.IndexByte(message, t.endMarker) >= 0 {
		t.logger.Warn("message contains the end marker; the receiver will stop early",
			"end_marker", fmt.Sprintf("%#02x", t.endMarker),
		)
	}

	t.logger.Info("starting transmission",
		"id", t.id,
		"packets", summary.Total,
		"interval", t.interval,
		"variant", t.variant.String(),
	)

	for i, b := range message {
		seq := uint16(i + 1) //nolint:gosec // bounded by MaxMessageLen
		if err := t.send(ctx, b, seq, false, summary.Total); err != nil {
			summary.Elapsed = time.Since(summary.Started)
			return summary, err
		}
		summary.Sent++

		if err := t.wait(ctx, t.interval); err != nil {
			summary.Elapsed = time.Since(summary.Started)
			return summary, err
		}
	}

	seq := uint16(len(message) + 1) //nolint:gosec // bounded by MaxMessageLen
	if err := t.send(ctx, t.endMarker, seq, true, summary.Total); err != nil {
		summary.Elapsed = time.Since(summary.Started)
		return summary, err
	}
	summary.Sent++
	summary.Elapsed = time.Since(summary.Started)

	t.logger.Info("transmission complete",
		"id", t.id,
		"packets", summary.Sent,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

func (t *Transmitter) send(ctx context.Context, data byte, seq uint16, end bool, total int) error {
	pkt := packet.Build(data, t.id, seq, t.variant, t.now())
	if err := t.sender.Send(ctx, pkt); err != nil {
		return fmt.Errorf("failed to send packet %d/%d: %w", seq, total, err)
	}

	t.logger.Debug("packet sent", "seq", seq, "end_marker", end)
	if t.progress != nil {
		t.progress(Progress{Seq: seq, Data: data, EndMarker: end, Total: total})
	}
	return nil
}
