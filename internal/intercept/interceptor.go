package intercept

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/nao1215/stealthping/internal/packet"
)

// DefaultEndMarker is the data byte that ends a capture.
const DefaultEndMarker byte = 'b'

// Stop reasons reported in Result.Reason.
const (
	ReasonEndMarker   = "end marker received"
	ReasonInterrupted = "interrupted"
	ReasonExhausted   = "source exhausted"
)

// Captured describes one covert byte as it is recorded.
type Captured struct {
	Seq    uint16
	ID     uint16
	Data   byte
	Source net.IP
	// EndMarker is set on the packet that ends the capture.
	EndMarker bool
	// Replaced is set when the sequence number had been recorded before.
	Replaced bool
}

// Result is the outcome of a capture session.
type Result struct {
	State  State
	Reason string

	// Bytes is the reassembled message without the end marker.
	Bytes    []byte
	Text     string
	Encoding string

	// Packets counts accepted Echo Requests, Discarded everything else.
	Packets   int
	Discarded int
	// DiscardReasons breaks Discarded down by packet.Reason.
	DiscardReasons map[packet.Reason]int
	// Duplicates counts packets whose sequence number was already recorded.
	Duplicates int

	Sequences []uint16
	Missing   []uint16

	Started time.Time
	Elapsed time.Duration
}

// ReasonFiltered marks an Echo Request dropped by the identifier filter.
const ReasonFiltered packet.Reason = "foreign-id"

// Interceptor runs one capture session. It is not safe for concurrent use
// and must not be reused after Run returns.
type Interceptor struct {
	source    Source
	endMarker byte
	filterID  bool
	id        uint16
	logger    *slog.Logger
	onCapture func(Captured)

	state      State
	capture    *CaptureState
	packets    int
	discarded  int
	duplicates int
	reasons    map[packet.Reason]int
	started    time.Time
	stopReason string
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithEndMarker sets the data byte that ends the capture.
func WithEndMarker(b byte) Option {
	return func(i *Interceptor) {
		i.endMarker = b
	}
}

// WithIdentifier only accepts Echo Requests carrying the given ICMP
// identifier. Others are counted as discarded.
func WithIdentifier(id uint16) Option {
	return func(i *Interceptor) {
		i.filterID = true
		i.id = id
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interceptor) {
		i.logger = logger
	}
}

// WithOnCapture registers a callback invoked for every recorded byte.
func WithOnCapture(fn func(Captured)) Option {
	return func(i *Interceptor) {
		i.onCapture = fn
	}
}

// New creates an Interceptor reading from source.
// source may be nil when the session is driven through Feed only.
func New(source Source, opts ...Option) *Interceptor {
	i := &Interceptor{
		source:    source,
		endMarker: DefaultEndMarker,
		state:     Listening,
		capture:   NewCaptureState(),
		reasons:   make(map[packet.Reason]int),
		started:   time.Now(),
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.logger == nil {
		i.logger = slog.Default()
	}

	return i
}

// State returns the current state.
func (i *Interceptor) State() State {
	return i.state
}

// Feed runs one step of the state machine on an IPv4 datagram and returns
// the resulting state. Malformed datagrams and non-Echo-Request messages are
// counted and otherwise ignored.
//
// Valid packets are recorded even after a terminal state has been reached,
// so feeding a set of packets in any order yields the same capture.
func (i *Interceptor) Feed(datagram []byte) State {
	echo, err := packet.Parse(datagram)
	if err != nil {
		i.discard(packet.ReasonOf(err), err)
		return i.state
	}
	if i.filterID && echo.ID != i.id {
		i.discard(ReasonFiltered, nil)
		return i.state
	}

	if !echo.ChecksumOK {
		i.logger.Debug("checksum mismatch, keeping the byte",
			"seq", echo.Seq,
			"checksum", fmt.Sprintf("%#04x", echo.Checksum),
		)
	}

	i.packets++
	prev, replaced := i.capture.Record(echo.Seq, echo.Data)
	if replaced {
		i.duplicates++
		if prev != echo.Data {
			i.logger.Debug("sequence number repeated with different data",
				"seq", echo.Seq,
				"previous", fmt.Sprintf("%#02x", prev),
				"current", fmt.Sprintf("%#02x", echo.Data),
			)
		}
	}

	end := echo.Data == i.endMarker
	if i.onCapture != nil {
		i.onCapture(Captured{
			Seq:       echo.Seq,
			ID:        echo.ID,
			Data:      echo.Data,
			Source:    echo.Source,
			EndMarker: end,
			Replaced:  replaced,
		})
	}

	if i.state.Terminal() {
		return i.state
	}
	if end {
		i.state = Done
		i.stopReason = ReasonEndMarker
		i.logger.Info("end marker received", "seq", echo.Seq, "source", echo.Source)
		return i.state
	}
	i.state = Capturing
	return i.state
}

func (i *Interceptor) discard(reason packet.Reason, err error) {
	i.discarded++
	i.reasons[reason]++
	if err != nil {
		i.logger.Debug("datagram discarded", "reason", string(reason), "error", err)
	}
}

// Cancel moves a session that has not finished to Cancelled.
func (i *Interceptor) Cancel(reason string) {
	if i.state.Terminal() {
		return
	}
	i.state = Cancelled
	i.stopReason = reason
}

// Run reads from the source until the end marker arrives, ctx is cancelled
// or the source is exhausted, then returns the reassembled result. The
// source is closed before Run returns.
//
// Cancellation and exhaustion are not errors: they yield a Cancelled result
// with whatever was captured. Only read failures of the source itself are
// returned as errors, together with the partial result.
func (i *Interceptor) Run(ctx context.Context) (Result, error) {
	defer func() {
		if err := i.source.Close(); err != nil {
			i.logger.Warn("failed to close capture source", "error", err)
		}
	}()

	i.started = time.Now()
	i.logger.Info("listening for echo requests", "end_marker", fmt.Sprintf("%#02x", i.endMarker))

	for !i.state.Terminal() {
		if ctx.Err() != nil {
			i.Cancel(ReasonInterrupted)
			break
		}

		datagram, err := i.source.ReadDatagram(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				i.Cancel(ReasonInterrupted)
			case errors.Is(err, io.EOF):
				i.Cancel(ReasonExhausted)
			default:
				i.Cancel(err.Error())
				return i.Result(), fmt.Errorf("capture failed: %w", err)
			}
			break
		}

		i.Feed(datagram)
	}

	res := i.Result()
	i.logger.Info("capture finished",
		"state", res.State.String(),
		"reason", res.Reason,
		"packets", res.Packets,
		"discarded", res.Discarded,
		"bytes", len(res.Bytes),
	)
	return res, nil
}

// Result reassembles what has been captured so far.
func (i *Interceptor) Result() Result {
	b := i.capture.Reassemble(i.endMarker)
	text, encoding := Decode(b)

	reasons := make(map[packet.Reason]int, len(i.reasons))
	for k, v := range i.reasons {
		reasons[k] = v
	}

	return Result{
		State:          i.state,
		Reason:         i.stopReason,
		Bytes:          b,
		Text:           text,
		Encoding:       encoding,
		Packets:        i.packets,
		Discarded:      i.discarded,
		DiscardReasons: reasons,
		Duplicates:     i.duplicates,
		Sequences:      i.capture.Sequences(),
		Missing:        i.capture.Missing(),
		Started:        i.started,
		Elapsed:        time.Since(i.started),
	}
}
