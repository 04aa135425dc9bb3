package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adrg/xdg"

	"github.com/nao1215/stealthping/internal/packet"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "stealthping"

	// DefaultInterval is the pause between packets. One second is what the
	// ping utility does, which is the point.
	DefaultInterval = 1 * time.Second

	// DefaultEndMarker is the data byte of the final packet.
	DefaultEndMarker byte = 'b'

	// DefaultReadTimeout is how long a capture read blocks before checking
	// for an interrupt.
	DefaultReadTimeout = 250 * time.Millisecond

	// DefaultThreshold is the share of the next language's score the
	// preferred language must reach.
	DefaultThreshold = 0.8

	// DefaultConcurrency scores every key at once.
	DefaultConcurrency = 26

	// AutoIdentifier selects the identifier automatically: the process id
	// when sending, no filtering when capturing.
	AutoIdentifier = -1
)

// DefaultProfiles lists the built-in profiles in preference order.
func DefaultProfiles() []string {
	return []string{"spanish", "english"}
}

// Config holds all configuration options for stealthping.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed down explicitly.
type Config struct {
	// Interval is the pause after each data packet.
	Interval time.Duration

	// EndMarker is the data byte that terminates a transmission.
	// Sender and receiver must agree on it.
	EndMarker byte

	// Variant selects the payload layout of sent packets.
	Variant packet.Variant

	// Identifier is the ICMP identifier. When sending it is stamped on every
	// packet; when capturing only packets carrying it are accepted.
	// AutoIdentifier leaves it to the defaults.
	Identifier int

	// ReadTimeout is the capture poll interval.
	ReadTimeout time.Duration

	// Interface selects live libpcap capture on the named interface.
	// When empty, a raw ICMP socket is used.
	Interface string

	// Promiscuous enables promiscuous mode for live capture.
	Promiscuous bool

	// PcapFile replays a capture file instead of listening.
	PcapFile string

	// PcapOut records every sent packet to this pcap file.
	PcapOut string

	// Profiles lists language profiles in preference order: built-in names
	// or paths to .yaml/.lua profile files.
	Profiles []string

	// Threshold is the selection threshold of the analysis.
	Threshold float64

	// Concurrency bounds the number of keys scored in parallel.
	Concurrency int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .stealthping in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory of the capture history database.
	// Defaults to the XDG data directory (~/.local/share/stealthping on Linux).
	DBDir string

	// SaveToDB records capture sessions in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Interval:    DefaultInterval,
		EndMarker:   DefaultEndMarker,
		Variant:     packet.Classic,
		Identifier:  AutoIdentifier,
		ReadTimeout: DefaultReadTimeout,
		Profiles:    DefaultProfiles(),
		Threshold:   DefaultThreshold,
		Concurrency: DefaultConcurrency,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for stealthping.
// On Linux: ~/.local/share/stealthping
// On macOS: ~/Library/Application Support/stealthping
// On Windows: %LOCALAPPDATA%\stealthping
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for stealthping.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HasIdentifier reports whether an explicit identifier is configured.
func (c *Config) HasIdentifier() bool {
	return c.Identifier != AutoIdentifier
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Interval < 0 {
		return ErrInvalidInterval
	}

	if c.ReadTimeout <= 0 {
		return ErrInvalidReadTimeout
	}

	if c.Identifier != AutoIdentifier && (c.Identifier < 0 || c.Identifier > math.MaxUint16) {
		return ErrInvalidIdentifier
	}

	if len(c.Profiles) == 0 {
		return ErrNoProfiles
	}

	if c.Threshold < 0 || c.Threshold > 1 {
		return ErrInvalidThreshold
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.PcapFile != "" && c.Interface != "" {
		return ErrConflictingSources
	}

	return nil
}

// ParseEndMarker parses an end marker. Three forms are accepted:
//
//   - a single ASCII character: "b", "5"
//   - a quoted ASCII character: "'b'", "' '"
//   - a hex byte: "0x0c", "0xFF"
//
// Bare numbers longer than one character, such as "12", are rejected:
// "5" is the character '5', so reading "12" as byte 12 would be ambiguous.
func ParseEndMarker(s string) (byte, error) {
	switch {
	case s == "":
		return 0, ErrInvalidEndMarker
	case utf8.RuneCountInString(s) == 1:
		return asciiByte(s, s)
	case len(s) >= 3 && s[0] == '\'' && s[len(s)-1] == '\'':
		inner := s[1 : len(s)-1]
		if utf8.RuneCountInString(inner) != 1 {
			return 0, fmt.Errorf("%w: %s holds more than one character", ErrInvalidEndMarker, s)
		}
		return asciiByte(inner, s)
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		n, err := strconv.ParseUint(s[2:], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidEndMarker, s)
		}
		return byte(n), nil
	default:
		return 0, fmt.Errorf("%w: %q (write a number as hex, e.g. 0x0c, or quote a character, e.g. 'b')",
			ErrInvalidEndMarker, s)
	}
}

func asciiByte(ch, input string) (byte, error) {
	r, _ := utf8.DecodeRuneInString(ch)
	if r >= utf8.RuneSelf {
		return 0, fmt.Errorf("%w: %q is not ASCII", ErrInvalidEndMarker, input)
	}
	return byte(r), nil
}

// FormatEndMarker renders an end marker the way ParseEndMarker accepts it.
func FormatEndMarker(b byte) string {
	if b > ' ' && b < 0x7F {
		return string(rune(b))
	}
	return fmt.Sprintf("0x%02x", b)
}
