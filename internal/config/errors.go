package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrInvalidInterval is returned when the pause between packets is negative.
	ErrInvalidInterval = errors.New("invalid interval: must be non-negative")

	// ErrInvalidReadTimeout is returned when the capture poll interval is not positive.
	// The poll interval bounds how quickly an interrupt is noticed.
	ErrInvalidReadTimeout = errors.New("invalid read timeout: must be positive")

	// ErrInvalidIdentifier is returned when the ICMP identifier does not fit in 16 bits.
	ErrInvalidIdentifier = errors.New("invalid identifier: must be within 0-65535")

	// ErrInvalidEndMarker is returned when the end marker is not a single byte.
	ErrInvalidEndMarker = errors.New("invalid end marker: use one ASCII character, a quoted character or a hex byte such as 0x0c")

	// ErrInvalidThreshold is returned when the selection threshold is outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid threshold: must be within 0-1")

	// ErrNoProfiles is returned when no language profile is configured.
	ErrNoProfiles = errors.New("no language profiles configured")

	// ErrInvalidConcurrency is returned when the analysis concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConflictingSources is returned when both a capture file and a live
	// interface are given.
	ErrConflictingSources = errors.New("conflicting capture sources: --pcap and --iface cannot be used together")
)
