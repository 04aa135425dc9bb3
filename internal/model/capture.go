package model

import "time"

// CaptureReport summarizes one capture session and, when the captured
// message was analyzed, its analysis. It is what the history database stores.
type CaptureReport struct {
	// ID is assigned by the database; zero until saved.
	ID int64 `json:"id,omitempty"`

	// Source describes where datagrams came from, e.g. "raw", "pcap:ping.pcap"
	// or "iface:eth0".
	Source string `json:"source"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// State is the terminal state of the session ("done" or "cancelled").
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`

	// Identifier is the ICMP identifier filter, zero when none was set.
	Identifier uint16 `json:"identifier,omitempty"`
	EndMarker  byte   `json:"end_marker"`

	Packets    int      `json:"packets"`
	Discarded  int      `json:"discarded"`
	Duplicates int      `json:"duplicates"`
	Missing    []uint16 `json:"missing,omitempty"`

	// Message is the reassembled ciphertext bytes.
	Message  []byte `json:"message"`
	Text     string `json:"text"`
	Encoding string `json:"encoding"`

	// Digest is the hex SHA3-256 of Message.
	Digest string `json:"digest"`

	Analysis *AnalysisReport `json:"analysis,omitempty"`

	// Steps lists the processing steps that ran on the report.
	Steps []string `json:"steps,omitempty"`

	// Error is the message of the step that failed, if any.
	Error string `json:"error,omitempty"`
}

// Complete reports whether the end marker was received.
func (r *CaptureReport) Complete() bool {
	return r.State == "done"
}
