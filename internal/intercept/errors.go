package intercept

import "errors"

var (
	// ErrPermission is returned when the capture resource cannot be opened
	// for lack of privilege. It is distinct from capturing nothing.
	ErrPermission = errors.New("permission denied opening capture socket: run as root or grant CAP_NET_RAW")

	// ErrUnknownPcapFormat is returned for files that are neither pcap nor pcapng.
	ErrUnknownPcapFormat = errors.New("unknown capture file format")
)
