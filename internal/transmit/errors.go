package transmit

import "errors"

var (
	// ErrPermission is returned when the raw ICMP socket cannot be opened
	// because the process lacks the privilege (root or CAP_NET_RAW).
	ErrPermission = errors.New("permission denied opening raw ICMP socket: run as root or grant CAP_NET_RAW")

	// ErrUnresolvable is returned when the destination has no IPv4 address.
	ErrUnresolvable = errors.New("destination cannot be resolved")

	// ErrMessageTooLong is returned when the message and its end marker do
	// not fit in the 16-bit sequence space.
	ErrMessageTooLong = errors.New("message too long")

	// ErrSenderClosed is returned by a Sender used after Close.
	ErrSenderClosed = errors.New("sender is closed")
)
