// Package intercept captures covert Echo Requests and reassembles the
// message they carry.
//
// An Interceptor reads IPv4 datagrams from a Source, keeps the hidden byte
// of every valid Echo Request keyed by its sequence number, and stops when
// the end marker arrives or the context is cancelled. Either way the bytes
// captured so far are reassembled in sequence order, so a partial message is
// a normal outcome.
//
// Sources:
//
//   - RawSource reads a raw ICMP socket (needs root or CAP_NET_RAW)
//   - PcapFileSource replays a .pcap or .pcapng file
//
// The package is pure Go. Sniffing an interface through libpcap lives in
// the live subpackage, which needs cgo.
package intercept
