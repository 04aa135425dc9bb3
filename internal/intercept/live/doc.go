// Package live sniffs ICMP traffic on a network interface through libpcap.
//
// libpcap is reached through cgo. Binaries built with CGO_ENABLED=0 get a
// stub whose OpenLive returns ErrUnsupported, so the pcap file and raw
// socket sources in package intercept keep working without it.
package live
