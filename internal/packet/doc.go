// Package packet builds and parses the ICMP Echo Request packets that carry
// one hidden byte each.
//
// A packet is an 8-byte ICMP header (type 8, code 0, checksum, identifier,
// sequence, network byte order) followed by a fixed-size payload whose first
// byte is the hidden data byte. The rest of the payload imitates what the
// system ping utility sends, so the traffic looks ordinary on the wire.
//
// Parsing works on untrusted input: every offset is bounds checked and
// failures carry a reason (too short, wrong type) instead of panicking.
package packet
