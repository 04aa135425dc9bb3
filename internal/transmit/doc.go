// Package transmit sends a message as a paced series of ICMP Echo Requests,
// one message byte per packet, followed by a single end-marker packet.
//
// The Transmitter owns the sequencing and pacing discipline. Putting packets
// on the wire is delegated to a Sender: RawSender writes to a raw ICMP
// socket, PcapSender records the packets to a pcap file, and the two can be
// chained so every transmitted packet is also recorded.
package transmit
