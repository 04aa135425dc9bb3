// Package main provides the entry point for the stealthping CLI.
//
// stealthping hides a Caesar-shifted message in ordinary-looking ICMP Echo
// Requests, one byte per packet, and recovers it on the other side without
// knowing the key.
//
// Usage:
//
//	stealthping encrypt 'Hello World' 3
//	sudo stealthping send 10.0.0.2 'Khoor Zruog'
//	sudo stealthping capture
//	stealthping analyze 'Khoor Zruog'
//
// See --help for all available options.
package main

func main() {
	Execute()
}
