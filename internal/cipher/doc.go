// Package cipher implements the rotation (Caesar) cipher used to transform
// payloads before they are hidden in ICMP traffic.
//
// Only ASCII letters are rotated, each within its own case. Every other code
// point, including non-ASCII letters such as "ñ" or "é", passes through
// untouched, so Decrypt(Encrypt(text, k), k) == text for any input.
//
// The cipher is intentionally weak: a 26-key space is searched exhaustively
// by the cryptanalysis package.
package cipher
