package cipher

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AlphabetSize is the number of letters in each rotated alphabet.
const AlphabetSize = 26

// ErrInvalidKey is returned by ParseKey when the input is not an integer.
var ErrInvalidKey = errors.New("invalid rotation key: must be an integer")

// NormalizeKey reduces key into [0, 25]. Negative keys wrap around,
// so NormalizeKey(-3) == 23.
func NormalizeKey(key int) int {
	k := key % AlphabetSize
	if k < 0 {
		k += AlphabetSize
	}
	return k
}

// ParseKey parses a rotation key given on the command line.
// Any integer is accepted and normalized; anything else is ErrInvalidKey.
func ParseKey(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return NormalizeKey(n), nil
}

// Encrypt rotates every ASCII letter of text forward by key positions.
func Encrypt(text string, key int) string {
	return rotate(text, NormalizeKey(key))
}

// Decrypt rotates every ASCII letter of text backward by key positions.
func Decrypt(text string, key int) string {
	return rotate(text, NormalizeKey(-key))
}

// rotate works on bytes rather than runes. Every byte of a multi-byte UTF-8
// sequence is >= 0x80, so leaving those bytes alone is the same as leaving
// the code point alone, and malformed input survives byte for byte.
func rotate(text string, shift int) string {
	if shift == 0 {
		return text
	}

	out := make([]byte, len(text))
	for i := 0; i < len(text); i++ {
		out[i] = rotateByte(text[i], shift)
	}
	return string(out)
}

// rotateByte shifts an ASCII letter within its case; shift must be in [0, 25].
func rotateByte(c byte, shift int) byte {
	if !IsRotatable(rune(c)) {
		return c
	}
	base := byte('a')
	if c <= 'Z' {
		base = 'A'
	}
	return base + byte((int(c-base)+shift)%AlphabetSize)
}

// IsRotatable reports whether r is changed by a non-zero rotation.
func IsRotatable(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}
