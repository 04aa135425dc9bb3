// Package cryptanalysis recovers a shift-cipher plaintext without the key.
//
// Every one of the 26 keys is tried, each candidate is scored under every
// configured language profile, and the best candidate per language is kept
// with ties going to the lowest key. A selection policy then picks one
// language, or reports the result as inconclusive when nothing scores
// above zero.
package cryptanalysis
