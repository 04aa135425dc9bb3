// Package log provides secure logging built on top of the standard slog
// package.
//
// The SecureHandler masks attributes that would defeat the purpose of a
// covert channel if a log file leaked: rotation keys, recovered plaintext,
// the message being sent, and the usual secrets (passwords, tokens,
// private keys). Ciphertext, sequence numbers and packet counters are left
// alone, so verbose logs stay useful for debugging a capture.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("candidate", "key", 3, "plaintext", "Hello World") // both masked
//	slog.SetDefault(logger)
package log
