// Package database provides SQLite-based storage for capture sessions.
//
// Every finished capture is stored as one row holding the summary columns
// (source, terminal state, packet counters, verdict) plus the complete
// model.CaptureReport as JSON, so `stealthping history` can list sessions
// cheaply and still show a stored session in full.
//
// Messages are also indexed by their SHA3-256 digest, which makes it easy
// to notice the same ciphertext being captured twice.
//
// The store uses modernc.org/sqlite, a CGO-free driver, so the binary can
// be cross-compiled like the rest of the tool.
package database
