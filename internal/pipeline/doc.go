// Package pipeline runs a finished capture through its processing steps.
//
// A capture session produces a model.CaptureReport; the pipeline then
// digests the message, breaks the cipher, stores the session and writes
// the report. Each stage is a Step, so the CLI can leave out analysis
// (--no-analyze) or storage (no database) by not adding the step.
//
// BatchProcessor analyzes many ciphertexts at once with a bounded number
// of goroutines, for `stealthping analyze --file`.
package pipeline
