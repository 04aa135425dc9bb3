// Package model defines the data structures shared by the analysis,
// pipeline, report and database packages.
//
// This package contains the following main types:
//   - AnalysisReport: the outcome of breaking one ciphertext, with every
//     trial, each language's best candidate and the verdict
//   - CaptureReport: one capture session, with its analysis when the
//     captured message was analyzed
//
// Models live in their own package so that producers and consumers do not
// import each other. They serialize to JSON for reports and the history
// database.
package model
