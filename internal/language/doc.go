// Package language scores how likely a candidate plaintext is to be written
// in a given language.
//
// The heuristic is a single function parameterized by a data-driven Profile:
// a word list, weighted digraphs and trigraphs, vowel-ratio bands, letter
// frequency thresholds, penalised letter pairs and an accepted average word
// length. Built-in profiles exist for English and Spanish; others can be
// loaded from YAML or Lua files.
package language
