package model

import (
	"fmt"
	"strings"
)

// Verdict is the outcome of choosing one language's best candidate.
type Verdict int

const (
	// VerdictInconclusive means no language scored above zero; every
	// language's best candidate is reported and none is chosen.
	VerdictInconclusive Verdict = iota

	// VerdictPreferred means the first configured language was chosen
	// because its best score was positive and close enough to the others.
	VerdictPreferred

	// VerdictFallback means a later language was chosen because it clearly
	// outscored the languages before it.
	VerdictFallback
)

// String returns a human-readable representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictInconclusive:
		return "INCONCLUSIVE"
	case VerdictPreferred:
		return "PREFERRED"
	case VerdictFallback:
		return "FALLBACK"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the verdict as its name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(v.String())), nil
}

// UnmarshalText decodes a verdict name.
func (v *Verdict) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "INCONCLUSIVE":
		*v = VerdictInconclusive
	case "PREFERRED":
		*v = VerdictPreferred
	case "FALLBACK":
		*v = VerdictFallback
	default:
		return fmt.Errorf("unknown verdict %q", b)
	}
	return nil
}
