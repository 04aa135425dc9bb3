package model

import "time"

// Candidate is one trial decryption scored under one language.
type Candidate struct {
	Language string  `json:"language"`
	Key      int     `json:"key"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

// Trial is the decryption under one key with its score per language.
type Trial struct {
	Key    int                `json:"key"`
	Text   string             `json:"text"`
	Scores map[string]float64 `json:"scores"`
}

// AnalysisReport is the result of a brute-force search over every
// rotation key.
type AnalysisReport struct {
	// Ciphertext is the analyzed input.
	Ciphertext string `json:"ciphertext"`

	// AnalyzedAt is when the analysis ran.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Languages lists the profiles in configured order. The first one is
	// the preferred language.
	Languages []string `json:"languages"`

	// Threshold is the fraction of a later language's score the preferred
	// language must reach to be chosen.
	Threshold float64 `json:"threshold"`

	// Trials has one row per key, ordered by key.
	Trials []Trial `json:"trials"`

	// Best holds the highest-scoring candidate of each language, in the
	// order of Languages. Ties go to the lowest key.
	Best []Candidate `json:"best"`

	Verdict Verdict `json:"verdict"`

	// Selected is the chosen candidate. It is nil when the verdict is
	// inconclusive.
	Selected *Candidate `json:"selected,omitempty"`
}

// BestFor returns the best candidate of the named language.
func (r *AnalysisReport) BestFor(language string) (Candidate, bool) {
	for _, c := range r.Best {
		if c.Language == language {
			return c, true
		}
	}
	return Candidate{}, false
}

// Conclusive reports whether a candidate was selected.
func (r *AnalysisReport) Conclusive() bool {
	return r.Verdict != VerdictInconclusive && r.Selected != nil
}
