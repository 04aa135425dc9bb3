package language

import (
	"strings"
	"unicode"
)

// Score returns the likelihood score of text under profile p.
// Higher is more likely. Text with no letters scores 0.
//
// The score is the sum of:
//  1. WordBonus per whitespace-separated word found in the dictionary
//  2. the bonus of each pattern present in the letters-only text
//  3. the vowel-ratio bonus (narrow band first, then wide band)
//  4. the bonus of each letter whose frequency exceeds its threshold
//  5. minus UnusualPenalty for each unusual pair present
//  6. the word-length bonus if the average word length is in range
func Score(text string, p *Profile) float64 {
	clean := cleanText(text)
	if len(clean) == 0 {
		return 0
	}
	cleanStr := string(clean)
	total := float64(len(clean))
	words := splitWords(text)

	var score float64

	for _, w := range words {
		if p.HasWord(w) {
			score += p.def.WordBonus
		}
	}

	for _, pat := range p.def.Patterns {
		if pat.Text != "" && strings.Contains(cleanStr, pat.Text) {
			score += pat.Bonus
		}
	}

	ratio := float64(countVowels(clean)) / total
	switch {
	case p.def.VowelNarrow.Contains(ratio):
		score += p.def.VowelNarrow.Bonus
	case p.def.VowelWide.Contains(ratio):
		score += p.def.VowelWide.Bonus
	}

	for _, l := range p.def.Letters {
		letter := []rune(l.Letter)[0]
		if float64(countRune(clean, letter))/total > l.MinFreq {
			score += l.Bonus
		}
	}

	for _, u := range p.def.Unusual {
		if u != "" && strings.Contains(cleanStr, u) {
			score -= p.def.UnusualPenalty
		}
	}

	if len(words) > 0 {
		var letters int
		for _, w := range words {
			letters += len([]rune(w))
		}
		if p.def.WordLength.Contains(float64(letters) / float64(len(words))) {
			score += p.def.WordLength.Bonus
		}
	}

	return score
}

// cleanText keeps only the letters of text, upper-cased.
func cleanText(text string) []rune {
	out := make([]rune, 0, len(text))
	for _, r := range text {
		if unicode.IsLetter(r) {
			out = append(out, unicode.ToUpper(r))
		}
	}
	return out
}

// splitWords splits text on whitespace and strips each token to its
// upper-cased letters. Tokens left empty are dropped.
func splitWords(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if w := string(cleanText(f)); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func countVowels(clean []rune) int {
	var n int
	for _, r := range clean {
		switch r {
		case 'A', 'E', 'I', 'O', 'U':
			n++
		}
	}
	return n
}

func countRune(clean []rune, letter rune) int {
	var n int
	for _, r := range clean {
		if r == letter {
			n++
		}
	}
	return n
}

func upper(s string) string {
	return strings.Map(unicode.ToUpper, s)
}
