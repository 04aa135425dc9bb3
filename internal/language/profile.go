package language

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Profile validation errors.
var (
	// ErrNoName is returned when a profile definition has no name.
	ErrNoName = errors.New("profile has no name")

	// ErrInvalidBand is returned when a band has Min greater than Max.
	ErrInvalidBand = errors.New("invalid band: min is greater than max")

	// ErrInvalidLetter is returned when a letter threshold does not name exactly one letter.
	ErrInvalidLetter = errors.New("invalid letter threshold: letter must be a single character")

	// ErrInvalidFrequency is returned when a letter threshold is outside [0, 1].
	ErrInvalidFrequency = errors.New("invalid letter threshold: frequency must be within [0, 1]")
)

// Band is an inclusive numeric range with the bonus awarded when a value
// falls inside it. The zero Band is disabled.
type Band struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Bonus float64 `yaml:"bonus"`
}

// IsZero reports whether the band is unset.
func (b Band) IsZero() bool {
	return b.Min == 0 && b.Max == 0 && b.Bonus == 0
}

// Contains reports whether v lies within [Min, Max].
func (b Band) Contains(v float64) bool {
	return !b.IsZero() && v >= b.Min && v <= b.Max
}

// Pattern is a digraph or trigraph awarded a bonus when present in the text.
type Pattern struct {
	Text  string  `yaml:"text"`
	Bonus float64 `yaml:"bonus"`
}

// LetterThreshold awards Bonus when Letter makes up more than MinFreq of the
// cleaned text.
type LetterThreshold struct {
	Letter  string  `yaml:"letter"`
	MinFreq float64 `yaml:"min_freq"`
	Bonus   float64 `yaml:"bonus"`
}

// Definition is the serializable form of a Profile, as found in YAML and Lua
// profile files.
type Definition struct {
	// Name identifies the language in reports, e.g. "english".
	Name string `yaml:"name"`

	// Words is the dictionary; matching is case-insensitive.
	Words []string `yaml:"words"`

	// WordBonus is added for each word of the text found in Words.
	WordBonus float64 `yaml:"word_bonus"`

	// Patterns are scored by presence, at most once each.
	Patterns []Pattern `yaml:"patterns"`

	// VowelNarrow takes precedence over VowelWide when both contain the ratio.
	VowelNarrow Band `yaml:"vowel_narrow"`
	VowelWide   Band `yaml:"vowel_wide"`

	Letters []LetterThreshold `yaml:"letters"`

	// Unusual lists letter pairs that rarely occur in the language.
	// UnusualPenalty is subtracted once for each one present.
	Unusual        []string `yaml:"unusual"`
	UnusualPenalty float64  `yaml:"unusual_penalty"`

	// WordLength is the accepted range of the average word length.
	WordLength Band `yaml:"word_length"`
}

// Profile is a validated, ready to use Definition. It is immutable and safe
// for concurrent use.
type Profile struct {
	def   Definition
	words map[string]struct{}
}

// New validates def and builds a Profile from it.
func New(def Definition) (*Profile, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	p := &Profile{
		def:   def,
		words: make(map[string]struct{}, len(def.Words)),
	}
	for _, w := range def.Words {
		w = upper(strings.TrimSpace(w))
		if w != "" {
			p.words[w] = struct{}{}
		}
	}

	// Patterns are matched against upper-cased text.
	p.def.Patterns = make([]Pattern, len(def.Patterns))
	for i, pat := range def.Patterns {
		p.def.Patterns[i] = Pattern{Text: upper(pat.Text), Bonus: pat.Bonus}
	}
	p.def.Unusual = make([]string, len(def.Unusual))
	for i, u := range def.Unusual {
		p.def.Unusual[i] = upper(u)
	}
	p.def.Letters = make([]LetterThreshold, len(def.Letters))
	for i, l := range def.Letters {
		p.def.Letters[i] = LetterThreshold{Letter: upper(l.Letter), MinFreq: l.MinFreq, Bonus: l.Bonus}
	}

	return p, nil
}

// MustNew is like New but panics on an invalid definition.
// It is meant for the built-in profiles.
func MustNew(def Definition) *Profile {
	p, err := New(def)
	if err != nil {
		panic(fmt.Sprintf("language: invalid built-in profile %q: %v", def.Name, err))
	}
	return p
}

// Validate checks the definition for structural errors.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrNoName
	}

	for name, b := range map[string]Band{
		"vowel_narrow": d.VowelNarrow,
		"vowel_wide":   d.VowelWide,
		"word_length":  d.WordLength,
	} {
		if b.Min > b.Max {
			return fmt.Errorf("%s: %w", name, ErrInvalidBand)
		}
	}

	for _, l := range d.Letters {
		if utf8.RuneCountInString(l.Letter) != 1 {
			return fmt.Errorf("%q: %w", l.Letter, ErrInvalidLetter)
		}
		if l.MinFreq < 0 || l.MinFreq > 1 {
			return fmt.Errorf("%q: %w", l.Letter, ErrInvalidFrequency)
		}
	}

	return nil
}

// Name returns the profile's language name.
func (p *Profile) Name() string {
	return p.def.Name
}

// Definition returns a copy of the definition the profile was built from.
func (p *Profile) Definition() Definition {
	return p.def
}

// HasWord reports whether word, compared case-insensitively, is in the dictionary.
func (p *Profile) HasWord(word string) bool {
	_, ok := p.words[upper(word)]
	return ok
}

// WordCount returns the number of distinct dictionary words.
func (p *Profile) WordCount() int {
	return len(p.words)
}
