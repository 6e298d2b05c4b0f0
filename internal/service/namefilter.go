package service

import (
	"strings"
	"unicode"

	goaway "github.com/TwiN/go-away"
)

// NameFilter decides whether a username may be registered
type NameFilter interface {
	Allowed(name string) bool
}

// ProfanityFilter rejects profane names and names carrying a reserved word.
// Profanity detection is delegated to go-away, which folds leet speak and
// accents and keeps its own false-positive list. Reserved words only match
// as whole words, so "badmintonfan" is not mistaken for "admin".
type ProfanityFilter struct {
	detector *goaway.ProfanityDetector
	reserved map[string]bool
}

var defaultReservedWords = []string{"admin", "administrator", "moderator"}

// lookalikes undoes the digit and symbol swaps used to dodge the reserved list
var lookalikes = strings.NewReplacer("0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "7", "t", "@", "a", "$", "s", "!", "i")

// NewProfanityFilter builds a filter over the reserved words, or the default
// set when none are given
func NewProfanityFilter(reserved ...string) *ProfanityFilter {
	if len(reserved) == 0 {
		reserved = defaultReservedWords
	}
	f := &ProfanityFilter{
		detector: goaway.NewProfanityDetector(),
		reserved: make(map[string]bool, len(reserved)),
	}
	for _, w := range reserved {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			f.reserved[w] = true
		}
	}
	return f
}

func (f *ProfanityFilter) Allowed(name string) bool {
	if f.detector.IsProfane(name) {
		return false
	}
	words := strings.FieldsFunc(lookalikes.Replace(strings.ToLower(name)), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if f.reserved[w] {
			return false
		}
	}
	return true
}
