// Package moderation masks forbidden words in chat text before broadcast.
package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator holds an Aho-Corasick automaton built from the forbidden word
// list. The zero value (or an empty word list) passes text through
// unchanged.
type Moderator struct {
	matcher  *goahocorasick.Machine
	maskChar rune
}

// NewModerator builds the automaton from the lowercased word list.
func NewModerator(forbiddenWords []string, maskChar rune) (Moderator, error) {
	if len(forbiddenWords) == 0 {
		return Moderator{maskChar: maskChar}, nil
	}
	patterns := make([][]rune, len(forbiddenWords))
	for i, word := range forbiddenWords {
		patterns[i] = []rune(strings.ToLower(word))
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: machine, maskChar: maskChar}, nil
}

// Censor replaces every forbidden word occurrence with the mask character.
// Matching is case-insensitive; everything else is left untouched.
func (m Moderator) Censor(text string) string {
	if m.matcher == nil {
		return text
	}
	runes := []rune(text)
	lowered := make([]rune, len(runes))
	for i, r := range runes {
		lowered[i] = unicode.ToLower(r)
	}

	spans := m.matcher.MultiPatternSearch(lowered, false)
	if len(spans) == 0 {
		return text
	}
	for _, span := range spans {
		end := span.Pos + len(span.Word)
		if span.Pos < 0 || end > len(runes) {
			continue
		}
		for i := span.Pos; i < end; i++ {
			runes[i] = m.maskChar
		}
	}
	return string(runes)
}
