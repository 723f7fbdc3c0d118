package conversation

import (
	"regexp"
	"strings"
)

var punctuation = regexp.MustCompile(`[^a-z0-9'\s]+`)

// maxExtraWords bounds how much surrounding chatter a "more" or "end" phrase
// tolerates before the utterance is treated as a normal request.
const maxExtraWords = 3

// PhraseSet matches normalized utterances against a configured phrase list.
type PhraseSet struct {
	phrases []string
}

func NewPhraseSet(phrases []string) PhraseSet {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = normalizeUtterance(p); p != "" {
			out = append(out, p)
		}
	}
	return PhraseSet{phrases: out}
}

// Contains reports whether any phrase occurs as a whole-word sequence.
func (s PhraseSet) Contains(utterance string) bool {
	text := " " + normalizeUtterance(utterance) + " "
	for _, p := range s.phrases {
		if strings.Contains(text, " "+p+" ") {
			return true
		}
	}
	return false
}

// Matches is Contains restricted to short utterances, so "more" in
// "I want more spicy food" does not page results.
func (s PhraseSet) Matches(utterance string) bool {
	norm := normalizeUtterance(utterance)
	words := len(strings.Fields(norm))
	text := " " + norm + " "
	for _, p := range s.phrases {
		if words > len(strings.Fields(p))+maxExtraWords {
			continue
		}
		if strings.Contains(text, " "+p+" ") {
			return true
		}
	}
	return false
}

func normalizeUtterance(v string) string {
	v = strings.ToLower(v)
	v = strings.ReplaceAll(v, "’", "'")
	v = punctuation.ReplaceAllString(v, " ")
	return strings.Join(strings.Fields(v), " ")
}
