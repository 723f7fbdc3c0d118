package ai

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"dinecall/internal/modules/slots"
)

// knownCuisines is the vocabulary the rules extractor recognizes. Multi-word
// entries are matched before their single-word suffixes.
var knownCuisines = []string{
	"american", "barbecue", "bbq", "brazilian", "breakfast", "brunch", "burgers", "burger",
	"cajun", "caribbean", "chinese", "coffee", "cuban", "deli", "dim sum", "ethiopian",
	"filipino", "french", "german", "greek", "hawaiian", "indian", "indonesian", "irish",
	"italian", "jamaican", "japanese", "korean", "lebanese", "malaysian", "mediterranean",
	"mexican", "middle eastern", "moroccan", "nepalese", "noodles", "pakistani", "peruvian",
	"pho", "pizza", "polish", "ramen", "russian", "salad", "sandwiches", "seafood",
	"southern", "spanish", "steak", "steakhouse", "sushi", "szechuan", "tacos", "tapas",
	"thai", "turkish", "vegan", "vegetarian", "vietnamese",
}

var (
	nonWord        = regexp.MustCompile(`[^a-z0-9$\-\s.]+`)
	durationPhrase = buildDurationPhrase()
	budgetPhrase   = regexp.MustCompile(`\$\s?\d+|(?:\d+|[a-z]+(?:[\s-][a-z]+)?)\s*(?:dollars|bucks)\b|\$+`)
	locationCue    = regexp.MustCompile(`\b(?:near|in|around|by|close to|at)\s+`)
	openNowCues    = []string{"open now", "open right now", "still open", "currently open"}
	locationStops  = []string{" for ", " with ", " and ", " within ", " under ", " that ", " which ", " please", " by ", " in ", " open "}
	locationSkips  = []string{"the mood", "a hurry", "a rush", "most", "least", "mind", "the area"}
)

// RulesExtractor is a deterministic keyword extractor. It needs no network and
// serves as the fallback when a hosted model is unavailable.
type RulesExtractor struct {
	cuisines  []string
	modeWords []string
}

func NewRulesExtractor() *RulesExtractor {
	cuisines := append([]string(nil), knownCuisines...)
	sortLongestFirst(cuisines)
	modes := make([]string, 0)
	for w := range slots.ModeWords() {
		modes = append(modes, w)
	}
	sortLongestFirst(modes)
	return &RulesExtractor{cuisines: cuisines, modeWords: modes}
}

func (e *RulesExtractor) Name() string { return "rules" }

func (e *RulesExtractor) Extract(ctx context.Context, utterance string, known slots.Set) (slots.Update, error) {
	if err := ctx.Err(); err != nil {
		return slots.Update{}, ErrExtractionUnavailable
	}
	u := slots.Update{Values: map[slots.Name]string{}}
	raw := strings.TrimSpace(utterance)
	if raw == "" {
		return u, nil
	}
	lower := strings.ToLower(raw)
	clean := strings.Join(strings.Fields(decimalPointsOnly(nonWord.ReplaceAllString(lower, " "))), " ")

	for _, c := range e.cuisines {
		if hasWord(clean, c) {
			u.Values[slots.Cuisine] = c
			break
		}
	}

	if m := durationPhrase.FindString(clean); m != "" {
		u.Values[slots.TravelMinutes] = m
	}

	if m := budgetPhrase.FindString(clean); m != "" {
		u.Values[slots.Budget] = m
	} else if w, ok := slots.MatchBudgetWord(clean); ok {
		u.Values[slots.Budget] = w
	}

	for _, w := range e.modeWords {
		if hasWord(clean, w) {
			u.Values[slots.TravelMode] = w
			break
		}
	}

	for _, cue := range openNowCues {
		if strings.Contains(clean, cue) {
			u.Values[slots.OpenNow] = "true"
			break
		}
	}

	if loc := e.location(raw, lower); loc != "" {
		u.Values[slots.Location] = loc
	}

	if len(u.Values) == 0 {
		e.bareAnswer(&u, raw, clean, known)
	}
	return u, nil
}

// location finds the first "near X" style phrase. Case is taken from the raw
// utterance when lowering did not shift byte offsets.
func (e *RulesExtractor) location(raw, lower string) string {
	source := raw
	if len(raw) != len(lower) {
		source = lower
	}
	for _, loc := range locationCue.FindAllStringIndex(lower, -1) {
		rest := lower[loc[1]:]
		end := strings.IndexAny(rest, ",.;!?")
		if end < 0 {
			end = len(rest)
		}
		cand := " " + rest[:end] + " "
		for _, stop := range locationStops {
			if i := strings.Index(cand, stop); i >= 0 {
				cand = cand[:i]
			}
		}
		cand = strings.TrimSpace(cand)
		if cand == "" || e.notAPlace(cand) {
			continue
		}
		return strings.TrimSpace(source[loc[1] : loc[1]+len(cand)])
	}
	return ""
}

func (e *RulesExtractor) notAPlace(cand string) bool {
	if _, ok := slots.ParseNumber(firstWord(cand)); ok {
		return true
	}
	for _, s := range locationSkips {
		if cand == s || strings.HasPrefix(cand, s+" ") {
			return true
		}
	}
	for _, w := range e.modeWords {
		if cand == w || strings.HasPrefix(cand, w+" ") {
			return true
		}
	}
	for _, c := range e.cuisines {
		if cand == c {
			return true
		}
	}
	return false
}

// bareAnswer treats a short reply with no recognizable cue as the answer to the
// slot the caller was most likely just asked about.
func (e *RulesExtractor) bareAnswer(u *slots.Update, raw, clean string, known slots.Set) {
	missing := known.Missing(nil)
	if len(missing) == 0 || len(strings.Fields(clean)) > 6 || strings.Contains(raw, "?") {
		return
	}
	switch missing[0] {
	case slots.Location:
		if !known.Has(slots.Cuisine) {
			return
		}
		u.Values[slots.Location] = strings.Trim(raw, " .!")
	case slots.TravelMinutes:
		if _, ok := slots.ParseNumber(clean); ok {
			u.Values[slots.TravelMinutes] = clean
		}
	}
}

func hasWord(text, word string) bool {
	return strings.Contains(" "+text+" ", " "+word+" ")
}

func firstWord(v string) string {
	if i := strings.IndexByte(v, ' '); i >= 0 {
		return v[:i]
	}
	return v
}

func sortLongestFirst(words []string) {
	sort.SliceStable(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
}

// buildDurationPhrase matches spoken travel times such as "fifteen minutes",
// "two and a half hours", "an hour and fifteen minutes" or "1.5 hours". Ranges
// like "ten to fifteen minutes" are captured whole so the slot parser can
// reject them instead of keeping only the last number.
func buildDurationPhrase() *regexp.Regexp {
	words := slots.NumberWords()
	sortLongestFirst(words)
	spelled := `(?:` + strings.Join(words, "|") + `)\b`
	word := `(?:` + strings.Join(words, "|") + `|half|quarters|quarter|an|a)\b`
	digit := `\d+(?:\.\d+)?`
	qty := `(?:` + digit + `(?:\s+and\s+a\s+(?:half|quarter)\b|\s+(?:or|to)\s+` + digit + `)?` +
		`|` + word + `(?:[\s-]+(?:(?:and|of|or|to)\s+)?` + word + `)*)`
	unit := `(?:hours|hour|hrs|hr|minutes|minute|mins|min)\b`
	part := qty + `(?:\s+of)?\s*` + unit
	tail := `(?:\s+and\s+(?:` + part + `|a\s+(?:half|quarter)\b|` + digit + `|` + spelled + `(?:[\s-]+` + spelled + `)*))?`
	return regexp.MustCompile(`(?:(?:negative|minus)\s+|-)?\b(?:` + part + tail + `|hour\s+and\s+a\s+(?:half|quarter)\b)`)
}

// decimalPointsOnly blanks every period except those inside a number like 1.5.
func decimalPointsOnly(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c != '.' {
			continue
		}
		if i == 0 || i+1 == len(b) || !isDigit(b[i-1]) || !isDigit(b[i+1]) {
			b[i] = ' '
		}
	}
	return string(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
