package slots

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	MinTravelMinutes = 1
	MaxTravelMinutes = 180
)

var (
	errUnknownMode   = errors.New("unrecognized travel mode")
	errUnknownBudget = errors.New("unrecognized budget")
	errNoNumber      = errors.New("no number of minutes found")
	errOutOfRange    = errors.New("minutes must be between 1 and 180")
	errNotBool       = errors.New("expected yes or no")
	errAmbiguous     = errors.New("could not read an exact number of minutes")
)

var (
	spaceRun    = regexp.MustCompile(`\s+`)
	punctuation = strings.NewReplacer(",", " ", ".", " ", "!", " ", "?", " ", ";", " ")
)

var cuisineSuffixes = []string{" restaurants", " restaurant", " cuisine", " food", " place", " places", " spot", " spots"}

func NormalizeCuisine(raw string) (string, error) {
	v := collapse(strings.ToLower(raw))
	for _, suffix := range cuisineSuffixes {
		v = strings.TrimSuffix(v, suffix)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errBlank
	}
	return v, nil
}

var locationPrefixes = []string{"near ", "in ", "around ", "at ", "by ", "close to "}

func NormalizeLocation(raw string) (string, error) {
	v := collapse(raw)
	lower := strings.ToLower(v)
	for _, p := range locationPrefixes {
		if strings.HasPrefix(lower, p) {
			v = strings.TrimSpace(v[len(p):])
			break
		}
	}
	v = strings.Trim(v, " ,.")
	if v == "" {
		return "", errBlank
	}
	return v, nil
}

var modeSynonyms = map[string]Mode{
	"driving":   ModeDriving,
	"drive":     ModeDriving,
	"car":       ModeDriving,
	"by car":    ModeDriving,
	"walking":   ModeWalking,
	"walk":      ModeWalking,
	"on foot":   ModeWalking,
	"transit":   ModeTransit,
	"bus":       ModeTransit,
	"subway":    ModeTransit,
	"train":     ModeTransit,
	"metro":     ModeTransit,
	"public":    ModeTransit,
	"cycling":   ModeCycling,
	"bicycling": ModeCycling,
	"bike":      ModeCycling,
	"biking":    ModeCycling,
	"bicycle":   ModeCycling,
}

// ModeWords exposes the recognized travel-mode vocabulary for extractors.
func ModeWords() map[string]Mode {
	out := make(map[string]Mode, len(modeSynonyms))
	for k, v := range modeSynonyms {
		out[k] = v
	}
	return out
}

func ParseMode(raw string) (Mode, error) {
	v := collapse(strings.ToLower(raw))
	if m, ok := modeSynonyms[v]; ok {
		return m, nil
	}
	for _, word := range sortedKeys(modeSynonyms) {
		if containsWord(v, word) {
			return modeSynonyms[word], nil
		}
	}
	return "", errUnknownMode
}

var budgetWords = map[string]BudgetLevel{
	"low":             BudgetLow,
	"cheap":           BudgetLow,
	"inexpensive":     BudgetLow,
	"affordable":      BudgetLow,
	"on a budget":     BudgetLow,
	"budget-friendly": BudgetLow,
	"medium":          BudgetMedium,
	"moderate":        BudgetMedium,
	"mid":             BudgetMedium,
	"mid-range":       BudgetMedium,
	"average":         BudgetMedium,
	"high":            BudgetHigh,
	"expensive":       BudgetHigh,
	"fancy":           BudgetHigh,
	"upscale":         BudgetHigh,
	"luxury":          BudgetHigh,
	"splurge":         BudgetHigh,
}

// MatchBudgetWord finds the budget vocabulary word in text. It reports false
// when no word is present or when the words found name different levels, as in
// "cheap or fancy".
func MatchBudgetWord(text string) (string, bool) {
	v := collapse(punctuation.Replace(strings.ToLower(text)))
	found := ""
	for _, word := range sortedKeys(budgetWords) {
		if !containsWord(v, word) {
			continue
		}
		if found != "" && budgetWords[found] != budgetWords[word] {
			return "", false
		}
		if len(word) > len(found) {
			found = word
		}
	}
	return found, found != ""
}

var dollarSigns = regexp.MustCompile(`^\$+$`)

// ParseBudget accepts ordinals ("cheap", "moderate"), dollar signs ("$$") and
// numeric ceilings ("under 30 dollars").
func ParseBudget(raw string) (BudgetValue, error) {
	v := collapse(strings.ToLower(raw))
	if dollarSigns.MatchString(v) {
		switch len(v) {
		case 1:
			return BudgetValue{Level: BudgetLow}, nil
		case 2:
			return BudgetValue{Level: BudgetMedium}, nil
		default:
			return BudgetValue{Level: BudgetHigh}, nil
		}
	}
	if lvl, ok := budgetWords[v]; ok {
		return BudgetValue{Level: lvl}, nil
	}
	if n, ok := ParseNumber(strings.ReplaceAll(v, "$", " ")); ok {
		if n <= 0 {
			return BudgetValue{}, errUnknownBudget
		}
		return BudgetValue{Level: levelForCeiling(n), Ceiling: n}, nil
	}
	if word, ok := MatchBudgetWord(v); ok {
		return BudgetValue{Level: budgetWords[word]}, nil
	}
	return BudgetValue{}, errUnknownBudget
}

func levelForCeiling(dollars int) BudgetLevel {
	switch {
	case dollars <= 15:
		return BudgetLow
	case dollars <= 40:
		return BudgetMedium
	default:
		return BudgetHigh
	}
}

var (
	minuteUnits = map[string]float64{
		"minutes": 1, "minute": 1, "mins": 1, "min": 1,
		"hours": 60, "hour": 60, "hrs": 60, "hr": 60, "h": 60,
	}
	fractionWords = map[string]float64{"half": 0.5, "quarter": 0.25}
	digitToken    = regexp.MustCompile(`^(\d+(?:\.\d+)?)([a-z]*)$`)
	negativeCue   = regexp.MustCompile(`(?:^|\s)(?:-\s*\d|negative\b|minus\b)`)
)

// duration accumulates a spoken travel time one token at a time. The pending
// quantity is applied when a unit word arrives.
type duration struct {
	total    float64
	lastUnit float64

	pending  float64
	has      bool
	article  bool // pending is the 1 implied by "a" or "an"
	spelled  bool // pending came from number words and may still compose
	lastPart int
}

func (d *duration) set(v float64) {
	d.pending, d.has, d.article, d.spelled = v, true, false, false
}

func (d *duration) word(n int) error {
	if d.has && d.spelled {
		if !composes(d.lastPart, n) {
			return errAmbiguous
		}
		d.pending += float64(n)
		d.lastPart = n
		return nil
	}
	if d.has && !d.article {
		return errAmbiguous
	}
	d.set(float64(n))
	d.spelled, d.lastPart = true, n
	return nil
}

func (d *duration) hundred() error {
	switch {
	case d.has && d.spelled && d.lastPart < 10:
		d.pending *= 100
	case d.has && !d.article:
		return errAmbiguous
	default:
		d.set(100)
		d.spelled = true
	}
	d.lastPart = 100
	return nil
}

// fraction handles "half" and "quarter". After a number it must be joined by
// "and a", as in "two and a half".
func (d *duration) fraction(f float64, joined bool) error {
	if d.has && !d.article {
		if !joined {
			return errAmbiguous
		}
		d.pending += f
		d.spelled = false
		return nil
	}
	d.set(f)
	return nil
}

func (d *duration) unit(u float64) error {
	if !d.has {
		if u != 60 {
			return errNoNumber
		}
		d.set(1)
	}
	d.total += d.pending * u
	d.lastUnit = u
	d.has, d.article, d.spelled = false, false, false
	return nil
}

// finish applies a trailing quantity: "an hour and a half" adds half of the
// last unit, "an hour and fifteen" adds minutes, a bare "20" is minutes.
func (d *duration) finish() (float64, error) {
	switch {
	case !d.has || d.article:
		if d.lastUnit == 0 {
			return 0, errNoNumber
		}
	case d.lastUnit == 0:
		if d.pending < 1 {
			return 0, errAmbiguous
		}
		d.total = d.pending
	case d.pending < 1:
		d.total += d.pending * d.lastUnit
	case d.lastUnit == 60:
		d.total += d.pending
	default:
		return 0, errAmbiguous
	}
	return d.total, nil
}

func composes(last, next int) bool {
	switch {
	case last == 100:
		return next < 100
	case last >= 20 && last < 100 && last%10 == 0:
		return next > 0 && next < 10
	}
	return false
}

// ParseMinutes turns "15", "fifteen minutes", "half an hour", "1.5 hours" or
// "an hour and fifteen minutes" into whole minutes. Phrases that cannot be read
// exactly, such as "twenty or thirty minutes", are rejected rather than
// guessed. Values outside [MinTravelMinutes, MaxTravelMinutes] are rejected.
func ParseMinutes(raw string) (int, error) {
	v := collapse(strings.ToLower(raw))
	negative := negativeCue.MatchString(v)
	tokens := strings.Fields(strings.NewReplacer("-", " ", ",", " ").Replace(v))

	var d duration
	for i, tok := range tokens {
		tok = strings.TrimRight(tok, ".!?")
		prev := ""
		if i > 0 {
			prev = tokens[i-1]
		}
		if m := digitToken.FindStringSubmatch(tok); m != nil {
			if d.has && !d.article {
				return 0, errAmbiguous
			}
			f, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, errNoNumber
			}
			d.set(f)
			if m[2] == "" {
				continue
			}
			u, ok := minuteUnits[m[2]]
			if !ok {
				return 0, errAmbiguous
			}
			if err := d.unit(u); err != nil {
				return 0, err
			}
			continue
		}

		var err error
		switch {
		case tok == "a" || tok == "an":
			if !d.has {
				d.set(1)
				d.article = true
			}
		case tok == "hundred":
			err = d.hundred()
		case tok == "quarters":
			if d.has {
				d.pending *= 0.25
				d.spelled = false
			} else {
				d.set(0.25)
			}
		case fractionWords[tok] > 0:
			err = d.fraction(fractionWords[tok], prev == "a")
		case minuteUnits[tok] > 0:
			err = d.unit(minuteUnits[tok])
		default:
			if n, ok := numberWords[tok]; ok {
				err = d.word(n)
			}
		}
		if err != nil {
			return 0, err
		}
	}

	total, err := d.finish()
	if err != nil {
		return 0, err
	}
	if negative {
		return 0, errOutOfRange
	}
	n := int(math.Round(total))
	if n < MinTravelMinutes || n > MaxTravelMinutes {
		return 0, errOutOfRange
	}
	return n, nil
}

func parseBool(raw string) (bool, error) {
	switch collapse(strings.ToLower(raw)) {
	case "true", "yes", "y", "open", "open now", "1":
		return true, nil
	case "false", "no", "n", "0":
		return false, nil
	}
	return false, errNotBool
}

var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"thirteen": 13, "fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30, "forty": 40,
	"fifty": 50, "sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	"hundred": 100, "couple": 2, "few": 3,
}

// NumberWords lists the spelled-out numbers the parsers understand.
func NumberWords() []string {
	return sortedKeys(numberWords)
}

var digits = regexp.MustCompile(`-?\d+`)

// ParseNumber finds the first number in text, written with digits or words
// ("twenty five", "twenty-five", "one hundred twenty"). A leading "negative" or
// "minus" negates it.
func ParseNumber(text string) (int, bool) {
	v := strings.ToLower(text)
	if m := digits.FindString(v); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			if n > 0 && negated(v, strings.Index(v, m)) {
				n = -n
			}
			return n, true
		}
	}

	tokens := strings.Fields(strings.NewReplacer("-", " ", ",", " ", ".", " ").Replace(v))
	for i := 0; i < len(tokens); i++ {
		n, ok := numberWords[tokens[i]]
		if !ok {
			continue
		}
		last := n
		for _, next := range tokens[i+1:] {
			if next == "and" && last == 100 {
				continue
			}
			if next == "hundred" && last < 10 {
				n *= 100
				last = 100
				continue
			}
			m, ok := numberWords[next]
			if !ok || !composes(last, m) {
				break
			}
			n += m
			last = m
		}
		if i > 0 && (tokens[i-1] == "negative" || tokens[i-1] == "minus") {
			n = -n
		}
		return n, true
	}
	return 0, false
}

func negated(v string, at int) bool {
	prefix := strings.TrimSpace(v[:at])
	return strings.HasSuffix(prefix, "negative") || strings.HasSuffix(prefix, "minus")
}

func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	padded := " " + text + " "
	return strings.Contains(padded, " "+word+" ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func collapse(v string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(v, " "))
}
