package slots

import (
	"errors"
	"fmt"
	"strings"
)

// Update is a partial slot update as produced by an extractor: raw, unnormalized
// values keyed by slot. Normalization happens once, in Merge.
type Update struct {
	Values map[Name]string
	Note   string
}

func (u Update) IsEmpty() bool {
	for _, v := range u.Values {
		if !isBlank(v) {
			return false
		}
	}
	return true
}

// InvalidSlot reports a value that was supplied but failed its type or range check.
type InvalidSlot struct {
	Slot   Name
	Raw    string
	Reason string
}

func (e InvalidSlot) Error() string {
	return fmt.Sprintf("slot %s: invalid value %q: %s", e.Slot, e.Raw, e.Reason)
}

type MergeResult struct {
	// Changed lists slots whose stored value differs after the merge.
	Changed []Name
	Invalid []InvalidSlot
	Note    string
}

func (r MergeResult) HasChanges() bool {
	return len(r.Changed) > 0
}

// errBlank marks a value that normalizes to nothing; it is skipped, not reported.
var errBlank = errors.New("blank value")

// Merge applies u to the set. Blank values never clear an existing slot; invalid
// values are reported and leave the slot untouched.
func (s *Set) Merge(u Update) MergeResult {
	res := MergeResult{Note: u.Note}
	for _, n := range All {
		raw, ok := u.Values[n]
		if !ok || isBlank(raw) {
			continue
		}
		before := s.Value(n)
		if err := s.apply(n, raw); err != nil {
			if errors.Is(err, errBlank) {
				continue
			}
			res.Invalid = append(res.Invalid, InvalidSlot{Slot: n, Raw: raw, Reason: err.Error()})
			continue
		}
		if s.Value(n) != before {
			res.Changed = append(res.Changed, n)
		}
	}
	return res
}

func (s *Set) apply(n Name, raw string) error {
	switch n {
	case Cuisine:
		v, err := NormalizeCuisine(raw)
		if err != nil {
			return err
		}
		s.Cuisine = v
	case Location:
		v, err := NormalizeLocation(raw)
		if err != nil {
			return err
		}
		s.Location = v
	case Budget:
		v, err := ParseBudget(raw)
		if err != nil {
			return err
		}
		s.Budget = v
	case TravelMode:
		v, err := ParseMode(raw)
		if err != nil {
			return err
		}
		s.Mode = v
	case TravelMinutes:
		v, err := ParseMinutes(raw)
		if err != nil {
			return err
		}
		s.Minutes = v
	case OpenNow:
		v, err := parseBool(raw)
		if err != nil {
			return err
		}
		s.OpenNow = &v
	}
	return nil
}

func isBlank(v string) bool {
	t := strings.ToLower(strings.TrimSpace(v))
	return t == "" || t == "null" || t == "none" || t == "unknown"
}
