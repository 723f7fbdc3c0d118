// README: Slot model; one caller's accumulated search intent and its completeness rules.
package slots

import (
	"fmt"
	"strconv"
	"strings"
)

type Name string

const (
	Cuisine       Name = "cuisine"
	Location      Name = "location"
	Budget        Name = "budget"
	TravelMode    Name = "travel_mode"
	TravelMinutes Name = "travel_minutes"
	// OpenNow is optional: never prompted for and not required for completeness.
	OpenNow Name = "open_now"
)

// Required lists the slots that must hold values before a search may run,
// in the default prompting priority.
var Required = []Name{Cuisine, Location, Budget, TravelMode, TravelMinutes}

// All is Required plus the optional slots, in merge order.
var All = []Name{Cuisine, Location, Budget, TravelMode, TravelMinutes, OpenNow}

func ParseName(v string) (Name, bool) {
	n := Name(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range All {
		if n == known {
			return n, true
		}
	}
	return "", false
}

type BudgetLevel string

const (
	BudgetLow    BudgetLevel = "low"
	BudgetMedium BudgetLevel = "medium"
	BudgetHigh   BudgetLevel = "high"
)

// BudgetValue is an ordinal level plus an optional numeric ceiling in dollars.
type BudgetValue struct {
	Level   BudgetLevel `json:"level"`
	Ceiling int         `json:"ceiling,omitempty"`
}

func (b BudgetValue) IsZero() bool {
	return b.Level == "" && b.Ceiling == 0
}

func (b BudgetValue) String() string {
	if b.IsZero() {
		return ""
	}
	if b.Ceiling > 0 {
		return fmt.Sprintf("%s (under $%d)", b.Level, b.Ceiling)
	}
	return string(b.Level)
}

type Mode string

const (
	ModeDriving Mode = "driving"
	ModeWalking Mode = "walking"
	ModeTransit Mode = "transit"
	ModeCycling Mode = "cycling"
)

// Set is the normalized slot set. A zero field means the slot is unset.
type Set struct {
	Cuisine  string      `json:"cuisine,omitempty"`
	Location string      `json:"location,omitempty"`
	Budget   BudgetValue `json:"budget"`
	Mode     Mode        `json:"travel_mode,omitempty"`
	Minutes  int         `json:"travel_minutes,omitempty"`
	OpenNow  *bool       `json:"open_now,omitempty"`
}

func (s Set) Has(n Name) bool {
	switch n {
	case Cuisine:
		return s.Cuisine != ""
	case Location:
		return s.Location != ""
	case Budget:
		return !s.Budget.IsZero()
	case TravelMode:
		return s.Mode != ""
	case TravelMinutes:
		return s.Minutes > 0
	case OpenNow:
		return s.OpenNow != nil
	}
	return false
}

// IsComplete reports whether every required slot holds a value.
func (s Set) IsComplete() bool {
	for _, n := range Required {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// Missing returns the unset required slots following the given priority order.
// Slots absent from order are appended in default order.
func (s Set) Missing(order []Name) []Name {
	seen := make(map[Name]bool, len(Required))
	var out []Name
	for _, n := range append(append([]Name{}, order...), Required...) {
		if seen[n] || !isRequired(n) {
			continue
		}
		seen[n] = true
		if !s.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

// Clear unsets a slot. Used when a stored value proved unroutable.
func (s *Set) Clear(n Name) {
	switch n {
	case Cuisine:
		s.Cuisine = ""
	case Location:
		s.Location = ""
	case Budget:
		s.Budget = BudgetValue{}
	case TravelMode:
		s.Mode = ""
	case TravelMinutes:
		s.Minutes = 0
	case OpenNow:
		s.OpenNow = nil
	}
}

// Value renders a slot for prompts, extractor context and the dashboard.
func (s Set) Value(n Name) string {
	if !s.Has(n) {
		return ""
	}
	switch n {
	case Cuisine:
		return s.Cuisine
	case Location:
		return s.Location
	case Budget:
		return s.Budget.String()
	case TravelMode:
		return string(s.Mode)
	case TravelMinutes:
		return strconv.Itoa(s.Minutes)
	case OpenNow:
		return strconv.FormatBool(*s.OpenNow)
	}
	return ""
}

// Snapshot returns set slots only, keyed by slot name.
func (s Set) Snapshot() map[string]string {
	out := make(map[string]string, len(All))
	for _, n := range All {
		if v := s.Value(n); v != "" {
			out[string(n)] = v
		}
	}
	return out
}

// Signature is the fingerprint of the search-affecting slots.
type Signature string

// Signature covers all search-affecting slots. Two sets with the same
// signature would issue the same provider query.
func (s Set) Signature() Signature {
	var parts []string
	for _, n := range All {
		if !s.Has(n) {
			continue
		}
		v := s.Value(n)
		if n == Budget {
			v = string(s.Budget.Level) + "/" + strconv.Itoa(s.Budget.Ceiling)
		}
		parts = append(parts, string(n)+"="+strings.ToLower(v))
	}
	return Signature(strings.Join(parts, ";"))
}

func isRequired(n Name) bool {
	for _, r := range Required {
		if r == n {
			return true
		}
	}
	return false
}
