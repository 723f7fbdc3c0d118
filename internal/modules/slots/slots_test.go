// README: Slot model tests (merge rules, completeness, normalization, signatures).
package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullUpdate() Update {
	return Update{Values: map[Name]string{
		Cuisine:       "Italian food",
		Location:      "near downtown",
		Budget:        "cheap",
		TravelMode:    "walking",
		TravelMinutes: "fifteen minutes",
	}}
}

func TestMergeNeverClearsUnsetFields(t *testing.T) {
	var s Set
	s.Merge(Update{Values: map[Name]string{Location: "downtown"}})
	res := s.Merge(Update{Values: map[Name]string{Cuisine: "thai", Location: ""}})

	assert.Equal(t, "downtown", s.Location)
	assert.Equal(t, "thai", s.Cuisine)
	assert.Equal(t, []Name{Cuisine}, res.Changed)
}

func TestMergeBlankMarkersAreIgnored(t *testing.T) {
	s := Set{Cuisine: "sushi"}
	res := s.Merge(Update{Values: map[Name]string{Cuisine: "null", Budget: "  ", TravelMode: "unknown"}})

	assert.Equal(t, "sushi", s.Cuisine)
	assert.False(t, res.HasChanges())
	assert.Empty(t, res.Invalid)
}

func TestMergeSameValueIsNotAChange(t *testing.T) {
	var s Set
	s.Merge(fullUpdate())
	res := s.Merge(Update{Values: map[Name]string{Cuisine: "italian", TravelMinutes: "15"}})
	assert.False(t, res.HasChanges())
}

func TestMergeNormalizesOnce(t *testing.T) {
	var s Set
	res := s.Merge(fullUpdate())

	require.Empty(t, res.Invalid)
	assert.Equal(t, "italian", s.Cuisine)
	assert.Equal(t, "downtown", s.Location)
	assert.Equal(t, BudgetValue{Level: BudgetLow}, s.Budget)
	assert.Equal(t, ModeWalking, s.Mode)
	assert.Equal(t, 15, s.Minutes)
	assert.Len(t, res.Changed, 5)
}

func TestMergeReportsInvalidMinutesWithoutTouchingSlot(t *testing.T) {
	s := Set{Minutes: 20}
	res := s.Merge(Update{Values: map[Name]string{TravelMinutes: "negative five minutes"}})

	require.Len(t, res.Invalid, 1)
	assert.Equal(t, TravelMinutes, res.Invalid[0].Slot)
	assert.Equal(t, 20, s.Minutes)
	assert.Contains(t, res.Invalid[0].Error(), "travel_minutes")
}

func TestMergeReportsUnknownMode(t *testing.T) {
	var s Set
	res := s.Merge(Update{Values: map[Name]string{TravelMode: "teleport"}})
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, TravelMode, res.Invalid[0].Slot)
	assert.False(t, s.Has(TravelMode))
}

func TestIsCompleteForEveryFillOrder(t *testing.T) {
	full := fullUpdate()
	for _, order := range permutations(Required) {
		var s Set
		for i, n := range order {
			assert.False(t, s.IsComplete(), "complete too early after %v", order[:i])
			s.Merge(Update{Values: map[Name]string{n: full.Values[n]}})
		}
		assert.True(t, s.IsComplete(), "order %v", order)
	}
}

func TestMissingFollowsPriorityOrder(t *testing.T) {
	s := Set{Location: "soho"}
	assert.Equal(t, []Name{Cuisine, Budget, TravelMode, TravelMinutes}, s.Missing(Required))
	assert.Equal(t, []Name{TravelMinutes, Budget, Cuisine, TravelMode},
		s.Missing([]Name{TravelMinutes, Budget}))
}

func TestSignatureIgnoresFormattingAndTracksOpenNow(t *testing.T) {
	var a, b Set
	a.Merge(fullUpdate())
	b.Merge(Update{Values: map[Name]string{
		Cuisine:       "ITALIAN",
		Location:      "downtown",
		Budget:        "$",
		TravelMode:    "on foot",
		TravelMinutes: "15",
	}})
	assert.Equal(t, a.Signature(), b.Signature())

	b.Merge(Update{Values: map[Name]string{OpenNow: "yes"}})
	assert.NotEqual(t, a.Signature(), b.Signature())
	assert.Empty(t, Set{}.Signature())
}

func TestClearUnsetsSlot(t *testing.T) {
	var s Set
	s.Merge(fullUpdate())
	s.Clear(Location)
	assert.False(t, s.IsComplete())
	assert.Equal(t, []Name{Location}, s.Missing(Required))
}

func TestParseMinutes(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"10", 10, false},
		{"ten minutes", 10, false},
		{"twenty five", 25, false},
		{"twenty-five minutes", 25, false},
		{"half an hour", 30, false},
		{"an hour and a half", 90, false},
		{"2 hours", 120, false},
		{"two and a half hours", 150, false},
		{"2 and a half hours", 150, false},
		{"two hours and a half", 150, false},
		{"an hour and fifteen minutes", 75, false},
		{"one hundred twenty minutes", 120, false},
		{"one hundred and five minutes", 105, false},
		{"1.5 hours", 90, false},
		{"20min", 20, false},
		{"a couple of hours", 120, false},
		{"quarter of an hour", 15, false},
		{"three quarters of an hour", 45, false},
		{"about forty five minutes.", 45, false},
		{"twenty or thirty minutes", 0, true},
		{"10 to 15 minutes", 0, true},
		{"two half an hour", 0, true},
		{"-5", 0, true},
		{"negative five", 0, true},
		{"0", 0, true},
		{"500 minutes", 0, true},
		{"soon", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseMinutes(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseBudget(t *testing.T) {
	cases := []struct {
		in   string
		want BudgetValue
	}{
		{"cheap", BudgetValue{Level: BudgetLow}},
		{"$$", BudgetValue{Level: BudgetMedium}},
		{"$$$$", BudgetValue{Level: BudgetHigh}},
		{"something moderate", BudgetValue{Level: BudgetMedium}},
		{"under $30", BudgetValue{Level: BudgetMedium, Ceiling: 30}},
		{"10 dollars", BudgetValue{Level: BudgetLow, Ceiling: 10}},
		{"100", BudgetValue{Level: BudgetHigh, Ceiling: 100}},
		{"high budget", BudgetValue{Level: BudgetHigh}},
		{"my budget is high", BudgetValue{Level: BudgetHigh}},
		{"a medium budget please", BudgetValue{Level: BudgetMedium}},
		{"fancy budget", BudgetValue{Level: BudgetHigh}},
		{"we're on a budget", BudgetValue{Level: BudgetLow}},
		{"one hundred twenty dollars", BudgetValue{Level: BudgetHigh, Ceiling: 120}},
	}
	for _, tc := range cases {
		got, err := ParseBudget(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
	_, err := ParseBudget("whatever works")
	assert.Error(t, err)
	_, err = ParseBudget("budget")
	assert.Error(t, err)
	_, err = ParseBudget("cheap or fancy")
	assert.Error(t, err)
}

func TestMatchBudgetWord(t *testing.T) {
	w, ok := MatchBudgetWord("something mid-range, moderate")
	require.True(t, ok)
	assert.Equal(t, "mid-range", w)

	_, ok = MatchBudgetWord("cheap or expensive, either")
	assert.False(t, ok)
	_, ok = MatchBudgetWord("whatever")
	assert.False(t, ok)
}

func TestParseNumber(t *testing.T) {
	cases := map[string]int{
		"under 30":                   30,
		"twenty-five bucks":          25,
		"one hundred twenty":         120,
		"a hundred and five dollars": 105,
		"minus five":                 -5,
		"twenty twenty":              20,
	}
	for in, want := range cases {
		got, ok := ParseNumber(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseNumber("none")
	assert.False(t, ok)
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"walking":           ModeWalking,
		"I'll go on foot":   ModeWalking,
		"take the subway":   ModeTransit,
		"by car":            ModeDriving,
		"riding my bicycle": ModeCycling,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizeLocationStripsPrepositions(t *testing.T) {
	got, err := NormalizeLocation("  near   Union Square, ")
	require.NoError(t, err)
	assert.Equal(t, "Union Square", got)
}

func permutations(in []Name) [][]Name {
	if len(in) <= 1 {
		return [][]Name{append([]Name{}, in...)}
	}
	var out [][]Name
	for i := range in {
		rest := make([]Name, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]Name{in[i]}, p...))
		}
	}
	return out
}
