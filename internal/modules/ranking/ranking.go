// README: Ranking & filtering engine: travel-time cutoff, dedup, ordering and voice summary.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"dinecall/internal/types"
)

// Rank applies the pipeline in order: drop candidates with unknown duration
// or over maxMinutes, keep the first occurrence of each provider identity,
// then sort by rating desc, duration asc, provider order.
func Rank(candidates []types.Venue, maxMinutes int) []types.Venue {
	filtered := make([]types.Venue, 0, len(candidates))
	for _, v := range candidates {
		if !v.TravelKnown {
			continue
		}
		if v.TravelMinutes() > maxMinutes {
			continue
		}
		filtered = append(filtered, v)
	}

	seen := make(map[string]bool, len(filtered))
	deduped := filtered[:0]
	for _, v := range filtered {
		key := identity(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, v)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		a, b := deduped[i], deduped[j]
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.Travel < b.Travel
	})
	return deduped
}

// identity keys dedup on the provider-assigned ID; venues without one fall
// back to name plus address.
func identity(v types.Venue) string {
	if v.ID != "" {
		return v.Provider + "|" + v.ID
	}
	return "name|" + strings.ToLower(v.Name) + "|" + strings.ToLower(v.Address)
}

// Page returns up to n venues starting at offset, and the offset of the next page.
func Page(ranked []types.Venue, offset, n int) ([]types.Venue, int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ranked) || n <= 0 {
		return nil, offset
	}
	end := min(offset+n, len(ranked))
	return ranked[offset:end], end
}

// VoiceSummary renders a page for speech. Numbering continues from offset so
// "more options" pages read as 4, 5, 6.
func VoiceSummary(page []types.Venue, offset int) string {
	parts := make([]string, 0, len(page))
	for i, v := range page {
		parts = append(parts, fmt.Sprintf("Number %d, %s, %s.", offset+i+1, v.Name, highlight(v)))
	}
	return strings.Join(parts, " ")
}

func highlight(v types.Venue) string {
	minutes := v.TravelMinutes()
	switch {
	case v.Rating > 0 && minutes >= 0:
		return fmt.Sprintf("rated %.1f stars, about %s away", v.Rating, plural(minutes, "minute"))
	case v.Rating > 0:
		return fmt.Sprintf("rated %.1f stars", v.Rating)
	case minutes >= 0:
		return fmt.Sprintf("about %s away", plural(minutes, "minute"))
	}
	return "no rating yet"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
