package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"dinecall/internal/modules/slots"
)

const systemInstruction = `You extract restaurant search fields from what a phone caller just said.

Rules:
- Return one JSON object with exactly these keys: cuisine, location, budget, travel_mode, travel_minutes, open_now, note.
- Use null for any field the caller did not mention in THIS utterance. Never guess or copy previous values.
- cuisine: a food category such as "italian", "sushi", "tacos".
- location: the neighborhood, street or landmark to search around, as spoken.
- budget: "low", "medium" or "high", or a dollar ceiling like "under 30 dollars".
- travel_mode: one of "driving", "walking", "transit", "cycling".
- travel_minutes: an integer; convert words like "ten" to 10 and "half an hour" to 30. Keep negative numbers negative.
- open_now: true only if the caller asks for places open now.
- If the caller corrects themselves, return the corrected value.
- note: at most one short sentence, or null.`

// buildUserPrompt embeds the already-known slots as reference context.
func buildUserPrompt(utterance string, known slots.Set) string {
	ctx, _ := json.MarshalIndent(known.Snapshot(), "", "  ")
	return fmt.Sprintf("Caller said: %s\nPreviously collected values (reference only):\n%s\nReturn the JSON now.",
		utterance, string(ctx))
}

// parseExtraction decodes a model reply into a partial update.
func parseExtraction(raw string) (slots.Update, error) {
	clean := cleanJSONString(raw)
	var out SlotExtraction
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return slots.Update{}, fmt.Errorf("%w: parse model JSON: %v", ErrExtractionUnavailable, err)
	}
	return out.ToUpdate(), nil
}

// cleanJSONString removes markdown code fences if present (e.g. ```json ... ```).
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
