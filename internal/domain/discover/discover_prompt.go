package discover

import (
	"fmt"
	"strings"

	"github.com/roamplan/roamplan-api/internal/types"
)

const maxHighlightChars = 160

func getRankSuggestionsPrompt(summary string, candidates []types.Candidate, limit int) string {
	var list strings.Builder
	for _, c := range candidates {
		cats := c.Types
		if len(cats) > 3 {
			cats = cats[:3]
		}
		highlight := ""
		if len(c.Highlights) > 0 {
			highlight = c.Highlights[0]
			if len(highlight) > maxHighlightChars {
				highlight = highlight[:maxHighlightChars]
			}
		}
		fmt.Fprintf(&list, "- candidate_id: %s | name: %s | categories: %s | rating: %.1f (%d reviews) | detour_km: %.2f | note: %s\n",
			c.CandidateID, c.Name, strings.Join(cats, ","), c.Rating, c.ReviewCount, c.DetourKm, highlight)
	}

	return fmt.Sprintf(`
        You are ranking stop suggestions for a traveler's day itinerary.
        The day so far: %s

        Candidate places (detour_km is the extra travel distance if inserted at its best position):
%s
        Pick the %d best additions for this day, preferring low detour, high relevance and variety.
        Respond with one JSON object per line, nothing else, at most %d lines, in ranked order:
        {"candidate_id": "<id copied exactly from the list above>", "rationale": "<one short sentence on why it fits this day>"}
        Only use candidate_id values from the list above. Do not invent places, distances or coordinates.
    `, summary, list.String(), limit, limit)
}
