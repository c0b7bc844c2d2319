package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"github.com/roamplan/roamplan-api/internal/types"
)

// maxRankedSubmission caps how many candidates are submitted to the external
// ranker, bounding prompt size and ranking cost.
const maxRankedSubmission = 60

// rankStream is the producer side of the ranking stage: it emits selected
// candidates onto the returned channel as they are finalized and closes it
// when done. Cancelling ctx stops further ranking work promptly.
//
// Ranking never invents geometry: detour distances, insertion points, and
// coordinates are always taken from the already-computed candidate record;
// only ordering and rationale text come from this stage.
func (s *ServiceImpl) rankStream(ctx context.Context, summary string, candidates []types.Candidate, limit int) <-chan types.Candidate {
	out := make(chan types.Candidate)
	go func() {
		defer close(out)

		if s.aiClient != nil {
			emitted := s.rankAssisted(ctx, summary, candidates, limit, out)
			if emitted > 0 || ctx.Err() != nil {
				return
			}
			// Malformed output or nothing usable: fall back deterministically
			// rather than returning nothing while valid candidates exist.
			s.logger.WarnContext(ctx, "assisted ranking produced no usable selections, falling back to detour sort")
		}

		for _, c := range rankByDetour(candidates, limit) {
			if !sendCandidate(ctx, out, c) {
				return
			}
		}
	}()
	return out
}

// rankByDetour is the deterministic mode: ascending minimal-detour order,
// truncated to limit, with a synthesized rationale.
func rankByDetour(candidates []types.Candidate, limit int) []types.Candidate {
	ranked := make([]types.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DetourKm < ranked[j].DetourKm
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rationale = synthesizeRationale(ranked[i])
	}
	return ranked
}

func synthesizeRationale(c types.Candidate) string {
	if len(c.Highlights) > 0 {
		return c.Highlights[0]
	}
	return fmt.Sprintf("Adds only %.1f km to your route.", c.DetourKm)
}

// rankerSelection is the output-shape contract for the external ranker.
type rankerSelection struct {
	CandidateID string `json:"candidate_id"`
	Rationale   string `json:"rationale"`
}

// rankAssisted submits the candidate summary to the external ranker and
// emits selections as they stream back, one JSON object per line. The hard
// constraint: an identifier outside the submitted candidate set is discarded,
// never emitted. Returns the number of candidates emitted.
func (s *ServiceImpl) rankAssisted(ctx context.Context, summary string, candidates []types.Candidate, limit int, out chan<- types.Candidate) int {
	ctx, span := otel.Tracer("DiscoverService").Start(ctx, "rankAssisted")
	defer span.End()
	l := s.logger.With(slog.String("service", "rankAssisted"))

	submitted := candidates
	if len(submitted) > maxRankedSubmission {
		submitted = submitted[:maxRankedSubmission]
	}
	byID := make(map[string]types.Candidate, len(submitted))
	for _, c := range submitted {
		byID[c.CandidateID.String()] = c
	}
	span.SetAttributes(attribute.Int("rank.submitted", len(submitted)))

	prompt := getRankSuggestionsPrompt(summary, submitted, limit)
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.4),
	}

	stream, err := s.aiClient.GenerateContentStream(ctx, prompt, config)
	if err != nil {
		l.WarnContext(ctx, "failed to start assisted ranking stream", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "ranking stream failed to start")
		return 0
	}

	emitted := 0
	seen := make(map[uuid.UUID]bool)
	var buf strings.Builder

	emitLine := func(line string) bool {
		sel, ok := parseSelectionLine(line)
		if !ok {
			return true
		}
		cand, known := byID[sel.CandidateID]
		if !known {
			// Contract violation: the ranker returned an identifier outside
			// the submitted set. Discard it.
			l.WarnContext(ctx, "ranker returned unknown candidate id, discarding",
				slog.String("candidate_id", sel.CandidateID))
			rankerContractViolations.Inc()
			return true
		}
		if seen[cand.CandidateID] {
			return true
		}
		seen[cand.CandidateID] = true

		if sel.Rationale != "" {
			cand.Rationale = sel.Rationale
		} else {
			cand.Rationale = synthesizeRationale(cand)
		}
		if !sendCandidate(ctx, out, cand) {
			return false
		}
		emitted++
		return emitted < limit
	}

	for resp, streamErr := range stream {
		if ctx.Err() != nil {
			return emitted
		}
		if streamErr != nil {
			l.WarnContext(ctx, "assisted ranking stream failed mid-way", slog.Any("error", streamErr))
			span.RecordError(streamErr)
			break
		}
		buf.WriteString(firstCandidateText(resp))

		// Emit every completed line as soon as it arrives; keep the
		// trailing partial line buffered.
		text := buf.String()
		lastNewline := strings.LastIndexByte(text, '\n')
		if lastNewline < 0 {
			continue
		}
		buf.Reset()
		buf.WriteString(text[lastNewline+1:])
		for _, line := range strings.Split(text[:lastNewline], "\n") {
			if !emitLine(line) {
				return emitted
			}
		}
	}

	if buf.Len() > 0 && emitted < limit {
		emitLine(buf.String())
	}

	span.SetAttributes(attribute.Int("rank.emitted", emitted))
	return emitted
}

func sendCandidate(ctx context.Context, out chan<- types.Candidate, c types.Candidate) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// parseSelectionLine parses one line of ranker output, tolerating code fences
// and blank lines.
func parseSelectionLine(line string) (rankerSelection, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "```json")
	line = strings.TrimPrefix(line, "```")
	line = strings.TrimSuffix(line, "```")
	if line == "" || !strings.HasPrefix(line, "{") {
		return rankerSelection{}, false
	}
	var sel rankerSelection
	if err := json.Unmarshal([]byte(line), &sel); err != nil {
		return rankerSelection{}, false
	}
	if sel.CandidateID == "" {
		return rankerSelection{}, false
	}
	return sel, true
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
			return candidate.Content.Parts[0].Text
		}
	}
	return ""
}
