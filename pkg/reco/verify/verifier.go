package verify

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/reco"
)

// Verifier is the trust boundary between invented candidates and the
// persisted catalog. It re-examines a fallback batch with a second,
// deliberately cold model call and keeps only songs the model can back with
// concrete provenance. Any doubt about the batch fails closed: unverifiable
// data never reaches the store.
type Verifier struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewVerifier(llmProvider llm.LLMProvider, logger *log.Logger) *Verifier {
	return &Verifier{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Verify returns the subset of songs that survive the existence check. The
// result is always drawn from the input by identity key; the model cannot
// smuggle new songs in. An empty or unparseable answer yields an empty list.
func (v *Verifier) Verify(ctx context.Context, songs []reco.Song) []reco.Song {
	if len(songs) == 0 {
		return []reco.Song{}
	}

	songsJSON, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		v.logger.Printf("[ERROR] Failed to encode candidate batch: %v", err)
		return []reco.Song{}
	}

	messages := []llm.Message{
		{
			Role:    "system",
			Content: "You are a ruthless music-rights auditor. Your only job is to strike fictional songs from lists.",
		},
		{
			Role:    "user",
			Content: buildPrompt(string(songsJSON)),
		},
	}

	response, err := v.llmProvider.Chat(ctx, messages,
		llm.WithTemperature(0.1),
		llm.WithMaxTokens(1500),
	)
	if err != nil {
		v.logger.Printf("[ERROR] Verification call failed, discarding batch: %v", err)
		return []reco.Song{}
	}

	verified := parseVerified(response)

	// Subset guarantee: only keep songs that were actually in the input.
	input := make(map[string]struct{}, len(songs))
	for _, s := range songs {
		input[s.Key()] = struct{}{}
	}
	kept := make([]reco.Song, 0, len(verified))
	for _, s := range verified {
		if !s.Valid() {
			continue
		}
		if _, ok := input[s.Key()]; !ok {
			v.logger.Printf("[WARN] Verifier invented %q by %q, dropping", s.Title, s.Artist)
			continue
		}
		kept = append(kept, s)
	}

	v.logger.Printf("[VERIFY] Kept %d of %d candidate songs", len(kept), len(songs))
	return kept
}

func buildPrompt(songsJSON string) string {
	return `Candidate list (AI generated, may contain fabrications):

` + songsJSON + `

Run a strict existence test on every song. Presume it is fake unless you can establish all of the following:
1. You can name the specific studio album or EP it appears on; "a single" is not enough unless it is a widely known single.
2. You can confirm its release year.
3. The artist and the title genuinely belong together; never attribute a song to the wrong performer.
4. A song that merely sounds like an artist's style but does not actually exist must be struck without mercy.
5. If you are uncertain about any of the above for a song, treat it as nonexistent and remove it.

Return ONLY the songs you would stake your career on, as a JSON list. For each
surviving song include exactly these fields:
[
  {
    "title": "...",
    "artist": "...",
    "genre": "...",
    "mood": "...",
    "language": "..."
  }
]

Return the JSON list itself and nothing else.`
}

// parseVerified accepts either a bare JSON list or an object wrapping the
// list under "verified_songs". Entries that are not objects are skipped;
// anything else entirely is treated as a failed batch.
func parseVerified(response string) []reco.Song {
	text := stripCodeFence(response)

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(text), &list); err != nil {
		var wrapped struct {
			VerifiedSongs []json.RawMessage `json:"verified_songs"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil || wrapped.VerifiedSongs == nil {
			return []reco.Song{}
		}
		list = wrapped.VerifiedSongs
	}

	songs := make([]reco.Song, 0, len(list))
	for _, raw := range list {
		var s reco.Song
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		songs = append(songs, s)
	}
	return songs
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
