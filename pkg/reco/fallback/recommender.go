package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/reco"
	"ai-tunemate-be/pkg/reco/intent"
)

// How many exclusion titles are spelled out to the model. Longer lists blow
// up the prompt without improving compliance.
const exclusionPreview = 10

// Result is the model's invented answer before verification.
type Result struct {
	Recommendation string
	Songs          []reco.Song
}

// promptTemplates are rotated at random so repeated fallback answers do not
// all read the same.
var promptTemplates = []string{
	`You are a professional music recommendation assistant. The catalog had no match, so you must suggest songs from your own knowledge.

Requirements:
1. Dig for variety: do not default to the most famous handful of songs (e.g. "Bohemian Rhapsody") unless the user asked for them by name.
2. Lesser-known but well-regarded tracks are welcome when they fit.
3. Recommend 3-5 songs that really exist and match the user's mood, genre and artist preferences.
4. For each song provide only these five fields: title, artist, genre, mood, language. No year, no duration.
5. Write a friendly recommendation text explaining the picks.`,

	`You are an enthusiastic music expert. The catalog came up empty, so suggest interesting songs yourself.

Requirements:
1. Avoid recycling the same batch of world-famous classics unless the user named them.
2. Mix in some randomness: lesser-known songs with a strong reputation keep things fresh.
3. Recommend 3-5 songs matching the request; every one must really exist.
4. Return only title, artist, genre, mood and language per song. No year, no duration.
5. Pitch them with energy and say why you love them.`,
}

// Recommender asks the model to invent candidates when the catalog has no
// match. Its output is untrusted: everything it returns goes through the
// verifier before anything is persisted.
type Recommender struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
	rng         *rand.Rand
}

type Option func(*Recommender)

// WithRand injects the randomness used for template choice and temperature
// sampling. Tests pin it for reproducible prompts.
func WithRand(rng *rand.Rand) Option {
	return func(r *Recommender) {
		r.rng = rng
	}
}

func NewRecommender(llmProvider llm.LLMProvider, logger *log.Logger, opts ...Option) *Recommender {
	r := &Recommender{
		llmProvider: llmProvider,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recommend generates candidates for the request. recommendedKeys are the
// session's already-served identity keys; excludeTitles is the cross-session
// recent-history list the model is explicitly told never to repeat.
// Recommend never fails: an unparseable answer becomes a plain-text
// recommendation with no song list.
func (r *Recommender) Recommend(
	ctx context.Context,
	userInput string,
	in *intent.Intent,
	history []llm.Message,
	recommendedKeys map[string]struct{},
	excludeTitles []string,
) Result {
	messages := r.buildMessages(userInput, in, history, recommendedKeys, excludeTitles)

	// Deliberately hotter than the extraction calls: invention wants variance.
	temperature := 0.8 + r.float64()*0.2

	response, err := r.llmProvider.Chat(ctx, messages,
		llm.WithTemperature(temperature),
		llm.WithMaxTokens(1000),
	)
	if err != nil {
		r.logger.Printf("[ERROR] Fallback generation failed: %v", err)
		return Result{
			Recommendation: "Sorry, I can't come up with specific songs right now. Try asking for a particular artist, genre or mood.",
		}
	}

	return parseResult(response)
}

func (r *Recommender) buildMessages(
	userInput string,
	in *intent.Intent,
	history []llm.Message,
	recommendedKeys map[string]struct{},
	excludeTitles []string,
) []llm.Message {
	system := promptTemplates[r.intn(len(promptTemplates))] + `

Always include the language field and identify it as precisely as you can,
using common tags such as "Mandarin", "Cantonese", "English", "Japanese",
"Korean" or "Spanish".

Respond with JSON in exactly this shape:
{
    "recommendation": "the recommendation text",
    "recommended_songs": [
        {"title": "...", "artist": "...", "genre": "...", "mood": "...", "language": "..."}
    ]
}`

	var user strings.Builder
	fmt.Fprintf(&user, "The user says: %s", userInput)

	if len(history) > 0 {
		recent := history
		if len(recent) > 6 { // last 3 exchanges
			recent = recent[len(recent)-6:]
		}
		user.WriteString("\n\nRecent conversation (for reference, avoid repeating yourself):\n")
		for _, msg := range recent {
			fmt.Fprintf(&user, "- %s: %s\n", msg.Role, truncate(msg.Content, 100))
		}
		user.WriteString("Make this answer different from the earlier ones.\n")
	}

	if len(recommendedKeys) > 0 {
		user.WriteString("\nNote: the user has already heard some songs this session; do not repeat anything they were already given.\n")
	}

	if len(excludeTitles) > 0 {
		preview := excludeTitles
		if len(preview) > exclusionPreview {
			preview = preview[:exclusionPreview]
		}
		fmt.Fprintf(&user, "\nNever recommend any of these already-served songs: %s\n", strings.Join(preview, ", "))
	}

	fmt.Fprintf(&user, "\nUser requirements: %s\n\nRecommend fitting songs:", requirements(in))

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user.String()},
	}
}

func requirements(in *intent.Intent) string {
	parts := make([]string, 0, 4)
	if v := deref(in.Mood); v != "" {
		parts = append(parts, "mood: "+v)
	}
	if v := deref(in.Genre); v != "" {
		parts = append(parts, "genre: "+v)
	}
	if v := deref(in.Artist); v != "" {
		parts = append(parts, "artist: "+v)
	}
	if v := deref(in.Song); v != "" {
		parts = append(parts, "song: "+v)
	}
	if len(parts) == 0 {
		return "no specific constraints, pick something broadly appealing"
	}
	return strings.Join(parts, ", ")
}

func parseResult(response string) Result {
	text := stripCodeFence(response)

	var parsed struct {
		Recommendation string      `json:"recommendation"`
		Songs          []reco.Song `json:"recommended_songs"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		// Raw text is still a usable answer for the user; there is just
		// nothing structured to verify or remember.
		return Result{Recommendation: strings.TrimSpace(response)}
	}

	if strings.TrimSpace(parsed.Recommendation) == "" {
		parsed.Recommendation = strings.TrimSpace(response)
	}
	songs := make([]reco.Song, 0, len(parsed.Songs))
	for _, s := range parsed.Songs {
		if s.Valid() {
			songs = append(songs, s)
		}
	}
	return Result{Recommendation: parsed.Recommendation, Songs: songs}
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

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (r *Recommender) intn(n int) int {
	if r.rng != nil {
		return r.rng.Intn(n)
	}
	return rand.Intn(n)
}

func (r *Recommender) float64() float64 {
	if r.rng != nil {
		return r.rng.Float64()
	}
	return rand.Float64()
}
