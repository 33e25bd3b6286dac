package narrate

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"ai-tunemate-be/pkg/knowledge"
	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/reco/intent"
)

// maxNarratedSongs caps how many matched items the reply talks about.
const maxNarratedSongs = 5

var promptTemplates = []string{
	`You are a friendly music recommendation assistant.
Given the user's request and the matched songs, write a natural, friendly reply.
The reply should:
1. Be concise
2. Mention the recommended songs and their artists
3. Explain why these songs fit the request
4. List the 2-3 most relevant ones when there are several`,

	`You are an enthusiastic music expert.
Recommend the matched songs to the user in a lively, engaging way.
The reply should:
1. Keep the tone light and friendly
2. Highlight what makes each song special
3. Feel free to express your own fondness for them
4. List the 2-3 most relevant ones when there are several`,

	`You are a professional music consultant.
Present the matched songs to the user as a considered recommendation.
The reply should:
1. Be knowledgeable without being stiff
2. Give concrete reasons for each pick
3. Mention the style of the songs where relevant
4. List the 2-3 most relevant ones when there are several`,
}

// Narrator turns a successful catalog hit into the conversational reply.
// A failed model call degrades to a plain generated listing; the user always
// gets an answer.
type Narrator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
	rng         *rand.Rand
}

type Option func(*Narrator)

func WithRand(rng *rand.Rand) Option {
	return func(n *Narrator) {
		n.rng = rng
	}
}

func NewNarrator(llmProvider llm.LLMProvider, logger *log.Logger, opts ...Option) *Narrator {
	n := &Narrator{
		llmProvider: llmProvider,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Narrate composes the reply for up to five matched songs.
func (n *Narrator) Narrate(ctx context.Context, userInput string, songs []knowledge.Item, in *intent.Intent, history []llm.Message) string {
	if len(songs) > maxNarratedSongs {
		songs = songs[:maxNarratedSongs]
	}

	var user strings.Builder
	fmt.Fprintf(&user, "The user says: %s", userInput)

	if len(history) > 0 {
		recent := history
		if len(recent) > 6 {
			recent = recent[len(recent)-6:]
		}
		user.WriteString("\n\nRecent conversation (avoid repeating earlier replies):\n")
		for _, msg := range recent {
			fmt.Fprintf(&user, "- %s: %s\n", msg.Role, truncate(msg.Content, 100))
		}
		user.WriteString("Offer a fresh angle compared to the replies above.\n")
	}

	user.WriteString("\nMatched songs:\n")
	for _, s := range songs {
		fmt.Fprintf(&user, "- %s by %s (%s, %s)\n", orUnknown(s.Title), orUnknown(s.Artist), orUnknown(s.Genre), orUnknown(s.Mood))
	}
	user.WriteString("\nWrite the recommendation reply:")

	messages := []llm.Message{
		{Role: "system", Content: promptTemplates[n.intn(len(promptTemplates))]},
		{Role: "user", Content: user.String()},
	}

	temperature := 0.8 + n.float64()*0.2
	response, err := n.llmProvider.Chat(ctx, messages,
		llm.WithTemperature(temperature),
		llm.WithMaxTokens(500),
	)
	if err != nil {
		n.logger.Printf("[WARN] Narration call failed, using plain listing: %v", err)
		return plainListing(songs)
	}
	return strings.TrimSpace(response)
}

// plainListing is the no-model fallback reply.
func plainListing(songs []knowledge.Item) string {
	var b strings.Builder
	b.WriteString("Here are some songs you might enjoy:\n")
	for i, s := range songs {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, s.Title, s.Artist)
	}
	return strings.TrimSpace(b.String())
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func (n *Narrator) intn(m int) int {
	if n.rng != nil {
		return n.rng.Intn(m)
	}
	return rand.Intn(m)
}

func (n *Narrator) float64() float64 {
	if n.rng != nil {
		return n.rng.Float64()
	}
	return rand.Float64()
}
