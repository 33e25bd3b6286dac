package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-tunemate-be/internal/dto"
	"ai-tunemate-be/pkg/events"
	"ai-tunemate-be/pkg/knowledge"
	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/memory"
	pktNats "ai-tunemate-be/pkg/nats"
	"ai-tunemate-be/pkg/reco"
	"ai-tunemate-be/pkg/reco/fallback"
	"ai-tunemate-be/pkg/reco/intent"
	"ai-tunemate-be/pkg/reco/narrate"
	"ai-tunemate-be/pkg/reco/queryfilter"
	"ai-tunemate-be/pkg/reco/verify"
)

// ErrNotInitialized marks requests that arrive while a required dependency
// (model provider or catalog) is missing, typically because of absent
// credentials at startup. Controllers answer 503 for it.
var ErrNotInitialized = errors.New("recommendation service not initialized")

// maxResponseSongs caps how many songs the response and the narration show.
const maxResponseSongs = 5

type IRecommendationService interface {
	// Recommend runs the full pipeline for one utterance and always returns
	// a textual answer unless the service is uninitialized.
	Recommend(ctx context.Context, message, sessionID string) (*dto.RecommendResponse, error)

	// ResetContext wipes every piece of in-memory conversational state.
	ResetContext(ctx context.Context)
}

type recommendationService struct {
	store *knowledge.Store
	mem   *memory.Manager

	intentResolver *intent.Resolver
	synthesizer    *queryfilter.Synthesizer
	fallbacker     *fallback.Recommender
	verifier       *verify.Verifier
	narrator       *narrate.Narrator

	natsPub *pktNats.Publisher

	searchLimit  int
	resetCommand string

	initialized bool
}

func NewRecommendationService(
	llmProvider llm.LLMProvider,
	store *knowledge.Store,
	mem *memory.Manager,
	natsPub *pktNats.Publisher,
	searchLimit int,
	resetCommand string,
) IRecommendationService {
	s := &recommendationService{
		store:        store,
		mem:          mem,
		natsPub:      natsPub,
		searchLimit:  searchLimit,
		resetCommand: strings.TrimSpace(resetCommand),
	}

	// A missing provider or catalog leaves the service answering a uniform
	// "not initialized" failure instead of crashing per request.
	if llmProvider == nil || store == nil || mem == nil {
		return s
	}

	stageLog := log.Default()
	s.intentResolver = intent.NewResolver(llmProvider, stageLog)
	s.synthesizer = queryfilter.NewSynthesizer(llmProvider, stageLog)
	s.fallbacker = fallback.NewRecommender(llmProvider, stageLog)
	s.verifier = verify.NewVerifier(llmProvider, stageLog)
	s.narrator = narrate.NewNarrator(llmProvider, stageLog)
	s.initialized = true

	return s
}

func (s *recommendationService) Recommend(ctx context.Context, message, sessionID string) (*dto.RecommendResponse, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}

	userInput := strings.TrimSpace(message)
	log.Printf("[RECO] Request (session %.8s...): %s", sessionID, userInput)

	// Reserved command short-circuits the whole pipeline: no model calls.
	if userInput == s.resetCommand {
		s.mem.ResetSession(sessionID)
		log.Printf("[RECO] Session %.8s... memory reset by command", sessionID)
		return &dto.RecommendResponse{
			Success:        true,
			Recommendation: "All conversation memory has been cleared. Recommendations and context start fresh.",
			MatchedSongs:   []dto.SongDTO{},
			Intent:         &intent.Intent{Intent: "reset_memory"},
			Source:         dto.SourceSystemCommand,
			SessionID:      sessionID,
		}, nil
	}

	// Applies the idle rule and returns the session's dedup set.
	recommendedKeys := s.mem.Touch(sessionID)

	// Step 1: intent extraction.
	in := s.intentResolver.Resolve(ctx, userInput, s.mem.Recent(0))

	// Step 2: structured filter synthesis.
	filter := s.synthesizer.Synthesize(ctx, in, s.store.QueryFields())

	// Step 3: catalog search with cross-session exclusion, then a second
	// pass dropping anything this session has already been served.
	excludeTitles := s.mem.ExclusionTitles()
	matched := s.store.Search(filter, s.searchLimit, excludeTitles)
	if len(matched) > 0 {
		kept := matched[:0]
		for _, item := range matched {
			if _, seen := recommendedKeys[item.Key()]; !seen {
				kept = append(kept, item)
			}
		}
		if dropped := len(matched) - len(kept); dropped > 0 {
			log.Printf("[RECO] Filtered %d already-served songs, %d remain", dropped, len(kept))
		}
		matched = kept
	}

	var (
		reply  string
		songs  []dto.SongDTO
		source string
	)

	if len(matched) > 0 {
		// MATCHED: narrate the catalog hit.
		source = dto.SourceKnowledgeBase
		reply = s.narrator.Narrate(ctx, userInput, matched, in, s.mem.Recent(6))
		songs = songsFromItems(matched)
	} else {
		// FALLBACK: invent candidates, then verify them.
		source = dto.SourceLLMRecommendation
		log.Printf("[RECO] No catalog match, generating fallback recommendation")

		result := s.fallbacker.Recommend(ctx, userInput, in, s.mem.Recent(6), recommendedKeys, excludeTitles)
		verified := s.verifier.Verify(ctx, result.Songs)

		// When verification discards everything the unverified candidates
		// still shape the visible text so the user gets an answer, but only
		// verified songs are ever persisted.
		display := result.Songs
		if len(verified) > 0 {
			display = verified
		}
		songs = songsFromCandidates(display)
		reply = appendSongList(result.Recommendation, songs)

		if len(verified) > 0 {
			s.learnAsync(verified)
		}
	}

	// MEMORY_UPDATED: every final-stage item joins the session dedup set,
	// the per-turn history, and the dialogue window.
	keys := make([]string, 0, len(songs))
	titles := make([]string, 0, len(songs))
	for _, song := range songs {
		keys = append(keys, knowledge.IdentityKey(song.Title, song.Artist))
		titles = append(titles, song.Title)
	}
	s.mem.RecordTurn(sessionID, userInput, reply, keys, titles)

	s.publishActivity(sessionID, source, in.Intent, titles)

	if len(songs) > maxResponseSongs {
		songs = songs[:maxResponseSongs]
	}
	return &dto.RecommendResponse{
		Success:        true,
		Recommendation: reply,
		MatchedSongs:   songs,
		Intent:         in,
		Source:         source,
		SessionID:      sessionID,
	}, nil
}

func (s *recommendationService) ResetContext(ctx context.Context) {
	s.mem.ResetAll()
	log.Printf("[RECO] Cleared dialogue window, history and session dedup caches")
}

// learnAsync persists verified songs off the reply path so self-learning
// never delays the user-facing answer.
func (s *recommendationService) learnAsync(verified []reco.Song) {
	items := make([]knowledge.Item, 0, len(verified))
	for _, song := range verified {
		items = append(items, knowledge.Item{
			Title:    song.Title,
			Artist:   song.Artist,
			Genre:    song.Genre,
			Mood:     song.Mood,
			Language: song.Language,
		})
	}

	go func() {
		added, err := s.store.AddLearned(items)
		if err != nil {
			log.Printf("[ERROR] Failed to persist learned songs: %v", err)
			return
		}
		if added > 0 {
			log.Printf("[LEARN] Added %d verified songs to the catalog", added)
		}
	}()
}

// publishActivity emits the completed-recommendation event. Best effort: a
// missing or unreachable bus only costs the admin live feed.
func (s *recommendationService) publishActivity(sessionID, source, intentType string, titles []string) {
	if s.natsPub == nil {
		return
	}
	event := events.NewRecommendationCompleted(sessionID, source, intentType, titles)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.natsPub.Publish(ctx, event); err != nil {
			log.Printf("[WARN] Failed to publish activity event: %v", err)
		}
	}()
}

func songsFromItems(items []knowledge.Item) []dto.SongDTO {
	out := make([]dto.SongDTO, 0, len(items))
	for _, it := range items {
		out = append(out, dto.SongDTO{
			Title:    it.Title,
			Artist:   it.Artist,
			Genre:    it.Genre,
			Mood:     it.Mood,
			Language: it.Language,
		})
	}
	return out
}

func songsFromCandidates(songs []reco.Song) []dto.SongDTO {
	out := make([]dto.SongDTO, 0, len(songs))
	for _, s := range songs {
		out = append(out, dto.SongDTO{
			Title:    s.Title,
			Artist:   s.Artist,
			Genre:    s.Genre,
			Mood:     s.Mood,
			Language: s.Language,
		})
	}
	return out
}

// appendSongList makes sure the fallback reply spells the songs out even
// when the model's prose forgot to.
func appendSongList(reply string, songs []dto.SongDTO) string {
	if len(songs) == 0 {
		return reply
	}
	var b strings.Builder
	b.WriteString(reply)
	b.WriteString("\n\nRecommended songs:\n")
	for i, song := range songs {
		if song.Artist != "" {
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, song.Title, song.Artist)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, song.Title)
		}
	}
	return strings.TrimSpace(b.String())
}
