package queryfilter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"ai-tunemate-be/pkg/knowledge"
	"ai-tunemate-be/pkg/llm"
	"ai-tunemate-be/pkg/reco/intent"
)

// allowedFields is the full set of searchable catalog dimensions. Anything
// the model returns outside this set is dropped before it reaches the store.
var allowedFields = map[string]bool{
	"genre":  true,
	"mood":   true,
	"artist": true,
	"title":  true,
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// Synthesizer turns an Intent into a declarative search filter. It replaces
// the older approach of letting the model generate executable query code:
// the model may only emit an allow-listed JSON object, interpreted by fixed
// logic in the store.
type Synthesizer struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewSynthesizer(llmProvider llm.LLMProvider, logger *log.Logger) *Synthesizer {
	return &Synthesizer{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Synthesize builds the filter for one request. availableFields is the set of
// searchable fields that actually carry values in the catalog; when none of
// them is usable the model call is skipped entirely and the filter is derived
// from the intent alone. Synthesize never fails: parse or transport trouble
// degrades to the intent-derived filter.
func (s *Synthesizer) Synthesize(ctx context.Context, in *intent.Intent, availableFields []string) knowledge.Filter {
	available := make([]string, 0, len(availableFields))
	for _, f := range availableFields {
		if allowedFields[strings.ToLower(strings.TrimSpace(f))] {
			available = append(available, strings.ToLower(strings.TrimSpace(f)))
		}
	}
	if len(available) == 0 {
		return fromIntent(in)
	}

	response, err := s.llmProvider.Chat(ctx, s.buildMessages(in, available),
		llm.WithTemperature(0.2),
		llm.WithMaxTokens(400),
	)
	if err != nil {
		s.logger.Printf("[WARN] Filter synthesis call failed, falling back to intent: %v", err)
		return fromIntent(in)
	}

	parsed := parseFilterObject(response)
	return merge(parsed, in)
}

func (s *Synthesizer) buildMessages(in *intent.Intent, available []string) []llm.Message {
	system := fmt.Sprintf(`You translate a music request intent into search parameters.
Return one JSON object and nothing else: no prose, no code, no markdown.
Rules:
1) Only use these fields: %s
2) Use null for any field you cannot determine
3) Example shape: {"genre": "rock", "mood": "sad"}
4) Never return code, functions or explanations`, strings.Join(available, ", "))

	intentJSON, _ := json.Marshal(in)
	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: fmt.Sprintf("Intent: %s\nReturn the JSON object:", intentJSON)},
	}
}

// parseFilterObject locates the first balanced JSON object in the response,
// tolerating surrounding prose or a markdown fence, and keeps only the
// allow-listed keys. Failure yields an empty map.
func parseFilterObject(response string) map[string]string {
	text := jsonObjectPattern.FindString(response)
	if text == "" {
		text = strings.TrimSpace(response)
	}

	var raw map[string]*string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return map[string]string{}
	}

	out := make(map[string]string, len(raw))
	for key, value := range raw {
		lower := strings.ToLower(strings.TrimSpace(key))
		if !allowedFields[lower] {
			continue
		}
		// An explicit null means "no constraint" and is kept as such; only
		// fields the model omitted entirely get back-filled from the intent.
		if value == nil {
			out[lower] = ""
			continue
		}
		out[lower] = strings.TrimSpace(*value)
	}
	return out
}

// merge back-fills fields the model left out from the original intent, so a
// sparse model answer never loses information the extractor already found.
func merge(fields map[string]string, in *intent.Intent) knowledge.Filter {
	base := fromIntent(in)
	f := knowledge.Filter{
		Genre:  base.Genre,
		Mood:   base.Mood,
		Artist: base.Artist,
		Title:  base.Title,
	}
	if v, ok := fields["genre"]; ok {
		f.Genre = v
	}
	if v, ok := fields["mood"]; ok {
		f.Mood = v
	}
	if v, ok := fields["artist"]; ok {
		f.Artist = v
	}
	if v, ok := fields["title"]; ok {
		f.Title = v
	}
	return f
}

func fromIntent(in *intent.Intent) knowledge.Filter {
	return knowledge.Filter{
		Genre:  deref(in.Genre),
		Mood:   deref(in.Mood),
		Artist: deref(in.Artist),
		Title:  deref(in.Song),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
