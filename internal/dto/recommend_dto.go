package dto

import "ai-tunemate-be/pkg/reco/intent"

// Sources reported in the recommendation response.
const (
	SourceKnowledgeBase     = "knowledge_base"
	SourceLLMRecommendation = "llm_recommendation"
	SourceSystemCommand     = "system_command"
)

type RecommendRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id,omitempty"`
}

type SongDTO struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Genre    string `json:"genre,omitempty"`
	Mood     string `json:"mood,omitempty"`
	Language string `json:"language,omitempty"`
}

// RecommendResponse is the collaborator-facing result shape, kept flat on
// purpose: {success, recommendation, matched_songs, intent, source, session_id}.
type RecommendResponse struct {
	Success        bool           `json:"success"`
	Recommendation string         `json:"recommendation"`
	MatchedSongs   []SongDTO      `json:"matched_songs"`
	Intent         *intent.Intent `json:"intent"`
	Source         string         `json:"source"`
	SessionID      string         `json:"session_id"`
}
