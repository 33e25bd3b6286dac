package dto

import "time"

type UserDTO struct {
	ID               uint      `json:"id"`
	ExternalID       string    `json:"external_id"`
	FirstSeen        time.Time `json:"first_seen"`
	LastActive       time.Time `json:"last_active"`
	InteractionCount int       `json:"interaction_count"`
}

type ListUsersResponse struct {
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Users    []UserDTO `json:"users"`
}

type ChatLogDTO struct {
	ID         uint      `json:"id"`
	UserID     uint      `json:"user_id"`
	UserInput  string    `json:"user_input"`
	AiReply    string    `json:"ai_reply"`
	IntentType string    `json:"intent_type"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

type IntentCountDTO struct {
	IntentType string `json:"intent_type"`
	Count      int64  `json:"count"`
}

type AdminStatsResponse struct {
	TotalUsers       int64            `json:"total_users"`
	TodayActiveUsers int64            `json:"today_active_users"`
	RecentLogs       []ChatLogDTO     `json:"recent_logs"`
	PopularIntents   []IntentCountDTO `json:"popular_intents"`
}

// ActivityEvent is pushed to connected admin dashboards over the websocket
// feed after every completed recommendation.
type ActivityEvent struct {
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
	Intent    string    `json:"intent"`
	SongCount int       `json:"song_count"`
	Songs     []string  `json:"songs,omitempty"`
	At        time.Time `json:"at"`
}
