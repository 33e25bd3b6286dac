// Package reco holds the shared vocabulary of the recommendation pipeline.
// The per-stage logic lives in the subpackages: intent, queryfilter,
// fallback, verify, narrate.
package reco

import "strings"

// Song is a pipeline candidate. It has no id: only songs that survive
// verification are turned into catalog items.
type Song struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Genre    string `json:"genre,omitempty"`
	Mood     string `json:"mood,omitempty"`
	Language string `json:"language,omitempty"`
}

// Key returns the normalized title/artist identity key.
func (s Song) Key() string {
	return strings.ToLower(strings.TrimSpace(s.Title)) + "||" + strings.ToLower(strings.TrimSpace(s.Artist))
}

// Valid reports whether the song has both identity fields after trimming.
func (s Song) Valid() bool {
	return strings.TrimSpace(s.Title) != "" && strings.TrimSpace(s.Artist) != ""
}
