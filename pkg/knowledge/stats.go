package knowledge

import "sort"

const maxArtistsListed = 20

// Stats summarizes the catalog for the admin surface.
type Stats struct {
	TotalSongs int            `json:"total_songs"`
	Genres     map[string]int `json:"genres"`
	Moods      map[string]int `json:"moods"`
	Languages  map[string]int `json:"languages"`
	Artists    []string       `json:"artists"`
}

// Statistics counts songs per genre/mood/language and lists distinct artists.
// The artist list is sorted and capped so a large catalog does not flood the
// response.
func (s *Store) Statistics() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalSongs: len(s.items),
		Genres:     map[string]int{},
		Moods:      map[string]int{},
		Languages:  map[string]int{},
	}

	artistSet := map[string]struct{}{}
	for _, it := range s.items {
		if it.Genre != "" {
			stats.Genres[it.Genre]++
		}
		if it.Mood != "" {
			stats.Moods[it.Mood]++
		}
		if it.Language != "" {
			stats.Languages[it.Language]++
		}
		if it.Artist != "" {
			artistSet[it.Artist] = struct{}{}
		}
	}

	artists := make([]string, 0, len(artistSet))
	for a := range artistSet {
		artists = append(artists, a)
	}
	sort.Strings(artists)
	if len(artists) > maxArtistsListed {
		artists = artists[:maxArtistsListed]
	}
	stats.Artists = artists

	return stats
}
