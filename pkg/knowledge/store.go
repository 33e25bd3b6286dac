package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Source tags recorded on items.
const (
	SourceCurated = "curated"
	SourceLearned = "llm_generated"
)

var ErrNotFound = errors.New("song not found")

// Item is one recommendable song. Title and Artist are required and form the
// identity key; the remaining tags are free-text.
type Item struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Genre    string `json:"genre,omitempty"`
	Mood     string `json:"mood,omitempty"`
	Language string `json:"language,omitempty"`
	Year     *int   `json:"year,omitempty"`
	Duration int    `json:"duration,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Key returns the normalized identity key used for deduplication.
func (it Item) Key() string {
	return IdentityKey(it.Title, it.Artist)
}

// IdentityKey normalizes a title/artist pair into the dedup key.
func IdentityKey(title, artist string) string {
	return NormalizeTitle(title) + "||" + NormalizeTitle(artist)
}

// NormalizeTitle lowercases and trims a title for comparison.
func NormalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Filter restricts a search. Empty fields mean "no constraint".
// Genre and Mood match exactly (case-insensitive); Artist and Title match as
// case-insensitive substrings.
type Filter struct {
	Genre  string
	Mood   string
	Artist string
	Title  string
}

func (f Filter) IsZero() bool {
	return f.Genre == "" && f.Mood == "" && f.Artist == "" && f.Title == ""
}

// Store holds the song catalog in memory and persists it to a JSON file.
// All mutations rewrite the file with an atomic replace.
type Store struct {
	mu      sync.RWMutex
	path    string
	items   []Item
	nextID  int
	shuffle func(n int, swap func(i, j int))
}

type Option func(*Store)

// WithShuffle overrides the randomization used before truncating search
// results. Tests inject a no-op to get stable ordering.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(s *Store) {
		s.shuffle = fn
	}
}

func NewStore(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		shuffle: rand.Shuffle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("[WARN] Knowledge file %s not found, starting with an empty catalog", s.path)
			s.items = []Item{}
			s.nextID = 1
			return nil
		}
		return fmt.Errorf("read knowledge file: %w", err)
	}

	// Unknown fields in the file are dropped by decoding into Item.
	var raw []Item
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse knowledge file %s: %w", s.path, err)
	}

	items := make([]Item, 0, len(raw))
	dropped := 0
	maxID := 0
	for _, it := range raw {
		if strings.TrimSpace(it.Title) == "" || strings.TrimSpace(it.Artist) == "" {
			dropped++
			continue
		}
		if it.Source == "" {
			it.Source = SourceCurated
		}
		if it.ID > maxID {
			maxID = it.ID
		}
		items = append(items, it)
	}
	if dropped > 0 {
		log.Printf("[WARN] Dropped %d knowledge entries missing title or artist", dropped)
	}

	s.items = items
	s.nextID = maxID + 1
	return nil
}

// Search returns up to limit items matching the filter. Items whose
// normalized title appears in excludeTitles are skipped before any other
// check. Candidates are shuffled before truncation so repeated identical
// queries do not always surface the same subset.
func (s *Store) Search(f Filter, limit int, excludeTitles []string) []Item {
	excluded := make(map[string]struct{}, len(excludeTitles))
	for _, t := range excludeTitles {
		excluded[NormalizeTitle(t)] = struct{}{}
	}

	s.mu.RLock()
	candidates := make([]Item, 0)
	for _, it := range s.items {
		if _, skip := excluded[NormalizeTitle(it.Title)]; skip {
			continue
		}
		if !matches(it, f) {
			continue
		}
		candidates = append(candidates, it)
	}
	s.mu.RUnlock()

	s.shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func matches(it Item, f Filter) bool {
	if f.Genre != "" && !strings.EqualFold(strings.TrimSpace(f.Genre), strings.TrimSpace(it.Genre)) {
		return false
	}
	if f.Mood != "" && !strings.EqualFold(strings.TrimSpace(f.Mood), strings.TrimSpace(it.Mood)) {
		return false
	}
	if f.Artist != "" && !strings.Contains(NormalizeTitle(it.Artist), NormalizeTitle(f.Artist)) {
		return false
	}
	if f.Title != "" && !strings.Contains(NormalizeTitle(it.Title), NormalizeTitle(f.Title)) {
		return false
	}
	return true
}

// AddLearned appends verified model-generated songs that are not already in
// the catalog, assigns fresh ids, and persists the catalog. Returns how many
// were actually added.
func (s *Store) AddLearned(songs []Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]struct{}, len(s.items))
	for _, it := range s.items {
		known[it.Key()] = struct{}{}
	}

	added := 0
	for _, song := range songs {
		if strings.TrimSpace(song.Title) == "" || strings.TrimSpace(song.Artist) == "" {
			continue
		}
		key := song.Key()
		if _, dup := known[key]; dup {
			continue
		}
		song.ID = s.nextID
		s.nextID++
		if song.Genre == "" {
			song.Genre = "Unknown"
		}
		if song.Mood == "" {
			song.Mood = "Unknown"
		}
		if song.Language == "" {
			song.Language = "Unknown"
		}
		song.Source = SourceLearned
		s.items = append(s.items, song)
		known[key] = struct{}{}
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := s.save(); err != nil {
		return added, fmt.Errorf("persist learned songs: %w", err)
	}
	return added, nil
}

// Delete removes an item by id. Returns ErrNotFound when the id does not
// exist; the catalog is only rewritten on an actual removal.
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			if err := s.save(); err != nil {
				return fmt.Errorf("persist after delete: %w", err)
			}
			return nil
		}
	}
	return ErrNotFound
}

// QueryFields reports which searchable fields carry at least one value in the
// current catalog. The query synthesizer only offers these to the model.
func (s *Store) QueryFields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	present := map[string]bool{}
	for _, it := range s.items {
		if it.Genre != "" {
			present["genre"] = true
		}
		if it.Mood != "" {
			present["mood"] = true
		}
		if it.Artist != "" {
			present["artist"] = true
		}
		if it.Title != "" {
			present["title"] = true
		}
	}

	fields := make([]string, 0, 4)
	for _, f := range []string{"genre", "mood", "artist", "title"} {
		if present[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// save writes the catalog as pretty-printed JSON via a temp file and rename,
// so a crash mid-write never truncates the previous catalog.
// Callers must hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".songs-*.json")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp catalog: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}
