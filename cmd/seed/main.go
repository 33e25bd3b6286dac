package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"ai-tunemate-be/pkg/knowledge"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// Starter catalog for fresh deployments. Every entry carries the full tag set
// so each searchable field is exercised from day one.
var starterCatalog = []knowledge.Item{
	{ID: 1, Title: "Someone Like You", Artist: "Adele", Genre: "Pop", Mood: "sad", Language: "English", Source: knowledge.SourceCurated},
	{ID: 2, Title: "Fix You", Artist: "Coldplay", Genre: "Rock", Mood: "sad", Language: "English", Source: knowledge.SourceCurated},
	{ID: 3, Title: "Happy", Artist: "Pharrell Williams", Genre: "Pop", Mood: "happy", Language: "English", Source: knowledge.SourceCurated},
	{ID: 4, Title: "Uptown Funk", Artist: "Mark Ronson", Genre: "Funk", Mood: "energetic", Language: "English", Source: knowledge.SourceCurated},
	{ID: 5, Title: "Weightless", Artist: "Marconi Union", Genre: "Ambient", Mood: "calm", Language: "Instrumental", Source: knowledge.SourceCurated},
	{ID: 6, Title: "Clair de Lune", Artist: "Claude Debussy", Genre: "Classical", Mood: "calm", Language: "Instrumental", Source: knowledge.SourceCurated},
	{ID: 7, Title: "Lose Yourself", Artist: "Eminem", Genre: "Hip-Hop", Mood: "energetic", Language: "English", Source: knowledge.SourceCurated},
	{ID: 8, Title: "Shape of You", Artist: "Ed Sheeran", Genre: "Pop", Mood: "happy", Language: "English", Source: knowledge.SourceCurated},
	{ID: 9, Title: "Bohemian Rhapsody", Artist: "Queen", Genre: "Rock", Mood: "epic", Language: "English", Source: knowledge.SourceCurated},
	{ID: 10, Title: "Hallelujah", Artist: "Leonard Cohen", Genre: "Folk", Mood: "sad", Language: "English", Source: knowledge.SourceCurated},
	{ID: 11, Title: "La Vie en Rose", Artist: "Edith Piaf", Genre: "Chanson", Mood: "romantic", Language: "French", Source: knowledge.SourceCurated},
	{ID: 12, Title: "Despacito", Artist: "Luis Fonsi", Genre: "Reggaeton", Mood: "happy", Language: "Spanish", Source: knowledge.SourceCurated},
	{ID: 13, Title: "River Flows in You", Artist: "Yiruma", Genre: "Classical", Mood: "calm", Language: "Instrumental", Source: knowledge.SourceCurated},
	{ID: 14, Title: "Thunderstruck", Artist: "AC/DC", Genre: "Rock", Mood: "energetic", Language: "English", Source: knowledge.SourceCurated},
	{ID: 15, Title: "Blinding Lights", Artist: "The Weeknd", Genre: "Synth-pop", Mood: "energetic", Language: "English", Source: knowledge.SourceCurated},
	{ID: 16, Title: "The Night We Met", Artist: "Lord Huron", Genre: "Indie", Mood: "sad", Language: "English", Source: knowledge.SourceCurated},
	{ID: 17, Title: "Fly Me to the Moon", Artist: "Frank Sinatra", Genre: "Jazz", Mood: "romantic", Language: "English", Source: knowledge.SourceCurated},
	{ID: 18, Title: "Take Five", Artist: "Dave Brubeck", Genre: "Jazz", Mood: "calm", Language: "Instrumental", Source: knowledge.SourceCurated},
	{ID: 19, Title: "Gangnam Style", Artist: "PSY", Genre: "K-Pop", Mood: "happy", Language: "Korean", Source: knowledge.SourceCurated},
	{ID: 20, Title: "Nuvole Bianche", Artist: "Ludovico Einaudi", Genre: "Classical", Mood: "melancholic", Language: "Instrumental", Source: knowledge.SourceCurated},
}

func main() {
	force := flag.Bool("force", false, "overwrite an existing catalog file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	path := os.Getenv("KB_FILE_PATH")
	if path == "" {
		path = "music_data.json"
	}

	if _, err := os.Stat(path); err == nil && !*force {
		color.Yellow("Catalog %s already exists, skipping (use -force to overwrite)", path)
		return
	}

	color.Cyan("Seeding starter catalog to %s...", path)

	data, err := json.MarshalIndent(starterCatalog, "", "  ")
	if err != nil {
		color.Red("Error: failed to marshal catalog: %v", err)
		os.Exit(1)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		color.Red("Error: failed to write catalog: %v", err)
		os.Exit(1)
	}

	color.Green("✅ Seeded %d songs", len(starterCatalog))
}
