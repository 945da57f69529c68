package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/kdimtricp/zonewatch/internal/ai"
	"github.com/kdimtricp/zonewatch/internal/api"
	"github.com/kdimtricp/zonewatch/internal/assistant"
	"github.com/kdimtricp/zonewatch/internal/database"
	"github.com/kdimtricp/zonewatch/internal/pipeline"
	"github.com/kdimtricp/zonewatch/internal/zones"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./zonewatch.db"
	}

	zonesPath := os.Getenv("ZONES_PATH")
	if zonesPath == "" {
		zonesPath = "./zones.json"
	}

	frameW := envFloat("FRAME_WIDTH", 1280)
	frameH := envFloat("FRAME_HEIGHT", 720)

	policy, err := zones.ParsePolicy(os.Getenv("MATCH_POLICY"))
	if err != nil {
		log.Fatal("Invalid MATCH_POLICY:", err)
	}

	dedupWindow := database.DedupWindow
	if v := os.Getenv("DEDUP_WINDOW"); v != "" {
		dedupWindow, err = time.ParseDuration(v)
		if err != nil {
			log.Fatal("Invalid DEDUP_WINDOW:", err)
		}
	}

	// The history store must be reachable at startup; everything else
	// degrades gracefully.
	db, err := database.NewDB(database.Config{Path: dbPath})
	if err != nil {
		log.Fatal("Failed to initialize history database:", err)
	}
	defer db.Close()

	repo := database.NewSightingRepo(db, dedupWindow)

	if v := os.Getenv("RETENTION"); v != "" {
		retention, err := time.ParseDuration(v)
		if err != nil {
			log.Fatal("Invalid RETENTION:", err)
		}
		pruned, err := repo.Prune(context.Background(), time.Now().Add(-retention))
		if err != nil {
			log.Printf("Warning: failed to prune old sightings: %v", err)
		} else if pruned > 0 {
			log.Printf("Pruned %d sighting(s) older than %s", pruned, retention)
		}
	}

	store := zones.NewStore(zonesPath)
	zoneList, err := store.Load()
	if err != nil {
		log.Printf("Warning: falling back to empty zone list: %v", err)
		zoneList = nil
	}
	log.Printf("Loaded %d zone(s) from %s", len(zoneList), zonesPath)

	lm := ai.NewOllamaClient(os.Getenv("OLLAMA_URL"), os.Getenv("OLLAMA_MODEL"))
	probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if lm.IsAvailable(probeCtx) {
		log.Println("Ollama service is available")
	} else {
		log.Println("Warning: Ollama service not available, answers will be templated")
	}
	cancel()

	matcher := zones.NewMatcher(frameW, frameH, policy)
	hub := pipeline.NewHub()
	go hub.Run(context.Background())

	processor := pipeline.NewProcessor(matcher, zoneList, repo, hub)
	svc := assistant.NewService(repo, lm)

	app := &api.App{
		ZoneStore: store,
		Repo:      repo,
		Assistant: svc,
		Processor: processor,
		Hub:       hub,
		LM:        lm,
	}

	router := api.NewRouter(app)

	log.Printf("Server starting on port %s", port)
	log.Printf("History database: %s", dbPath)
	log.Printf("Frame size: %.0fx%.0f", frameW, frameH)

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.Fatal(err)
	}
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("Invalid %s: %v", key, err)
	}
	return f
}
