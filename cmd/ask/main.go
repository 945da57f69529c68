package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kdimtricp/zonewatch/internal/ai"
	"github.com/kdimtricp/zonewatch/internal/assistant"
	"github.com/kdimtricp/zonewatch/internal/database"
)

// One-shot question tool against the local history database, e.g.:
//
//	ask -db ./zonewatch.db "Where did you see my phone?"
func main() {
	var (
		dbPath    = flag.String("db", "./zonewatch.db", "Path to the history database")
		ollamaURL = flag.String("ollama", "", "Ollama base URL (default http://localhost:11434)")
		model     = flag.String("model", "", "Ollama model name (default llama3.2)")
		timeout   = flag.Duration("timeout", 2*time.Minute, "Overall answer timeout")
	)
	flag.Parse()

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "Usage: ask [flags] <question>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	db, err := database.NewDB(database.Config{Path: *dbPath})
	if err != nil {
		log.Fatal("Failed to open history database:", err)
	}
	defer db.Close()

	repo := database.NewSightingRepo(db, 0)
	lm := ai.NewOllamaClient(*ollamaURL, *model)
	svc := assistant.NewService(repo, lm)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	answer, err := svc.Answer(ctx, question)
	if err != nil {
		log.Fatal("Failed to answer:", err)
	}

	fmt.Println(answer)
}
