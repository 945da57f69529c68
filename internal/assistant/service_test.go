package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kdimtricp/zonewatch/internal/ai"
	"github.com/kdimtricp/zonewatch/internal/database"
	"github.com/kdimtricp/zonewatch/internal/models"
)

type fakeLM struct {
	available bool
	answer    string
	err       error
	invoked   bool
	gotFacts  []ai.SightingFact
}

func (f *fakeLM) IsAvailable(ctx context.Context) bool {
	return f.available
}

func (f *fakeLM) AnswerObjectQuestion(ctx context.Context, question string, facts []ai.SightingFact) (string, error) {
	f.invoked = true
	f.gotFacts = facts
	return f.answer, f.err
}

func setupRepo(t *testing.T) *database.SightingRepo {
	t.Helper()
	db, err := database.NewDB(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return database.NewSightingRepo(db, 0)
}

func record(t *testing.T, repo *database.SightingRepo, label, zone string, conf float64, ts time.Time) {
	t.Helper()
	det := models.NewDetection(label, models.BBox{W: 10, H: 10}, conf)
	det.Timestamp = ts
	if _, err := repo.Record(context.Background(), det, zone); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}
}

func TestService_Answer_UnknownObject(t *testing.T) {
	repo := setupRepo(t)
	record(t, repo, "phone", "bed", 0.8, time.Now())

	lm := &fakeLM{available: true, answer: "should not be used"}
	svc := NewService(repo, lm)

	answer, err := svc.Answer(context.Background(), "Where did you see my shoes?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != NotSeenResponse {
		t.Errorf("Expected fixed not-seen response, got %q", answer)
	}
	if lm.invoked {
		t.Error("Language model must not be invoked for unknown objects")
	}
}

func TestService_Answer_EmptyHistory(t *testing.T) {
	repo := setupRepo(t)

	lm := &fakeLM{available: true}
	svc := NewService(repo, lm)

	answer, err := svc.Answer(context.Background(), "Where is my phone?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != NotSeenResponse {
		t.Errorf("Expected fixed not-seen response, got %q", answer)
	}
	if lm.invoked {
		t.Error("Language model must not be invoked when nothing was seen")
	}
}

func TestService_Answer_UsesLanguageModel(t *testing.T) {
	repo := setupRepo(t)
	record(t, repo, "phone", "bed", 0.8, time.Now().Add(-time.Minute))
	record(t, repo, "phone", "desk", 0.9, time.Now())

	lm := &fakeLM{available: true, answer: "Your phone is on the desk."}
	svc := NewService(repo, lm)

	answer, err := svc.Answer(context.Background(), "Where did you see my phone?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != "Your phone is on the desk." {
		t.Errorf("Expected model answer, got %q", answer)
	}
	if !lm.invoked {
		t.Fatal("Expected language model to be invoked")
	}
	if len(lm.gotFacts) != 2 {
		t.Fatalf("Expected one fact per zone, got %d", len(lm.gotFacts))
	}
	if lm.gotFacts[0].Zone != "desk" {
		t.Errorf("Expected most recent zone first, got %s", lm.gotFacts[0].Zone)
	}
}

func TestService_Answer_DegradesWhenModelFails(t *testing.T) {
	repo := setupRepo(t)
	record(t, repo, "phone", "bed", 0.8, time.Now())

	lm := &fakeLM{available: true, err: errors.New("connection reset")}
	svc := NewService(repo, lm)

	answer, err := svc.Answer(context.Background(), "Where is my phone?")
	if err != nil {
		t.Fatalf("Expected degradation, not an error: %v", err)
	}
	if !strings.Contains(answer, "phone") || !strings.Contains(answer, "bed") {
		t.Errorf("Expected templated answer mentioning phone and bed, got %q", answer)
	}
}

func TestService_Answer_DegradesWhenModelUnavailable(t *testing.T) {
	repo := setupRepo(t)
	record(t, repo, "phone", "bed", 0.8, time.Now())

	lm := &fakeLM{available: false}
	svc := NewService(repo, lm)

	answer, err := svc.Answer(context.Background(), "Where is my phone?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if lm.invoked {
		t.Error("Unavailable model must not be invoked")
	}
	if !strings.Contains(answer, "I last saw phone in the bed") {
		t.Errorf("Expected templated answer, got %q", answer)
	}
}

func TestService_Answer_NilModel(t *testing.T) {
	repo := setupRepo(t)
	record(t, repo, "phone", "bed", 0.8, time.Now())

	svc := NewService(repo, nil)

	answer, err := svc.Answer(context.Background(), "Where is my phone?")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !strings.Contains(answer, "phone") {
		t.Errorf("Expected templated answer, got %q", answer)
	}
}

func TestExtractLabel_LongestMatchWins(t *testing.T) {
	labels := []string{"phone", "cell phone", "book"}

	got := extractLabel("have you seen my cell phone anywhere", labels)
	if got != "cell phone" {
		t.Errorf("Expected longest match cell phone, got %q", got)
	}

	got = extractLabel("where is the BOOK", labels)
	if got != "book" {
		t.Errorf("Expected case-insensitive match book, got %q", got)
	}

	got = extractLabel("where are my keys", labels)
	if got != "" {
		t.Errorf("Expected no match, got %q", got)
	}
}

func TestService_Summary(t *testing.T) {
	repo := setupRepo(t)
	record(t, repo, "phone", "bed", 0.8, time.Now().Add(-time.Minute))
	record(t, repo, "book", "desk", 0.7, time.Now())

	svc := NewService(repo, nil)
	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.TotalSightings != 2 {
		t.Errorf("Expected 2 sightings, got %d", summary.TotalSightings)
	}
	if len(summary.Labels) != 2 {
		t.Errorf("Expected 2 labels, got %v", summary.Labels)
	}
	if len(summary.Recent) != 2 || summary.Recent[0].Label != "book" {
		t.Errorf("Expected most recent sighting first, got %+v", summary.Recent)
	}
}
