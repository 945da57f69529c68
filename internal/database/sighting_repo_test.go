package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kdimtricp/zonewatch/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewDB(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func detectionAt(label string, conf float64, ts time.Time) models.Detection {
	det := models.NewDetection(label, models.BBox{X: 0, Y: 0, W: 10, H: 10}, conf)
	det.Timestamp = ts
	return det
}

func TestSightingRepo_RecordAndQueryByLabel(t *testing.T) {
	repo := NewSightingRepo(setupTestDB(t), 0)
	ctx := context.Background()

	t1 := time.Now().Add(-time.Minute)
	t2 := time.Now()

	if _, err := repo.Record(ctx, detectionAt("phone", 0.8, t1), "bed"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}
	if _, err := repo.Record(ctx, detectionAt("phone", 0.9, t2), "table"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}

	history, err := repo.QueryByLabel(ctx, "phone", 10)
	if err != nil {
		t.Fatalf("Failed to query sightings: %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("Expected 2 sightings, got %d", len(history))
	}
	if history[0].ZoneName != "table" || history[1].ZoneName != "bed" {
		t.Errorf("Expected [table, bed], got [%s, %s]", history[0].ZoneName, history[1].ZoneName)
	}
	if !history[0].Timestamp.After(history[1].Timestamp) {
		t.Error("Expected most recent sighting first")
	}
}

func TestSightingRepo_DedupWithinWindow(t *testing.T) {
	repo := NewSightingRepo(setupTestDB(t), 5*time.Second)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)

	first, err := repo.Record(ctx, detectionAt("phone", 0.8, base), "bed")
	if err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}

	// Same (label, zone) two seconds later: one logical record, updated
	// timestamp, max confidence kept.
	second, err := repo.Record(ctx, detectionAt("phone", 0.6, base.Add(2*time.Second)), "bed")
	if err != nil {
		t.Fatalf("Failed to record repeat sighting: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Expected dedup to reuse record %d, got %d", first.ID, second.ID)
	}
	if second.Confidence != 0.8 {
		t.Errorf("Expected max confidence 0.8 kept, got %v", second.Confidence)
	}

	history, err := repo.QueryByLabel(ctx, "phone", 10)
	if err != nil {
		t.Fatalf("Failed to query sightings: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 deduplicated sighting, got %d", len(history))
	}
	if !history[0].Timestamp.Equal(base.Add(2 * time.Second).UTC()) {
		t.Errorf("Expected updated timestamp %v, got %v", base.Add(2*time.Second).UTC(), history[0].Timestamp)
	}
}

func TestSightingRepo_NoDedupOutsideWindow(t *testing.T) {
	repo := NewSightingRepo(setupTestDB(t), 5*time.Second)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)

	if _, err := repo.Record(ctx, detectionAt("phone", 0.8, base), "bed"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}
	if _, err := repo.Record(ctx, detectionAt("phone", 0.8, base.Add(10*time.Second)), "bed"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}

	history, err := repo.QueryByLabel(ctx, "phone", 10)
	if err != nil {
		t.Fatalf("Failed to query sightings: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("Expected 2 sightings outside the dedup window, got %d", len(history))
	}
}

func TestSightingRepo_NoDedupAcrossZones(t *testing.T) {
	repo := NewSightingRepo(setupTestDB(t), 5*time.Second)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)

	if _, err := repo.Record(ctx, detectionAt("phone", 0.8, base), "bed"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}
	if _, err := repo.Record(ctx, detectionAt("phone", 0.8, base.Add(time.Second)), "desk"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}

	history, err := repo.QueryByLabel(ctx, "phone", 10)
	if err != nil {
		t.Fatalf("Failed to query sightings: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("Expected sightings in different zones to stay separate, got %d", len(history))
	}
}

func TestSightingRepo_Recent(t *testing.T) {
	repo := NewSightingRepo(setupTestDB(t), 0)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	labels := []string{"phone", "book", "cup", "keys"}
	for i, label := range labels {
		ts := base.Add(time.Duration(i) * time.Minute)
		if _, err := repo.Record(ctx, detectionAt(label, 0.7, ts), "bed"); err != nil {
			t.Fatalf("Failed to record sighting: %v", err)
		}
	}

	recent, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to query recent sightings: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected 2 sightings, got %d", len(recent))
	}
	if recent[0].Label != "keys" || recent[1].Label != "cup" {
		t.Errorf("Expected [keys, cup], got [%s, %s]", recent[0].Label, recent[1].Label)
	}
}

func TestSightingRepo_RecentSince(t *testing.T) {
	repo := NewSightingRepo(setupTestDB(t), 0)
	ctx := context.Background()

	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now().Add(-time.Minute)

	if _, err := repo.Record(ctx, detectionAt("phone", 0.7, old), "bed"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}
	if _, err := repo.Record(ctx, detectionAt("book", 0.7, fresh), "desk"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}

	recent, err := repo.RecentSince(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("Failed to query sightings: %v", err)
	}
	if len(recent) != 1 || recent[0].Label != "book" {
		t.Errorf("Expected only the fresh sighting, got %+v", recent)
	}
}

func TestSightingRepo_SearchByZone(t *testing.T) {
	repo := NewSightingRepo(setupTestDB(t), 0)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	if _, err := repo.Record(ctx, detectionAt("phone", 0.7, base), "bed-left"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}
	if _, err := repo.Record(ctx, detectionAt("book", 0.7, base.Add(time.Minute)), "desk"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}

	results, err := repo.SearchByZone(ctx, "bed")
	if err != nil {
		t.Fatalf("Failed to search sightings: %v", err)
	}
	if len(results) != 1 || results[0].Label != "phone" {
		t.Errorf("Expected only the bed sighting, got %+v", results)
	}
}

func TestSightingRepo_Labels(t *testing.T) {
	repo := NewSightingRepo(setupTestDB(t), 0)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, label := range []string{"phone", "book", "phone"} {
		ts := base.Add(time.Duration(i) * time.Minute)
		if _, err := repo.Record(ctx, detectionAt(label, 0.7, ts), "bed"); err != nil {
			t.Fatalf("Failed to record sighting: %v", err)
		}
	}

	labels, err := repo.Labels(ctx)
	if err != nil {
		t.Fatalf("Failed to list labels: %v", err)
	}
	if len(labels) != 2 || labels[0] != "book" || labels[1] != "phone" {
		t.Errorf("Expected [book, phone], got %v", labels)
	}
}

func TestSightingRepo_Prune(t *testing.T) {
	repo := NewSightingRepo(setupTestDB(t), 0)
	ctx := context.Background()

	if _, err := repo.Record(ctx, detectionAt("phone", 0.7, time.Now().Add(-48*time.Hour)), "bed"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}
	if _, err := repo.Record(ctx, detectionAt("book", 0.7, time.Now()), "desk"); err != nil {
		t.Fatalf("Failed to record sighting: %v", err)
	}

	pruned, err := repo.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Failed to prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("Expected 1 pruned row, got %d", pruned)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 remaining sighting, got %d", count)
	}
}
