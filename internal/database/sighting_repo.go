package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kdimtricp/zonewatch/internal/models"
)

// DedupWindow is the default interval within which a repeat sighting of the
// same (label, zone) pair updates the previous record instead of inserting a
// new one, so a stationary object does not flood the history frame by frame.
const DedupWindow = 5 * time.Second

// timeLayout is RFC 3339 with fixed-width fractional seconds, so string
// order in SQLite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SightingRepo struct {
	db     *DB
	window time.Duration
}

func NewSightingRepo(db *DB, window time.Duration) *SightingRepo {
	if window <= 0 {
		window = DedupWindow
	}
	return &SightingRepo{db: db, window: window}
}

// Record appends a sighting for the detection in the given zone. The
// was-this-just-seen check and the write happen in one transaction to keep
// the single-writer read-modify-write atomic.
func (r *SightingRepo) Record(ctx context.Context, det models.Detection, zoneName string) (*models.Sighting, error) {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		lastID   int64
		lastTS   string
		lastConf float64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, timestamp, confidence FROM sightings
		WHERE label = ? AND zone_name = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`, det.Label, zoneName).Scan(&lastID, &lastTS, &lastConf)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query last sighting: %w", err)
	}

	if err == nil {
		last, perr := time.Parse(timeLayout, lastTS)
		if perr == nil {
			gap := det.Timestamp.Sub(last)
			if gap >= 0 && gap <= r.window {
				conf := lastConf
				if det.Confidence > conf {
					conf = det.Confidence
				}
				_, err := tx.ExecContext(ctx, `
					UPDATE sightings SET timestamp = ?, confidence = ?
					WHERE id = ?`,
					det.Timestamp.UTC().Format(timeLayout), conf, lastID)
				if err != nil {
					return nil, fmt.Errorf("failed to update sighting: %w", err)
				}
				if err := tx.Commit(); err != nil {
					return nil, fmt.Errorf("failed to commit sighting: %w", err)
				}
				return &models.Sighting{
					ID:         lastID,
					Label:      det.Label,
					ZoneName:   zoneName,
					Timestamp:  det.Timestamp,
					Confidence: conf,
				}, nil
			}
		}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sightings (label, zone_name, timestamp, confidence)
		VALUES (?, ?, ?, ?)`,
		det.Label, zoneName, det.Timestamp.UTC().Format(timeLayout), det.Confidence)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sighting: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get sighting id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit sighting: %w", err)
	}

	return &models.Sighting{
		ID:         id,
		Label:      det.Label,
		ZoneName:   zoneName,
		Timestamp:  det.Timestamp,
		Confidence: det.Confidence,
	}, nil
}

// QueryByLabel returns the sighting history for one label, most recent first.
func (r *SightingRepo) QueryByLabel(ctx context.Context, label string, limit int) ([]models.Sighting, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, label, zone_name, timestamp, confidence FROM sightings
		WHERE label = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, label, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	return scanSightings(rows)
}

// Recent returns the last n sightings across all labels, most recent first.
func (r *SightingRepo) Recent(ctx context.Context, n int) ([]models.Sighting, error) {
	if n <= 0 {
		n = 50
	}
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, label, zone_name, timestamp, confidence FROM sightings
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent sightings: %w", err)
	}
	defer rows.Close()

	return scanSightings(rows)
}

// RecentSince returns sightings newer than the cutoff, most recent first.
func (r *SightingRepo) RecentSince(ctx context.Context, cutoff time.Time, limit int) ([]models.Sighting, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, label, zone_name, timestamp, confidence FROM sightings
		WHERE timestamp > ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, cutoff.UTC().Format(timeLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings since cutoff: %w", err)
	}
	defer rows.Close()

	return scanSightings(rows)
}

// SearchByZone returns sightings whose zone name contains the keyword,
// most recent first.
func (r *SightingRepo) SearchByZone(ctx context.Context, zoneKeyword string) ([]models.Sighting, error) {
	pattern := "%" + zoneKeyword + "%"
	rows, err := r.db.conn.QueryContext(ctx, `
		SELECT id, label, zone_name, timestamp, confidence FROM sightings
		WHERE zone_name LIKE ?
		ORDER BY timestamp DESC, id DESC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search sightings by zone: %w", err)
	}
	defer rows.Close()

	return scanSightings(rows)
}

// Labels returns every distinct object label ever recorded.
func (r *SightingRepo) Labels(ctx context.Context) ([]string, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT DISTINCT label FROM sightings ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

// Count returns the total number of sighting records.
func (r *SightingRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sightings: %w", err)
	}
	return count, nil
}

// Prune deletes sightings older than the cutoff and reports how many rows
// were removed.
func (r *SightingRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM sightings WHERE timestamp < ?`,
		olderThan.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune sightings: %w", err)
	}
	return res.RowsAffected()
}

func scanSightings(rows *sql.Rows) ([]models.Sighting, error) {
	var sightings []models.Sighting
	for rows.Next() {
		var (
			s  models.Sighting
			ts string
		)
		if err := rows.Scan(&s.ID, &s.Label, &s.ZoneName, &ts, &s.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		parsed, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sighting timestamp: %w", err)
		}
		s.Timestamp = parsed
		sightings = append(sightings, s)
	}
	return sightings, rows.Err()
}
