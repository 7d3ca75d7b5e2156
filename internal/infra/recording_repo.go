package infra

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/Vovarama1992/voicenotes/internal/models"
	"github.com/Vovarama1992/voicenotes/internal/ports"
)

type SQLiteRecordingRepo struct {
	db *sql.DB
}

func NewSQLiteRecordingRepo(db *sql.DB) ports.RecordingArchive {
	return &SQLiteRecordingRepo{db: db}
}

// Save replaces the stored copy of rec, transcripts included.
func (r *SQLiteRecordingRepo) Save(ctx context.Context, rec models.RecordingSummary) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	var end sql.NullInt64
	if rec.EndTime != nil {
		end = sql.NullInt64{Int64: rec.EndTime.UnixNano(), Valid: true}
	}
	var filename sql.NullString
	if rec.Filename != nil {
		filename = sql.NullString{String: *rec.Filename, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recordings (id, start_time, end_time, status, samples, filename)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_time = excluded.start_time,
			end_time   = excluded.end_time,
			status     = excluded.status,
			samples    = excluded.samples,
			filename   = excluded.filename
	`, rec.ID, rec.StartTime.UnixNano(), end, string(rec.Status), rec.Samples, filename)
	if err != nil {
		return fmt.Errorf("upsert recording: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM transcripts WHERE recording_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clear transcripts: %w", err)
	}

	for i, t := range rec.Transcripts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transcripts (recording_id, seq, text, created_at)
			VALUES (?, ?, ?, ?)
		`, rec.ID, i, t.Text, t.Timestamp.UnixNano())
		if err != nil {
			return fmt.Errorf("insert transcript: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// List returns every archived recording, newest first.
func (r *SQLiteRecordingRepo) List(ctx context.Context) ([]models.RecordingSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, start_time, end_time, status, samples, filename
		FROM recordings
		ORDER BY start_time DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	var recs []models.RecordingSummary
	index := map[string]int{}

	for rows.Next() {
		var (
			rec      models.RecordingSummary
			start    int64
			end      sql.NullInt64
			status   string
			filename sql.NullString
		)
		if err := rows.Scan(&rec.ID, &start, &end, &status, &rec.Samples, &filename); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}

		rec.StartTime = time.Unix(0, start)
		if end.Valid {
			t := time.Unix(0, end.Int64)
			rec.EndTime = &t
		}
		rec.Status = models.RecordingStatus(status)
		if filename.Valid {
			name := filename.String
			rec.Filename = &name
		}
		rec.DurationSeconds = rec.Samples / stations.SampleRate
		rec.Transcripts = []models.Transcript{}

		index[rec.ID] = len(recs)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trows, err := r.db.QueryContext(ctx, `
		SELECT recording_id, text, created_at
		FROM transcripts
		ORDER BY recording_id, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer trows.Close()

	for trows.Next() {
		var (
			id, text string
			at       int64
		)
		if err := trows.Scan(&id, &text, &at); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		recs[i].Transcripts = append(recs[i].Transcripts, models.Transcript{
			Text:      text,
			Timestamp: time.Unix(0, at),
		})
	}
	return recs, trows.Err()
}
