package infra

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Vovarama1992/voicenotes/internal/models"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecordingRepoSaveAndList(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "archive", "recordings.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLiteRecordingRepo(db)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := base.Add(5 * time.Second)
	name := "recording_11111111.wav"

	older := models.RecordingSummary{
		ID:        "11111111-aaaa",
		StartTime: base,
		EndTime:   &end,
		Status:    models.StatusCompleted,
		Samples:   80000,
		Filename:  &name,
		Transcripts: []models.Transcript{
			{Text: "first", Timestamp: base.Add(3 * time.Second)},
			{Text: "second", Timestamp: base.Add(5 * time.Second)},
		},
	}
	newerEnd := base.Add(time.Minute)
	newer := models.RecordingSummary{
		ID:        "22222222-bbbb",
		StartTime: base.Add(50 * time.Second),
		EndTime:   &newerEnd,
		Status:    models.StatusCompleted,
		Samples:   100,
	}

	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))

	recs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	require.Equal(t, newer.ID, recs[0].ID)
	require.Nil(t, recs[0].Filename)
	require.Empty(t, recs[0].Transcripts)
	require.NotNil(t, recs[0].Transcripts)

	got := recs[1]
	require.Equal(t, older.ID, got.ID)
	require.True(t, got.StartTime.Equal(base))
	require.True(t, got.EndTime.Equal(end))
	require.Equal(t, models.StatusCompleted, got.Status)
	require.Equal(t, 80000, got.Samples)
	require.Equal(t, 5, got.DurationSeconds)
	require.Equal(t, name, *got.Filename)
	require.Len(t, got.Transcripts, 2)
	require.Equal(t, "first", got.Transcripts[0].Text)
	require.Equal(t, "second", got.Transcripts[1].Text)
	require.True(t, got.Transcripts[1].Timestamp.Equal(base.Add(5*time.Second)))
}

func TestSQLiteRecordingRepoSaveReplaces(t *testing.T) {
	ctx := context.Background()

	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "r.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := NewSQLiteRecordingRepo(db)
	rec := models.RecordingSummary{
		ID:          "abc",
		StartTime:   time.Now(),
		Status:      models.StatusCompleted,
		Transcripts: []models.Transcript{{Text: "one", Timestamp: time.Now()}},
	}
	require.NoError(t, repo.Save(ctx, rec))

	rec.Samples = 32000
	rec.Transcripts = nil
	require.NoError(t, repo.Save(ctx, rec))

	recs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, 32000, recs[0].Samples)
	require.Empty(t, recs[0].Transcripts)
}

func TestOpenSQLiteReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "r.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteRecordingRepo(db).Save(ctx, models.RecordingSummary{
		ID: "keep", StartTime: time.Now(), Status: models.StatusCompleted,
	}))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	recs, err := NewSQLiteRecordingRepo(db).List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "keep", recs[0].ID)
}
