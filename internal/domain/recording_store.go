package domain

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/Vovarama1992/voicenotes/internal/metrics"
	"github.com/Vovarama1992/voicenotes/internal/models"
	"github.com/Vovarama1992/voicenotes/internal/ports"
	"github.com/google/uuid"
)

// RecordingStore owns every recording session and the single active-session
// pointer. At most one session is recording at any time.
type RecordingStore struct {
	scheduler *TranscriptionScheduler
	finalizer *SessionFinalizer
	bus       ports.EventPublisher
	archive   ports.RecordingArchive
	metrics   *metrics.Metrics
	log       *logger.ZapLogger

	mu       sync.RWMutex
	sessions map[string]*session
	activeID string // empty when idle
}

var _ ports.RecordingService = (*RecordingStore)(nil)

func NewRecordingStore(
	scheduler *TranscriptionScheduler,
	finalizer *SessionFinalizer,
	bus ports.EventPublisher,
	archive ports.RecordingArchive,
	m *metrics.Metrics,
	log *logger.ZapLogger,
) *RecordingStore {
	return &RecordingStore{
		scheduler: scheduler,
		finalizer: finalizer,
		bus:       bus,
		archive:   archive,
		metrics:   m,
		log:       log,
		sessions:  make(map[string]*session),
	}
}

// ========================================================================
// LIFECYCLE
// ========================================================================

func (r *RecordingStore) StartSession(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.activeID != "" {
		id := r.activeID
		r.mu.Unlock()
		return id, ErrAlreadyRecording
	}

	s := newSession(uuid.NewString(), time.Now())
	r.sessions[s.id] = s
	r.activeID = s.id
	r.mu.Unlock()

	r.metrics.RecordSessionStarted()
	r.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "recording started",
		Fields:  map[string]any{"recordingID": s.id},
	})

	r.bus.Broadcast(ports.NewRecordingStartedEvent(s.id, s.startTime))
	return s.id, nil
}

// AppendAudio adds decoded PCM to the active session and gives the scheduler
// a chance to transcribe. It never reports transcription failures.
func (r *RecordingStore) AppendAudio(ctx context.Context, pcm []byte) (string, error) {
	s := r.active()
	if s == nil {
		return "", ErrNoActiveRecording
	}

	audioLen, err := s.append(pcm)
	if errors.Is(err, errSessionSealed) {
		return "", ErrNoActiveRecording
	}
	if err != nil {
		return "", err
	}
	r.metrics.RecordAudio(len(pcm))

	r.scheduler.MaybeTranscribe(context.WithoutCancel(ctx), s)

	r.bus.Broadcast(ports.NewAudioUpdateEvent(
		s.id,
		time.Now(),
		audioLen/stations.BytesPerSample,
		audioSeconds(audioLen),
	))
	return s.id, nil
}

// ReceiveAudio is AppendAudio with auto-start: a chunk arriving while idle
// opens a new session first.
func (r *RecordingStore) ReceiveAudio(ctx context.Context, pcm []byte) (string, error) {
	// a second pass covers a stop or another auto-start racing this one
	for attempt := 0; attempt < 3; attempt++ {
		id, err := r.AppendAudio(ctx, pcm)
		if !errors.Is(err, ErrNoActiveRecording) {
			return id, err
		}
		if _, err := r.StartSession(ctx); err != nil && !errors.Is(err, ErrAlreadyRecording) {
			return "", err
		}
	}
	return "", ErrNoActiveRecording
}

// StopSession seals the active session, releases the active pointer and
// finalizes it. On ErrEncodingFailure the returned summary is still valid
// and the session is completed.
func (r *RecordingStore) StopSession(ctx context.Context) (models.RecordingSummary, error) {
	r.mu.Lock()
	if r.activeID == "" {
		r.mu.Unlock()
		return models.RecordingSummary{}, ErrNoActiveRecording
	}
	s := r.sessions[r.activeID]
	r.activeID = ""
	r.mu.Unlock()

	s.seal()

	r.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "recording stopping",
		Fields:  map[string]any{"recordingID": s.id},
	})

	return r.finalizer.Finalize(context.WithoutCancel(ctx), s)
}

// ========================================================================
// QUERIES
// ========================================================================

func (r *RecordingStore) GetSession(id string) (models.RecordingSummary, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return models.RecordingSummary{}, ErrSessionNotFound
	}
	return s.summary(), nil
}

// ListSessions returns every session, newest start first.
func (r *RecordingStore) ListSessions() []models.RecordingSummary {
	r.mu.RLock()
	all := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	out := make([]models.RecordingSummary, 0, len(all))
	for _, s := range all {
		out = append(out, s.summary())
	}

	slices.SortFunc(out, func(a, b models.RecordingSummary) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (r *RecordingStore) ActiveSessionID() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID, r.activeID != ""
}

func (r *RecordingStore) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ========================================================================
// RESTORE
// ========================================================================

// Restore loads completed recordings kept by the archive. Their audio stays
// on disk; only lengths and transcripts come back into memory.
func (r *RecordingStore) Restore(ctx context.Context) (int, error) {
	if r.archive == nil {
		return 0, nil
	}

	recs, err := r.archive.List(ctx)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, rec := range recs {
		if _, exists := r.sessions[rec.ID]; exists {
			continue
		}
		r.sessions[rec.ID] = restoredSession(rec)
		n++
	}
	return n, nil
}

func restoredSession(rec models.RecordingSummary) *session {
	s := newSession(rec.ID, rec.StartTime)
	s.status = models.StatusCompleted
	s.sealed = true
	s.audioLen = rec.Samples * stations.BytesPerSample
	s.transcripts = append([]models.Transcript{}, rec.Transcripts...)
	if rec.EndTime != nil {
		end := *rec.EndTime
		s.endTime = &end
	}
	if rec.Filename != nil {
		s.outputFile = *rec.Filename
	}
	return s
}

func (r *RecordingStore) active() *session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.activeID == "" {
		return nil
	}
	return r.sessions[r.activeID]
}
