package domain

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/Vovarama1992/voicenotes/internal/metrics"
	"github.com/Vovarama1992/voicenotes/internal/models"
	"github.com/Vovarama1992/voicenotes/internal/ports"
)

// DefaultThresholdBytes is three seconds of 16 kHz mono s16le audio.
const DefaultThresholdBytes = 3 * stations.BytesPerSecond

type SchedulerConfig struct {
	ThresholdBytes int
	// MaxPendingBytes caps a window that keeps failing. Zero keeps every
	// untranscribed byte until a call succeeds.
	MaxPendingBytes int
}

type TranscriptionScheduler struct {
	s3      *stations.S3WAVtoText
	bus     ports.EventPublisher
	metrics *metrics.Metrics
	log     *logger.ZapLogger
	cfg     SchedulerConfig
}

func NewTranscriptionScheduler(
	s3 *stations.S3WAVtoText,
	bus ports.EventPublisher,
	m *metrics.Metrics,
	log *logger.ZapLogger,
	cfg SchedulerConfig,
) *TranscriptionScheduler {
	if cfg.ThresholdBytes <= 0 {
		cfg.ThresholdBytes = DefaultThresholdBytes
	}
	return &TranscriptionScheduler{s3: s3, bus: bus, metrics: m, log: log, cfg: cfg}
}

// MaybeTranscribe transcribes the pending window of s while it is at or over
// the threshold. When a transcription of s is already running it returns at
// once: the running caller re-checks the threshold before letting go.
func (t *TranscriptionScheduler) MaybeTranscribe(ctx context.Context, s *session) {
	if !s.transcribing.TryLock() {
		return
	}
	defer s.transcribing.Unlock()

	for s.pendingLen() >= t.cfg.ThresholdBytes {
		if err := t.transcribe(ctx, s); err != nil {
			return
		}
	}
}

// ForceTranscribe makes one attempt on a non-empty pending window regardless
// of the threshold. The caller must hold s.transcribing.
func (t *TranscriptionScheduler) ForceTranscribe(ctx context.Context, s *session) error {
	if s.pendingLen() == 0 {
		return nil
	}
	return t.transcribe(ctx, s)
}

func (t *TranscriptionScheduler) transcribe(ctx context.Context, s *session) error {
	s.mu.Lock()
	window := bytes.Clone(s.pending)
	s.mu.Unlock()

	start := time.Now()
	text, err := t.s3.Run(ctx, s.id, window)
	t.metrics.RecordTranscription(err == nil, time.Since(start).Seconds())

	if err != nil {
		dropped := t.capPending(s)
		t.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "transcription failed, window kept for retry",
			Error:   err,
			Fields: map[string]any{
				"recordingID": s.id,
				"windowBytes": len(window),
				"dropped":     dropped,
			},
		})
		return fmt.Errorf("%w: %w", ErrTranscriptionFailure, err)
	}

	at := time.Now()
	s.mu.Lock()
	s.transcripts = append(s.transcripts, models.Transcript{Text: text, Timestamp: at})
	// bytes appended while the call was running stay pending
	s.pending = dropPrefix(s.pending, len(window))
	s.mu.Unlock()

	t.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "transcription added",
		Fields: map[string]any{
			"recordingID": s.id,
			"windowBytes": len(window),
			"chars":       len(text),
		},
	})

	t.bus.Broadcast(ports.NewTranscriptionEvent(s.id, at, text))
	return nil
}

// capPending trims the oldest bytes of a failed window down to
// MaxPendingBytes and reports how many were discarded.
func (t *TranscriptionScheduler) capPending(s *session) int {
	if t.cfg.MaxPendingBytes <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	over := len(s.pending) - t.cfg.MaxPendingBytes
	if over <= 0 {
		return 0
	}
	s.pending = dropPrefix(s.pending, over)
	t.metrics.RecordPendingDropped(over)
	return over
}
