package domain

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/Vovarama1992/voicenotes/internal/metrics"
	"github.com/Vovarama1992/voicenotes/internal/models"
	"github.com/Vovarama1992/voicenotes/internal/ports"
)

// SessionFinalizer runs the stop-time sequence for a sealed session: flush
// the pending window, write the WAV, mark the session completed. Both
// fallible steps are always attempted and the session always ends completed.
type SessionFinalizer struct {
	scheduler *TranscriptionScheduler
	wav       *stations.S2PCMtoWAV
	outputDir string
	bus       ports.EventPublisher
	archive   ports.RecordingArchive
	metrics   *metrics.Metrics
	log       *logger.ZapLogger
}

func NewSessionFinalizer(
	scheduler *TranscriptionScheduler,
	wav *stations.S2PCMtoWAV,
	outputDir string,
	bus ports.EventPublisher,
	archive ports.RecordingArchive,
	m *metrics.Metrics,
	log *logger.ZapLogger,
) *SessionFinalizer {
	return &SessionFinalizer{
		scheduler: scheduler,
		wav:       wav,
		outputDir: outputDir,
		bus:       bus,
		archive:   archive,
		metrics:   m,
		log:       log,
	}
}

// RecordingFileName is the deterministic WAV name for a recording id.
func RecordingFileName(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("recording_%s.wav", short)
}

func (f *SessionFinalizer) Finalize(ctx context.Context, s *session) (models.RecordingSummary, error) {
	// waits out a threshold-triggered call that is still running
	s.transcribing.Lock()
	defer s.transcribing.Unlock()

	// failures are logged by the scheduler and never fail the stop
	_ = f.scheduler.ForceTranscribe(ctx, s)

	s.mu.Lock()
	audio := s.audio
	s.mu.Unlock()

	name := RecordingFileName(s.id)
	writeErr := f.wav.WriteFile(filepath.Join(f.outputDir, name), audio)

	end := time.Now()
	s.mu.Lock()
	s.endTime = &end
	s.status = models.StatusCompleted
	if writeErr == nil {
		s.outputFile = name
		s.audio = nil
	}
	sum := s.summaryLocked()
	s.mu.Unlock()

	f.metrics.RecordSessionCompleted(float64(sum.Samples) / stations.SampleRate)
	f.bus.Broadcast(ports.NewRecordingStoppedEvent(s.id, end, sum.DurationSeconds))

	if f.archive != nil {
		if err := f.archive.Save(context.WithoutCancel(ctx), sum); err != nil {
			f.log.Log(logger.LogEntry{
				Level:   "error",
				Message: "archive save failed",
				Error:   err,
				Fields:  map[string]any{"recordingID": s.id},
			})
		}
	}

	if writeErr != nil {
		f.metrics.RecordFinalizeError()
		f.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "recording file write failed",
			Error:   writeErr,
			Fields:  map[string]any{"recordingID": s.id, "file": name},
		})
		return sum, fmt.Errorf("%w: %w", ErrEncodingFailure, writeErr)
	}

	f.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "recording finalized",
		Fields: map[string]any{
			"recordingID": s.id,
			"file":        name,
			"seconds":     sum.DurationSeconds,
			"transcripts": len(sum.Transcripts),
		},
	})
	return sum, nil
}
