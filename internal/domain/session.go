package domain

import (
	"sync"
	"time"

	"github.com/Vovarama1992/voicenotes/internal/domain/stations"
	"github.com/Vovarama1992/voicenotes/internal/models"
)

// session is owned by RecordingStore and never leaves the domain package;
// callers get models.RecordingSummary copies.
type session struct {
	id        string
	startTime time.Time

	// held for the whole duration of an STT call on this session
	transcribing sync.Mutex

	mu          sync.Mutex
	status      models.RecordingStatus
	sealed      bool
	audio       []byte
	audioLen    int
	pending     []byte
	transcripts []models.Transcript
	endTime     *time.Time
	outputFile  string
}

func newSession(id string, start time.Time) *session {
	return &session{
		id:        id,
		startTime: start,
		status:    models.StatusRecording,
	}
}

// append adds pcm to both buffers and returns the new audio length.
func (s *session) append(pcm []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed || s.status != models.StatusRecording {
		return 0, errSessionSealed
	}
	s.audio = append(s.audio, pcm...)
	s.pending = append(s.pending, pcm...)
	s.audioLen += len(pcm)
	return s.audioLen, nil
}

func (s *session) seal() {
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()
}

func (s *session) pendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *session) summary() models.RecordingSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *session) summaryLocked() models.RecordingSummary {
	sum := models.RecordingSummary{
		ID:              s.id,
		StartTime:       s.startTime,
		Status:          s.status,
		DurationSeconds: audioSeconds(s.audioLen),
		Samples:         s.audioLen / stations.BytesPerSample,
		Transcripts:     append([]models.Transcript{}, s.transcripts...),
	}
	if s.endTime != nil {
		end := *s.endTime
		sum.EndTime = &end
	}
	if s.outputFile != "" {
		name := s.outputFile
		sum.Filename = &name
	}
	return sum
}

// dropPrefix returns buf without its first n bytes, on fresh backing memory.
func dropPrefix(buf []byte, n int) []byte {
	if n >= len(buf) {
		return nil
	}
	rest := make([]byte, len(buf)-n)
	copy(rest, buf[n:])
	return rest
}

func audioSeconds(bytes int) int {
	return bytes / stations.BytesPerSecond
}
