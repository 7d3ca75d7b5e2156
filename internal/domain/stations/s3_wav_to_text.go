package stations

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicenotes/internal/ports"
)

// S3WAVtoText sends one pending window to the STT port. The window is
// materialised as a temporary WAV clip which is removed on every exit path.
type S3WAVtoText struct {
	stt     ports.STTService
	wav     *S2PCMtoWAV
	tempDir string
	log     *logger.ZapLogger
}

func NewS3WAVtoText(stt ports.STTService, wav *S2PCMtoWAV, tempDir string, log *logger.ZapLogger) *S3WAVtoText {
	return &S3WAVtoText{stt: stt, wav: wav, tempDir: tempDir, log: log}
}

func (s *S3WAVtoText) Run(ctx context.Context, recordingID string, pcm []byte) (string, error) {
	start := time.Now()

	f, err := os.CreateTemp(s.tempDir, fmt.Sprintf("temp_%s_*.wav", recordingID))
	if err != nil {
		return "", fmt.Errorf("create clip: %w", err)
	}
	path := f.Name()
	defer func() {
		f.Close()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.log.Log(logger.LogEntry{
				Level:   "warn",
				Message: "clip cleanup failed",
				Error:   err,
				Fields:  map[string]any{"path": path},
			})
		}
	}()

	if err := s.wav.Encode(f, pcm); err != nil {
		return "", fmt.Errorf("encode clip: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind clip: %w", err)
	}

	txt, err := s.stt.Recognize(ctx, filepath.Base(path), f)
	if err != nil {
		return "", err
	}

	s.log.Log(logger.LogEntry{
		Level:   "debug",
		Message: "clip transcribed",
		Fields: map[string]any{
			"recordingID": recordingID,
			"bytes":       len(pcm),
			"dur":         time.Since(start).String(),
		},
	})
	return txt, nil
}
