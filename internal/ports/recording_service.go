package ports

import (
	"context"

	"github.com/Vovarama1992/voicenotes/internal/models"
)

type RecordingService interface {
	StartSession(ctx context.Context) (string, error)
	ReceiveAudio(ctx context.Context, pcm []byte) (string, error)
	StopSession(ctx context.Context) (models.RecordingSummary, error)
	GetSession(id string) (models.RecordingSummary, error)
	ListSessions() []models.RecordingSummary
	ActiveSessionID() (string, bool)
	SessionCount() int
}
