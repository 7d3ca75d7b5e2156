package ports

import (
	"context"

	"github.com/Vovarama1992/voicenotes/internal/models"
)

// RecordingArchive keeps completed recordings across restarts.
type RecordingArchive interface {
	Save(ctx context.Context, rec models.RecordingSummary) error
	List(ctx context.Context) ([]models.RecordingSummary, error)
}
