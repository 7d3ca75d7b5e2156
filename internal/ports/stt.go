package ports

import (
	"context"
	"io"
)

// STTService turns one playable WAV clip into text. name is the clip's file
// name and is only used by providers that upload multipart forms.
type STTService interface {
	Recognize(ctx context.Context, name string, clip io.Reader) (string, error)
}
