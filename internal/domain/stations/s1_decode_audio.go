package stations

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidAudio = errors.New("invalid audio payload")

// S1DecodeAudio unwraps the device's base64 transport encoding into raw
// s16le PCM. It holds no state.
type S1DecodeAudio struct{}

func NewS1DecodeAudio() *S1DecodeAudio { return &S1DecodeAudio{} }

func (s *S1DecodeAudio) Run(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAudio)
	}

	pcm, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudio, err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidAudio)
	}

	// odd lengths are kept: a sample may straddle two chunks
	return pcm, nil
}
