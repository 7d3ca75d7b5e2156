package domain

import "errors"

var (
	ErrNoActiveRecording    = errors.New("no active recording")
	ErrAlreadyRecording     = errors.New("recording already in progress")
	ErrSessionNotFound      = errors.New("recording not found")
	ErrTranscriptionFailure = errors.New("transcription failed")
	ErrEncodingFailure      = errors.New("audio encoding failed")

	errSessionSealed = errors.New("session sealed")
)
