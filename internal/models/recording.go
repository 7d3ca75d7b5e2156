package models

import "time"

type RecordingStatus string

const (
	StatusRecording RecordingStatus = "recording"
	StatusCompleted RecordingStatus = "completed"
)

// RecordingSummary is the read model of a recording session. It is a copy:
// mutating it never touches the session it was taken from.
type RecordingSummary struct {
	ID              string          `json:"id"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         *time.Time      `json:"end_time"`
	Status          RecordingStatus `json:"status"`
	DurationSeconds int             `json:"duration_seconds"`
	Samples         int             `json:"samples"`
	Transcripts     []Transcript    `json:"transcripts"`
	Filename        *string         `json:"filename"`
}
