package ports

import "time"

type EventType string

const (
	EventConnected        EventType = "connected"
	EventRecordingStarted EventType = "recording_started"
	EventRecordingStopped EventType = "recording_stopped"
	EventAudioUpdate      EventType = "audio_update"
	EventTranscription    EventType = "transcription"
)

// Event is anything the live channel pushes to viewers. Implementations are
// plain JSON structs discriminated by their "type" field.
type Event interface {
	EventType() EventType
}

// EventPublisher fans an event out to every live viewer. It never reports
// delivery failures.
type EventPublisher interface {
	Broadcast(ev Event)
}

type ConnectedEvent struct {
	Type             EventType `json:"type"`
	CurrentRecording *string   `json:"current_recording"`
	TotalRecordings  int       `json:"total_recordings"`
}

func NewConnectedEvent(current string, active bool, total int) ConnectedEvent {
	ev := ConnectedEvent{Type: EventConnected, TotalRecordings: total}
	if active {
		ev.CurrentRecording = &current
	}
	return ev
}

func (e ConnectedEvent) EventType() EventType { return e.Type }

type RecordingStartedEvent struct {
	Type        EventType `json:"type"`
	RecordingID string    `json:"recording_id"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewRecordingStartedEvent(id string, at time.Time) RecordingStartedEvent {
	return RecordingStartedEvent{Type: EventRecordingStarted, RecordingID: id, Timestamp: at}
}

func (e RecordingStartedEvent) EventType() EventType { return e.Type }

type RecordingStoppedEvent struct {
	Type        EventType `json:"type"`
	RecordingID string    `json:"recording_id"`
	Timestamp   time.Time `json:"timestamp"`
	Duration    int       `json:"duration"`
}

func NewRecordingStoppedEvent(id string, at time.Time, duration int) RecordingStoppedEvent {
	return RecordingStoppedEvent{Type: EventRecordingStopped, RecordingID: id, Timestamp: at, Duration: duration}
}

func (e RecordingStoppedEvent) EventType() EventType { return e.Type }

type AudioUpdateEvent struct {
	Type        EventType `json:"type"`
	RecordingID string    `json:"recording_id"`
	Timestamp   time.Time `json:"timestamp"`
	Samples     int       `json:"samples"`
	Duration    int       `json:"duration"`
}

func NewAudioUpdateEvent(id string, at time.Time, samples, duration int) AudioUpdateEvent {
	return AudioUpdateEvent{Type: EventAudioUpdate, RecordingID: id, Timestamp: at, Samples: samples, Duration: duration}
}

func (e AudioUpdateEvent) EventType() EventType { return e.Type }

type TranscriptionEvent struct {
	Type        EventType `json:"type"`
	RecordingID string    `json:"recording_id"`
	Timestamp   time.Time `json:"timestamp"`
	Text        string    `json:"text"`
}

func NewTranscriptionEvent(id string, at time.Time, text string) TranscriptionEvent {
	return TranscriptionEvent{Type: EventTranscription, RecordingID: id, Timestamp: at, Text: text}
}

func (e TranscriptionEvent) EventType() EventType { return e.Type }
