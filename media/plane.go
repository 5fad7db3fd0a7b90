// Package media abstracts the real-time media fabric the orchestrator
// publishes audio into. The fabric itself is external; only this narrow
// surface matters here.
package media

import "context"

// RoomMetadata is what the media plane knows about a session's room.
type RoomMetadata struct {
	ExerciseType string `json:"exercise_type"`
	UserName     string `json:"user_name,omitempty"`
	UserSubject  string `json:"user_subject,omitempty"`
}

// Transcript is one final user utterance, as recognized by the
// gateway's speech-to-text stage.
type Transcript struct {
	SpeakerID string `json:"speaker_id"`
	Text      string `json:"text"`
	Language  string `json:"language,omitempty"`
}

// EventType classifies participant events.
type EventType string

const (
	EventJoin  EventType = "join"
	EventLeave EventType = "leave"
)

// Event is a participant join or leave notification.
type Event struct {
	Type        EventType `json:"type"`
	Participant string    `json:"participant"`
}

// Plane is the orchestrator's view of the media fabric: publish PCM
// 16 kHz mono frames, read room metadata, observe participant events.
type Plane interface {
	PublishPCM(ctx context.Context, speakerID string, pcm []byte) error
	Metadata(ctx context.Context) (RoomMetadata, error)
	Events() <-chan Event
	Close() error
}
