package types

import "time"

// ResponseType classifies why an utterance was produced.
type ResponseType string

const (
	ResponseNormal         ResponseType = "normal"
	ResponseInterpellation ResponseType = "interpellation"
	ResponseDirective      ResponseType = "directive"
	ResponseFallback       ResponseType = "fallback"
	ResponseReaction       ResponseType = "reaction"
)

// Utterance is one spoken contribution, by the user or by a persona.
// Utterances are append-only: once registered they are never mutated.
type Utterance struct {
	ID           string         `json:"id"`
	SpeakerID    string         `json:"speaker_id"`
	Text         string         `json:"text"`
	Timestamp    time.Time      `json:"timestamp"`
	ResponseType ResponseType   `json:"response_type"`
	Emotion      EmotionProfile `json:"emotion,omitempty"`
}

// NewUtterance creates an utterance stamped with the current time.
func NewUtterance(speakerID, text string, rt ResponseType) Utterance {
	return Utterance{
		SpeakerID:    speakerID,
		Text:         text,
		Timestamp:    time.Now(),
		ResponseType: rt,
	}
}

// IsUser reports whether the utterance came from the human participant.
func (u Utterance) IsUser() bool {
	return u.SpeakerID == UserSpeakerID
}
