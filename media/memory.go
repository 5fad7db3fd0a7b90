package media

import (
	"context"
	"sync"
)

// PublishedFrame records one audio publication on the in-memory plane.
type PublishedFrame struct {
	SpeakerID string
	PCM       []byte
}

// MemoryPlane is the in-process Plane used in tests and local runs. It
// records every published frame and lets the caller inject events.
type MemoryPlane struct {
	mu       sync.Mutex
	meta     RoomMetadata
	frames   []PublishedFrame
	events   chan Event
	closed   bool
	PublishE error // when set, PublishPCM fails with this error
}

// NewMemoryPlane creates an in-memory plane with the given room metadata.
func NewMemoryPlane(meta RoomMetadata) *MemoryPlane {
	return &MemoryPlane{
		meta:   meta,
		events: make(chan Event, 16),
	}
}

// PublishPCM records the frame.
func (m *MemoryPlane) PublishPCM(_ context.Context, speakerID string, pcm []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishE != nil {
		return m.PublishE
	}
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	m.frames = append(m.frames, PublishedFrame{SpeakerID: speakerID, PCM: buf})
	return nil
}

// Metadata returns the configured room metadata.
func (m *MemoryPlane) Metadata(_ context.Context) (RoomMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta, nil
}

// Events returns the injectable event stream.
func (m *MemoryPlane) Events() <-chan Event { return m.events }

// Inject pushes a participant event to subscribers.
func (m *MemoryPlane) Inject(ev Event) {
	m.events <- ev
}

// Frames returns a copy of everything published so far.
func (m *MemoryPlane) Frames() []PublishedFrame {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedFrame, len(m.frames))
	copy(out, m.frames)
	return out
}

// Speakers returns the speaker ids of published frames, in order.
func (m *MemoryPlane) Speakers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.frames))
	for i, f := range m.frames {
		out[i] = f.SpeakerID
	}
	return out
}

// Close closes the event stream.
func (m *MemoryPlane) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	return nil
}
