package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// BridgeConfig configures the websocket connection to the media gateway.
type BridgeConfig struct {
	URL            string        `yaml:"url" json:"url"`
	DialTimeout    time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
	EventBufferLen int           `yaml:"event_buffer_len" json:"event_buffer_len"`
}

// DefaultBridgeConfig returns the gateway connection defaults.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		DialTimeout:    5 * time.Second,
		EventBufferLen: 16,
	}
}

// gatewayMessage is the envelope exchanged with the media gateway.
type gatewayMessage struct {
	Type        string        `json:"type"` // "room", "join", "leave", "audio", "transcript"
	Metadata    *RoomMetadata `json:"metadata,omitempty"`
	Participant string        `json:"participant,omitempty"`
	SpeakerID   string        `json:"speaker_id,omitempty"`
	PCMBase64   string        `json:"pcm_base64,omitempty"`
	Text        string        `json:"text,omitempty"`
	Language    string        `json:"language,omitempty"`
}

// Bridge is the websocket-backed Plane. The gateway pushes room metadata
// on connect and participant events afterwards; audio goes out as JSON
// envelopes carrying base64 PCM.
type Bridge struct {
	cfg    BridgeConfig
	logger *zap.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	meta        RoomMetadata
	hasMD       bool
	closed      bool
	done        chan struct{}
	events      chan Event
	transcripts chan Transcript
	mdCh        chan struct{}
}

// NewBridge creates an unconnected bridge; call Connect before use.
func NewBridge(cfg BridgeConfig, logger *zap.Logger) *Bridge {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.EventBufferLen == 0 {
		cfg.EventBufferLen = 16
	}
	return &Bridge{
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "media")),
		done:        make(chan struct{}),
		events:      make(chan Event, cfg.EventBufferLen),
		transcripts: make(chan Transcript, cfg.EventBufferLen),
		mdCh:        make(chan struct{}),
	}
}

// Connect dials the gateway and starts the read loop.
func (b *Bridge) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, b.cfg.DialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, b.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("media gateway connect: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()

	go b.readLoop(ctx)
	b.logger.Info("connected to media gateway", zap.String("url", b.cfg.URL))
	return nil
}

// PublishPCM sends one audio frame to the gateway.
func (b *Bridge) PublishPCM(ctx context.Context, speakerID string, pcm []byte) error {
	b.mu.Lock()
	conn := b.conn
	closed := b.closed
	b.mu.Unlock()

	if closed {
		return fmt.Errorf("media bridge is closed")
	}
	if conn == nil {
		return fmt.Errorf("media bridge is not connected")
	}

	payload, _ := json.Marshal(gatewayMessage{
		Type:      "audio",
		SpeakerID: speakerID,
		PCMBase64: base64.StdEncoding.EncodeToString(pcm),
	})
	return conn.Write(ctx, websocket.MessageText, payload)
}

// Metadata waits for the gateway's room message and returns it.
func (b *Bridge) Metadata(ctx context.Context) (RoomMetadata, error) {
	b.mu.Lock()
	if b.hasMD {
		meta := b.meta
		b.mu.Unlock()
		return meta, nil
	}
	b.mu.Unlock()

	select {
	case <-ctx.Done():
		return RoomMetadata{}, ctx.Err()
	case <-b.done:
		return RoomMetadata{}, fmt.Errorf("media bridge is closed")
	case <-b.mdCh:
		b.mu.Lock()
		meta := b.meta
		b.mu.Unlock()
		return meta, nil
	}
}

// Events returns the participant event stream.
func (b *Bridge) Events() <-chan Event { return b.events }

// Transcripts returns the stream of final user utterances recognized by
// the gateway.
func (b *Bridge) Transcripts() <-chan Transcript { return b.transcripts }

// Close shuts the connection and the event stream.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	conn := b.conn
	b.mu.Unlock()

	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "closing")
	}
	return nil
}

func (b *Bridge) readLoop(ctx context.Context) {
	defer close(b.events)
	defer close(b.transcripts)

	for {
		b.mu.Lock()
		conn := b.conn
		closed := b.closed
		b.mu.Unlock()
		if closed || conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			select {
			case <-b.done:
			case <-ctx.Done():
			default:
				b.logger.Warn("media gateway read failed", zap.Error(err))
			}
			return
		}

		var msg gatewayMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.logger.Warn("unparseable gateway message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "room":
			if msg.Metadata != nil {
				b.mu.Lock()
				first := !b.hasMD
				b.meta = *msg.Metadata
				b.hasMD = true
				b.mu.Unlock()
				if first {
					close(b.mdCh)
				}
			}
		case "join":
			b.push(Event{Type: EventJoin, Participant: msg.Participant})
		case "leave":
			b.push(Event{Type: EventLeave, Participant: msg.Participant})
		case "transcript":
			select {
			case b.transcripts <- Transcript{SpeakerID: msg.SpeakerID, Text: msg.Text, Language: msg.Language}:
			default:
				b.logger.Warn("transcript buffer full, dropping utterance",
					zap.String("speaker", msg.SpeakerID),
				)
			}
		}
	}
}

func (b *Bridge) push(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Warn("event buffer full, dropping event",
			zap.String("type", string(ev.Type)),
		)
	}
}
