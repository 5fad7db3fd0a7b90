// Package conversation holds the per-session rolling memory: bounded
// utterance history, last-response registry, turn cursor and the
// repetition guard that keeps a persona from saying the same thing twice.
package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
)

// RepetitionThreshold is the maximum accepted similarity between two
// consecutive utterances of the same persona.
const RepetitionThreshold = 0.85

// Config bounds the session memory.
type Config struct {
	MaxHistory     int `yaml:"max_history" json:"max_history"`
	NoRepeatWindow int `yaml:"no_repeat_window" json:"no_repeat_window"`
}

// DefaultConfig returns the production memory bounds.
func DefaultConfig() Config {
	return Config{
		MaxHistory:     32,
		NoRepeatWindow: 1,
	}
}

// Memory is the append-only conversation log for one session.
type Memory struct {
	mu          sync.Mutex
	cfg         Config
	history     []types.Utterance
	lastByAgent map[string]string
	lastSpoken  map[string]time.Time
	turnCursor  string
	userTurns   int
	logger      *zap.Logger
	now         func() time.Time
}

// NewMemory creates an empty session memory.
func NewMemory(cfg Config, logger *zap.Logger) *Memory {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 32
	}
	if cfg.NoRepeatWindow <= 0 {
		cfg.NoRepeatWindow = 1
	}
	return &Memory{
		cfg:         cfg,
		lastByAgent: make(map[string]string),
		lastSpoken:  make(map[string]time.Time),
		logger:      logger.With(zap.String("component", "conversation")),
		now:         time.Now,
	}
}

// Register appends an utterance to the history. A persona utterance too
// similar to that persona's previous one is rejected with a repetition
// error so the caller can regenerate; user utterances are never rejected.
func (m *Memory) Register(u types.Utterance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !u.IsUser() {
		if last, ok := m.lastByAgent[u.SpeakerID]; ok {
			if sim := Similarity(last, u.Text); sim > RepetitionThreshold {
				m.logger.Warn("repetition guard rejected utterance",
					zap.String("persona_id", u.SpeakerID),
					zap.Float64("similarity", sim),
				)
				return types.NewError(types.ErrInvariantViolation, "utterance repeats previous response").
					WithRetryable(true)
			}
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = m.now()
	}

	m.history = append(m.history, u)
	if len(m.history) > m.cfg.MaxHistory {
		m.history = m.history[len(m.history)-m.cfg.MaxHistory:]
	}

	if u.IsUser() {
		m.userTurns++
	} else {
		m.lastByAgent[u.SpeakerID] = u.Text
		m.lastSpoken[u.SpeakerID] = u.Timestamp
	}
	return nil
}

// LastUtterance returns the last registered text for a persona.
func (m *Memory) LastUtterance(personaID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.lastByAgent[personaID]
	return text, ok
}

// AdvanceTurn moves the floor to the given persona.
func (m *Memory) AdvanceTurn(personaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turnCursor = personaID
}

// TurnCursor returns the current floor holder ("" before the first turn).
func (m *Memory) TurnCursor() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.turnCursor
}

// Recent returns up to k most recent utterances, oldest first.
func (m *Memory) Recent(k int) []types.Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()

	if k <= 0 || k > len(m.history) {
		k = len(m.history)
	}
	out := make([]types.Utterance, k)
	copy(out, m.history[len(m.history)-k:])
	return out
}

// Participation counts registered utterances per persona.
func (m *Memory) Participation() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int)
	for _, u := range m.history {
		if !u.IsUser() {
			out[u.SpeakerID]++
		}
	}
	return out
}

// UserTurns counts user utterances registered this session.
func (m *Memory) UserTurns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userTurns
}

// SpokeWithin reports whether the persona produced an utterance within the
// given window. Used by the self-dialogue guard.
func (m *Memory) SpokeWithin(personaID string, window time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	at, ok := m.lastSpoken[personaID]
	if !ok {
		return false
	}
	return m.now().Sub(at) < window
}

// ShareOfRecent returns the fraction of the last n persona utterances
// spoken by personaID. Used to cap monopolization.
func (m *Memory) ShareOfRecent(personaID string, n int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	count, total := 0, 0
	for i := len(m.history) - 1; i >= 0 && total < n; i-- {
		u := m.history[i]
		if u.IsUser() {
			continue
		}
		total++
		if u.SpeakerID == personaID {
			count++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// NoRepeatWindow returns the configured rotation hold-off.
func (m *Memory) NoRepeatWindow() int {
	return m.cfg.NoRepeatWindow
}

// LastSpeakers returns the persona ids of the most recent n persona
// utterances, newest first.
func (m *Memory) LastSpeakers(n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for i := len(m.history) - 1; i >= 0 && len(out) < n; i-- {
		if !m.history[i].IsUser() {
			out = append(out, m.history[i].SpeakerID)
		}
	}
	return out
}

// Similarity scores two texts in [0,1] over their word sequences.
func Similarity(a, b string) float64 {
	aw := strings.Fields(strings.ToLower(a))
	bw := strings.Fields(strings.ToLower(b))
	if len(aw) == 0 && len(bw) == 0 {
		return 1
	}
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	return difflib.NewMatcher(aw, bw).Ratio()
}
