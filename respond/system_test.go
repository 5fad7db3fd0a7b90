package respond

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
)

type stubResponder struct {
	mu        sync.Mutex
	calls     []string // persona ids in processing order
	tights    []bool
	failFor   map[string]int // persona id -> remaining failures
	fallbacks []string
	block     chan struct{} // when set, RespondToEvent waits until closed
}

func (r *stubResponder) RespondToEvent(ctx context.Context, ev types.InterpellationEvent, tight bool) (types.Utterance, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return types.Utterance{}, types.NewError(types.ErrInterpellationDeadline, "deadline").WithCause(ctx.Err())
		}
	}

	r.mu.Lock()
	r.calls = append(r.calls, ev.PersonaID)
	r.tights = append(r.tights, tight)
	remaining := r.failFor[ev.PersonaID]
	if remaining > 0 {
		r.failFor[ev.PersonaID] = remaining - 1
	}
	r.mu.Unlock()

	if remaining > 0 {
		return types.Utterance{}, types.NewError(types.ErrGenTimeout, "generator timed out")
	}
	return types.Utterance{
		SpeakerID:    ev.PersonaID,
		Text:         "Oui, bien sûr.",
		ResponseType: types.ResponseInterpellation,
	}, nil
}

func (r *stubResponder) FallbackUtterance(_ context.Context, ev types.InterpellationEvent) types.Utterance {
	r.mu.Lock()
	r.fallbacks = append(r.fallbacks, ev.PersonaID)
	r.mu.Unlock()
	return types.Utterance{
		SpeakerID:    ev.PersonaID,
		Text:         "Effectivement, laissez-moi y revenir.",
		ResponseType: types.ResponseFallback,
	}
}

func highEvent(persona string) types.InterpellationEvent {
	return types.InterpellationEvent{
		PersonaID: persona,
		Type:      types.InterpellationDirect,
		Priority:  types.PriorityHigh,
	}
}

func mediumEvent(persona string) types.InterpellationEvent {
	return types.InterpellationEvent{
		PersonaID: persona,
		Type:      types.InterpellationDirective,
		Priority:  types.PriorityMedium,
	}
}

func await(t *testing.T, p *Pending) types.Utterance {
	t.Helper()
	select {
	case utt := <-p.Done:
		return utt
	case <-p.Cancelled:
		t.Fatal("pending entry was cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for response")
	}
	return types.Utterance{}
}

func TestHighBeforeMedium(t *testing.T) {
	r := &stubResponder{block: make(chan struct{})}
	s := NewSystem(DefaultConfig(), r, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Close()

	// The worker picks up the first entry immediately and blocks on it;
	// the remaining two are reordered by priority while queued.
	first := s.Enqueue(mediumEvent("michel_dubois_animateur"))
	second := s.Enqueue(mediumEvent("marcus_thompson_expert"))
	third := s.Enqueue(highEvent("sarah_johnson_journaliste"))
	close(r.block)

	await(t, first)
	await(t, second)
	await(t, third)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.calls, 3)
	assert.Equal(t, "michel_dubois_animateur", r.calls[0])
	assert.Equal(t, "sarah_johnson_journaliste", r.calls[1])
	assert.Equal(t, "marcus_thompson_expert", r.calls[2])
}

func TestBatchOrderPreservedWithinPriority(t *testing.T) {
	r := &stubResponder{}
	s := NewSystem(DefaultConfig(), r, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Close()

	a := s.Enqueue(highEvent("sarah_johnson_journaliste"))
	b := s.Enqueue(highEvent("marcus_thompson_expert"))

	uttA := await(t, a)
	uttB := await(t, b)
	assert.Equal(t, "sarah_johnson_journaliste", uttA.SpeakerID)
	assert.Equal(t, "marcus_thompson_expert", uttB.SpeakerID)
}

func TestHighRetriesTighterThenFallsBack(t *testing.T) {
	r := &stubResponder{failFor: map[string]int{"sarah_johnson_journaliste": 2}}
	s := NewSystem(DefaultConfig(), r, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Close()

	utt := await(t, s.Enqueue(highEvent("sarah_johnson_journaliste")))
	assert.Equal(t, types.ResponseFallback, utt.ResponseType)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.calls, 2)
	assert.False(t, r.tights[0])
	assert.True(t, r.tights[1])
	assert.Equal(t, []string{"sarah_johnson_journaliste"}, r.fallbacks)
}

func TestMediumNeverRetries(t *testing.T) {
	r := &stubResponder{failFor: map[string]int{"marcus_thompson_expert": 1}}
	s := NewSystem(DefaultConfig(), r, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Close()

	utt := await(t, s.Enqueue(mediumEvent("marcus_thompson_expert")))
	assert.Equal(t, types.ResponseFallback, utt.ResponseType)

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Len(t, r.calls, 1)
}

func TestCancelQueuedMedium(t *testing.T) {
	r := &stubResponder{block: make(chan struct{})}
	s := NewSystem(DefaultConfig(), r, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Close()

	busy := s.Enqueue(highEvent("michel_dubois_animateur"))
	queuedHigh := s.Enqueue(highEvent("sarah_johnson_journaliste"))
	queuedMedium := s.Enqueue(mediumEvent("marcus_thompson_expert"))

	// Give the worker a beat to start on the first entry.
	time.Sleep(50 * time.Millisecond)
	dropped := s.CancelQueuedMedium()
	assert.Equal(t, 1, dropped)

	select {
	case <-queuedMedium.Cancelled:
	case <-time.After(time.Second):
		t.Fatal("medium entry was not cancelled")
	}

	close(r.block)
	await(t, busy)
	await(t, queuedHigh)
}

func TestCloseReleasesWatcherWithLiveContext(t *testing.T) {
	before := runtime.NumGoroutine()

	// The session context stays alive across teardown; Close alone must
	// release both the worker and its context watcher.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for i := 0; i < 10; i++ {
		s := NewSystem(DefaultConfig(), &stubResponder{}, zap.NewNop())
		s.Start(ctx)
		s.Close()
		s.Close()
	}

	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+1
	}, 2*time.Second, 10*time.Millisecond, "goroutines must wind down after Close")
}
