// Package respond guarantees that every addressed persona actually answers:
// a priority queue with a single background worker, hard deadlines per
// priority and scripted fallbacks when generation cannot deliver in time.
package respond

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eloquence-ai/studio/types"
)

// Responder produces the actual persona answer for one event. The full
// pipeline (generation, sanitizing, synthesis, media publish) runs behind
// this interface; the system only owns queueing, deadlines and fallbacks.
type Responder interface {
	// RespondToEvent answers the event within ctx's deadline. tight asks
	// for a shortened prompt on the retry attempt.
	RespondToEvent(ctx context.Context, ev types.InterpellationEvent, tight bool) (types.Utterance, error)
	// FallbackUtterance delivers the scripted answer for the event. It
	// must not fail; at worst the audio is a silence frame.
	FallbackUtterance(ctx context.Context, ev types.InterpellationEvent) types.Utterance
}

// Observer receives queue telemetry.
type Observer interface {
	ObserveInterpellation(elapsed time.Duration, success bool)
	SetQueueSize(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveInterpellation(time.Duration, bool) {}
func (nopObserver) SetQueueSize(int)                          {}

// Config tunes the response deadlines.
type Config struct {
	HighDeadline   time.Duration `yaml:"high_deadline" json:"high_deadline"`
	MediumDeadline time.Duration `yaml:"medium_deadline" json:"medium_deadline"`
}

// DefaultConfig returns the wall-clock budgets for addressed responses.
func DefaultConfig() Config {
	return Config{
		HighDeadline:   2 * time.Second,
		MediumDeadline: 3 * time.Second,
	}
}

// Pending is the handle returned by Enqueue. Exactly one value is delivered
// on Done unless the entry is cancelled first.
type Pending struct {
	Done      chan types.Utterance
	Cancelled chan struct{}
}

type entry struct {
	ev      types.InterpellationEvent
	pending *Pending
	seq     uint64
	index   int
}

// priorityQueue orders by priority (HIGH first) then arrival order.
type priorityQueue []*entry

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].ev.Priority != pq[j].ev.Priority {
		return pq[i].ev.Priority > pq[j].ev.Priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	e := x.(*entry)
	e.index = len(*pq)
	*pq = append(*pq, e)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return e
}

// System is the guaranteed response queue.
type System struct {
	cfg       Config
	responder Responder
	observer  Observer
	logger    *zap.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	queue  priorityQueue
	seq    uint64
	closed bool
	done   chan struct{}

	wg sync.WaitGroup
}

// Option customizes the system.
type Option func(*System)

// WithObserver wires queue telemetry.
func WithObserver(o Observer) Option {
	return func(s *System) { s.observer = o }
}

// NewSystem builds the queue; call Start to launch the worker.
func NewSystem(cfg Config, responder Responder, logger *zap.Logger, opts ...Option) *System {
	s := &System{
		cfg:       cfg,
		responder: responder,
		observer:  nopObserver{},
		logger:    logger.With(zap.String("component", "respond")),
		done:      make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the single background worker. The worker exits when ctx is
// done or Close is called.
func (s *System) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()

	// Wake the worker when the context dies so it can drain and exit. Close
	// releases the watcher even when ctx outlives the system.
	go func() {
		select {
		case <-ctx.Done():
			s.cond.Broadcast()
		case <-s.done:
		}
	}()
}

// Close stops accepting events and waits for the worker. Safe to call more
// than once.
func (s *System) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
}

// Enqueue places one event on the queue in arrival order.
func (s *System) Enqueue(ev types.InterpellationEvent) *Pending {
	p := &Pending{
		Done:      make(chan types.Utterance, 1),
		Cancelled: make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(p.Cancelled)
		return p
	}
	s.seq++
	heap.Push(&s.queue, &entry{ev: ev, pending: p, seq: s.seq})
	depth := s.queue.Len()
	s.mu.Unlock()

	s.observer.SetQueueSize(depth)
	s.cond.Signal()
	return p
}

// QueueSize reports the number of queued, not-yet-processed events.
func (s *System) QueueSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// CancelQueuedMedium drops every still-queued MEDIUM (and lower) event.
// HIGH events are never cancelled.
func (s *System) CancelQueuedMedium() int {
	s.mu.Lock()
	var kept priorityQueue
	var dropped []*Pending
	for _, e := range s.queue {
		if e.ev.Priority >= types.PriorityHigh {
			kept = append(kept, e)
			continue
		}
		dropped = append(dropped, e.pending)
	}
	s.queue = kept
	heap.Init(&s.queue)
	depth := s.queue.Len()
	s.mu.Unlock()

	for _, p := range dropped {
		close(p.Cancelled)
	}
	s.observer.SetQueueSize(depth)
	if len(dropped) > 0 {
		s.logger.Debug("cancelled queued medium events", zap.Int("count", len(dropped)))
	}
	return len(dropped)
}

func (s *System) run(ctx context.Context) {
	for {
		s.mu.Lock()
		for s.queue.Len() == 0 && !s.closed && ctx.Err() == nil {
			s.cond.Wait()
		}
		if (s.closed || ctx.Err() != nil) && s.queue.Len() == 0 {
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.queue).(*entry)
		depth := s.queue.Len()
		s.mu.Unlock()

		s.observer.SetQueueSize(depth)
		utt := s.ensureResponse(ctx, e.ev)
		e.pending.Done <- utt
	}
}

// ensureResponse runs one event to completion: deadline-bound generation, a
// tighter-prompt retry for HIGH priority, then the scripted fallback.
func (s *System) ensureResponse(ctx context.Context, ev types.InterpellationEvent) types.Utterance {
	start := time.Now()
	deadline := s.cfg.MediumDeadline
	if ev.Priority == types.PriorityHigh {
		deadline = s.cfg.HighDeadline
	}

	attemptCtx, cancel := context.WithTimeout(ctx, deadline)
	utt, err := s.responder.RespondToEvent(attemptCtx, ev, false)
	cancel()
	if err == nil {
		s.observer.ObserveInterpellation(time.Since(start), true)
		return utt
	}

	if ev.Priority == types.PriorityHigh {
		s.logger.Warn("addressed response missed deadline, retrying tighter",
			zap.String("persona_id", ev.PersonaID),
			zap.String("code", string(types.GetErrorCode(err))),
		)
		retryCtx, cancel := context.WithTimeout(ctx, deadline)
		utt, err = s.responder.RespondToEvent(retryCtx, ev, true)
		cancel()
		if err == nil {
			s.observer.ObserveInterpellation(time.Since(start), true)
			return utt
		}
	}

	s.logger.Warn("addressed response fell back to script",
		zap.String("persona_id", ev.PersonaID),
		zap.String("code", string(types.ErrInterpellationDeadline)),
		zap.Error(err),
	)
	utt = s.responder.FallbackUtterance(ctx, ev)
	s.observer.ObserveInterpellation(time.Since(start), false)
	return utt
}
