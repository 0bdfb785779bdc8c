package client

import (
	"context"
	"sync"
)

type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Session runs at most one poll loop per document.
type Session struct {
	poller *Poller

	mu    sync.Mutex
	loops map[string]*loop
}

func NewSession(poller *Poller) *Session {
	return &Session{
		poller: poller,
		loops:  make(map[string]*loop),
	}
}

// Start cancels any loop already running for documentID, then submits and
// polls in the background. The returned channel yields exactly one Outcome.
func (s *Session) Start(ctx context.Context, documentID, model string) <-chan Outcome {
	loopCtx, cancel := context.WithCancel(ctx)
	l := &loop{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.loops[documentID]
	s.loops[documentID] = l
	s.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}

	out := make(chan Outcome, 1)
	go func() {
		defer close(l.done)
		defer close(out)
		defer s.release(documentID, l)
		defer cancel()

		if prev != nil {
			<-prev.done
		}
		out <- s.poller.Run(loopCtx, documentID, model)
	}()

	return out
}

// Cancel stops the loop for documentID, if any. Safe to call repeatedly.
func (s *Session) Cancel(documentID string) {
	s.mu.Lock()
	l := s.loops[documentID]
	delete(s.loops, documentID)
	s.mu.Unlock()

	if l != nil {
		l.cancel()
	}
}

func (s *Session) Active(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.loops[documentID]
	return ok
}

// Close cancels every loop.
func (s *Session) Close() {
	s.mu.Lock()
	loops := s.loops
	s.loops = make(map[string]*loop)
	s.mu.Unlock()

	for _, l := range loops {
		l.cancel()
	}
}

func (s *Session) release(documentID string, l *loop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loops[documentID] == l {
		delete(s.loops, documentID)
	}
}
