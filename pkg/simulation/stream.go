package simulation

import (
	"context"
	"errors"
	"sync"
)

// Stream is a live run of a simulation. Events arrive in turn order on
// Events; once the channel closes, Err reports how the run ended.
type Stream struct {
	events chan Event

	mu  sync.Mutex
	err error
}

// Events yields the run's events in order. The channel is closed when
// the run finishes, fails, or the stream's context is cancelled. An
// error event, if any, is the final event before close.
func (st *Stream) Events() <-chan Event { return st.events }

// Err returns the run's terminal error, nil for a clean finish. Valid
// once Events is closed.
func (st *Stream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// RunStream runs all remaining scenes, delivering events as they are
// produced. The producer blocks on an unread channel, so an abandoned
// consumer must cancel ctx to release it.
func (s *Simulation) RunStream(ctx context.Context, interactionsPerScene int) *Stream {
	st := &Stream{events: make(chan Event)}

	go func() {
		defer close(st.events)
		err := s.run(ctx, interactionsPerScene, func(ev Event) bool {
			select {
			case st.events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if errors.Is(err, errConsumerGone) {
			err = ctx.Err()
		}
		st.mu.Lock()
		st.err = err
		st.mu.Unlock()
	}()

	return st
}
