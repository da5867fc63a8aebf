// Package stream fans authorization decisions out to live subscribers so
// operators can watch denials as they happen.
package stream

import (
	"context"
	"sync"
	"time"
)

// AccessEvent describes one authorization decision.
type AccessEvent struct {
	PrincipalID string    `json:"principal_id,omitempty"`
	CabinetID   int64     `json:"cabinet_id,omitempty"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	DocumentID  string    `json:"document_id,omitempty"`
	Allowed     bool      `json:"allowed"`
	Timestamp   time.Time `json:"timestamp"`
}

// Stream fan-outs access events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan AccessEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan AccessEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan AccessEvent {
	ch := make(chan AccessEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt AccessEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
