package pubsub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Subscription is a live server subscription. Notifications arrive in the
// order the server sent them; the channel is closed when the subscription
// ends, after which Err yields the reason, nil for an unsubscribe.
type Subscription struct {
	provider          *Provider
	id                uint64
	method            string
	unsubscribeMethod string

	notifications chan json.RawMessage
	errc          chan error
	ended         atomic.Bool

	mu       sync.Mutex
	inflight int           // unsubscribe calls in flight
	stopping chan struct{} // closed while inflight > 0
}

func newSubscription(p *Provider, method, unsubscribeMethod string, buffer int) *Subscription {
	return &Subscription{
		provider:          p,
		method:            method,
		unsubscribeMethod: unsubscribeMethod,
		notifications:     make(chan json.RawMessage, buffer),
		errc:              make(chan error, 1),
		stopping:          make(chan struct{}),
	}
}

// ID is the server assigned subscription id.
func (s *Subscription) ID() uint64 { return s.id }

func (s *Subscription) Method() string { return s.method }

// Notifications yields the raw result of every notification.
func (s *Subscription) Notifications() <-chan json.RawMessage { return s.notifications }

func (s *Subscription) Err() <-chan error { return s.errc }

// Unsubscribe asks the server to end the subscription. While the request
// is in flight notifications the consumer is not ready for are dropped.
// If the server refuses, the subscription stays registered and the error
// wraps ErrUnsubscribeRejected or carries the server error.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	if s.ended.Load() {
		return nil
	}
	s.stop()
	err := s.provider.unsubscribe(ctx, s)
	if err != nil && s.ended.Load() {
		// Torn down meanwhile, there is nothing left to unsubscribe.
		return nil
	}
	return err
}

func (s *Subscription) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == 0 {
		close(s.stopping)
	}
	s.inflight++
}

// resume restores blocking delivery after a failed unsubscribe.
func (s *Subscription) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		s.stopping = make(chan struct{})
	}
}

// deliver hands data to the consumer and reports whether it was taken.
// It blocks until the consumer is ready unless an unsubscribe is in flight
// or quit is closed.
func (s *Subscription) deliver(data json.RawMessage, quit <-chan struct{}) bool {
	select {
	case <-quit:
		return false
	default:
	}

	s.mu.Lock()
	stopping := s.stopping
	s.mu.Unlock()

	select {
	case s.notifications <- data:
		return true
	case <-stopping:
		select {
		case s.notifications <- data:
			return true
		default:
			return false
		}
	case <-quit:
		return false
	}
}

// finish ends the subscription. It runs on the reader goroutine only.
func (s *Subscription) finish(err error) {
	if s.ended.Swap(true) {
		return
	}
	if err != nil {
		s.errc <- err
	}
	close(s.errc)
	close(s.notifications)
}
