package events

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
)

type Callback[T any] func(data T)

type subscription[T any] struct {
	sub  event.Subscription
	ch   chan T
	done sync.WaitGroup
}

// FeedOf wraps go-ethereum's event.FeedOf with named callback
// subscriptions. Each callback runs on its own goroutine, in send order.
type FeedOf[T any] struct {
	feed event.FeedOf[T]

	mu   sync.Mutex
	subs map[string]*subscription[T]
}

// Send delivers data to every subscriber and returns how many got it.
func (f *FeedOf[T]) Send(data T) (sent int) {
	return f.feed.Send(data)
}

// Subscribe registers callback under id, replacing any callback already
// registered under the same id.
func (f *FeedOf[T]) Subscribe(id string, callback Callback[T]) {
	f.Unsubscribe(id).Wait()

	s := &subscription[T]{ch: make(chan T)}
	s.sub = f.feed.Subscribe(s.ch)
	s.done.Add(1)
	go func() {
		defer s.done.Done()
		for {
			select {
			case data := <-s.ch:
				callback(data)
			case <-s.sub.Err():
				return
			}
		}
	}()

	f.mu.Lock()
	if f.subs == nil {
		f.subs = make(map[string]*subscription[T])
	}
	f.subs[id] = s
	f.mu.Unlock()
}

// Unsubscribe removes the callback registered under id. The returned
// WaitGroup is done once the callback goroutine has exited.
func (f *FeedOf[T]) Unsubscribe(id string) *sync.WaitGroup {
	f.mu.Lock()
	s, ok := f.subs[id]
	delete(f.subs, id)
	f.mu.Unlock()

	if !ok {
		return &sync.WaitGroup{}
	}
	s.sub.Unsubscribe()
	return &s.done
}
