package events_test

import (
	"testing"
	"time"

	"github.com/DOIDFoundation/chainrpc/events"
	"github.com/stretchr/testify/assert"
)

func TestFeed(t *testing.T) {
	var feed events.FeedOf[int]
	got := make(chan int, 4)
	feed.Subscribe("a", func(data int) { got <- data })

	assert.Equal(t, 1, feed.Send(1))
	assert.Equal(t, 1, <-got)

	// Re-subscribing under the same id replaces the callback.
	feed.Subscribe("a", func(data int) { got <- data * 10 })
	assert.Equal(t, 1, feed.Send(2))
	assert.Equal(t, 20, <-got)

	feed.Unsubscribe("a").Wait()
	assert.Equal(t, 0, feed.Send(3))
	select {
	case v := <-got:
		t.Fatalf("unexpected delivery %d", v)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestUnsubscribeUnknown(t *testing.T) {
	var feed events.FeedOf[string]
	assert.NotPanics(t, func() {
		feed.Unsubscribe("missing").Wait()
	})
}
