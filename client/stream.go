package client

import (
	"context"
	"errors"

	"github.com/DOIDFoundation/chainrpc/method"
	"github.com/DOIDFoundation/chainrpc/pubsub"
)

// ErrStreamEnded is returned by Next once a stream was unsubscribed.
var ErrStreamEnded = errors.New("stream ended")

// Stream yields the typed notifications of one subscription. It is not
// safe for concurrent use.
type Stream[N any] struct {
	sub    *pubsub.Subscription
	method method.Subscription[N]
	err    error
}

func (s *Stream[N]) ID() uint64 {
	return s.sub.ID()
}

// Next waits for the next notification. A notification that does not
// decode is returned as *jsonrpc.DecodeError and the stream goes on. Once
// the subscription ended every call returns the reason: ErrStreamEnded
// after an unsubscribe, pubsub.ErrConnectionClosed after a teardown.
func (s *Stream[N]) Next(ctx context.Context) (N, error) {
	var zero N
	if s.err != nil {
		return zero, s.err
	}
	select {
	case raw, ok := <-s.sub.Notifications():
		if !ok {
			s.err = ErrStreamEnded
			if err := <-s.sub.Err(); err != nil {
				s.err = err
			}
			return zero, s.err
		}
		return method.DecodeNotification(s.method, raw)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Stream[N]) Unsubscribe(ctx context.Context) error {
	return s.sub.Unsubscribe(ctx)
}
