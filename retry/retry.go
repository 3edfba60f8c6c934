// Package retry re-runs calls that failed with a transient transport
// error, a fixed number of times with a fixed delay in between.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/juju/clock"
	"github.com/juju/retry"
)

// Config of a retry policy.
type Config struct {
	// Total number of attempts, the first one included.
	MaxAttempts int `mapstructure:"attempts"`
	// Pause between two attempts. No pause follows the last attempt.
	Delay time.Duration `mapstructure:"delay"`
}

// DefaultConfig returns the default configuration of a retry policy.
var DefaultConfig = Config{
	MaxAttempts: 40,
	Delay:       250 * time.Millisecond,
}

func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.Delay <= 0 {
		return fmt.Errorf("retry delay must be positive, got %s", c.Delay)
	}
	return nil
}

// Policy retries transport failures a bounded number of times.
type Policy struct {
	config Config
	clock  clock.Clock
	logger log.Logger
}

// Option sets a parameter for the policy.
type Option func(*Policy)

// WithClock replaces the wall clock used to wait between attempts.
func WithClock(c clock.Clock) Option {
	return func(p *Policy) { p.clock = c }
}

func WithLogger(logger log.Logger) Option {
	return func(p *Policy) { p.logger = logger }
}

func NewPolicy(config Config, options ...Option) (*Policy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	p := &Policy{
		config: config,
		clock:  clock.WallClock,
		logger: log.NewNopLogger(),
	}
	for _, option := range options {
		option(p)
	}
	return p, nil
}

func (p *Policy) Config() Config {
	return p.config
}

// Do runs fn until it succeeds, fails with an error that is not a
// *jsonrpc.TransportError, or the attempt budget is spent. The error of
// the last attempt is returned as is. Cancelling ctx stops the waiting
// between attempts; the context error is then returned wrapped together
// with the last attempt error.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			last = fn(ctx)
			return last
		},
		IsFatalError: func(err error) bool {
			return !jsonrpc.IsRetryable(err)
		},
		NotifyFunc: func(err error, attempt int) {
			p.logger.Debug("attempt failed", "attempt", attempt, "of", p.config.MaxAttempts, "err", err)
		},
		Attempts: p.config.MaxAttempts,
		Delay:    p.config.Delay,
		Clock:    p.clock,
		Stop:     ctx.Done(),
	})
	switch {
	case err == nil:
		return nil
	case last == nil:
		// retry.Call rejected its arguments before calling fn.
		return err
	case retry.IsRetryStopped(err):
		return fmt.Errorf("retry stopped: %w (last error: %w)", contextErr(ctx), last)
	default:
		return last
	}
}

func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.New("stopped")
}
