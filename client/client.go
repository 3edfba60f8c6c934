package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/DOIDFoundation/chainrpc/config"
	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/DOIDFoundation/chainrpc/method"
	"github.com/DOIDFoundation/chainrpc/pubsub"
	"github.com/DOIDFoundation/chainrpc/retry"
	"github.com/DOIDFoundation/chainrpc/sender"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
)

//------------------------------------------------------------------------------

// Client is the highest level interface to a node. It sends unary calls
// over HTTP with retries and opens the pub/sub connection on first use.
type Client struct {
	service.BaseService
	config config.Config
	logger log.Logger

	sender sender.Sender
	policy *retry.Policy
	ids    jsonrpc.IDGenerator

	retryOptions []retry.Option

	// ctx is cancelled by OnStop and bounds background dials.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	provider *pubsub.Provider
	dialing  *dial
}

// dial is a connection attempt shared by every caller waiting for it.
type dial struct {
	done     chan struct{}
	provider *pubsub.Provider
	err      error
}

// Option sets a parameter for the client.
type Option func(*Client)

// WithSender replaces the HTTP sender, e.g. to send calls over another
// transport.
func WithSender(s sender.Sender) Option {
	return func(c *Client) {
		c.sender = s
	}
}

// WithRetryOptions passes options to the retry policy.
func WithRetryOptions(options ...retry.Option) Option {
	return func(c *Client) {
		c.retryOptions = append(c.retryOptions, options...)
	}
}

// New returns a client for the node described by config.
func New(config config.Config, logger log.Logger, options ...Option) (*Client, error) {
	c := &Client{
		config: config,
		logger: logger,
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.BaseService = *service.NewBaseService(logger.With("module", "client"), "Client", c)
	for _, option := range options {
		option(c)
	}
	if c.sender == nil {
		c.sender = sender.NewHTTPSender(config.RPC, logger)
	}

	policy, err := retry.NewPolicy(config.Retry, append([]retry.Option{retry.WithLogger(c.Logger)}, c.retryOptions...)...)
	if err != nil {
		return nil, err
	}
	c.policy = policy
	return c, nil
}

func (c *Client) URL() string {
	return c.sender.URL()
}

// OnStart implements service.Service. The pub/sub connection is opened
// lazily by the first subscription.
func (c *Client) OnStart() error {
	c.Logger.Info("client ready", "url", c.sender.URL())
	return nil
}

// OnStop closes the pub/sub connection if one is open and abandons a dial
// in progress. It implements service.Service.
func (c *Client) OnStop() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.provider != nil && c.provider.IsRunning() {
		if err := c.provider.Stop(); err != nil {
			c.Logger.Error("stopping pub/sub provider", "err", err)
		}
	}
}

// Provider returns the open pub/sub connection, dialing a new one with
// retries if there is none or the previous one was closed. Concurrent
// callers share one dial and each waits for it as long as its ctx allows.
func (c *Client) Provider(ctx context.Context) (*pubsub.Provider, error) {
	c.mu.Lock()
	if !c.IsRunning() {
		c.mu.Unlock()
		return nil, service.ErrNotStarted
	}
	if c.provider != nil {
		if c.provider.State() == pubsub.StateOpen {
			defer c.mu.Unlock()
			return c.provider, nil
		}
		// Closed by the peer, release it before dialing again.
		if err := c.provider.Stop(); err != nil && !errors.Is(err, service.ErrAlreadyStopped) {
			c.Logger.Debug("stopping closed provider", "err", err)
		}
		c.provider = nil
	}
	d := c.dialing
	if d == nil {
		d = &dial{done: make(chan struct{})}
		c.dialing = d
		go c.dial(d)
	}
	c.mu.Unlock()

	select {
	case <-d.done:
		return d.provider, d.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dial connects a new provider with retries until it succeeds, the retry
// budget is spent or the client stops.
func (c *Client) dial(d *dial) {
	var p *pubsub.Provider
	err := c.policy.Do(c.ctx, func(context.Context) error {
		p = pubsub.NewProvider(c.config.RPC.URL, c.logger,
			pubsub.WithConfig(c.config.WS),
			pubsub.WithIDGenerator(&c.ids),
		)
		return p.Start()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.dialing = nil
	switch {
	case err != nil:
		d.err = err
	case c.ctx.Err() != nil:
		// Stopped while the last attempt was connecting.
		_ = p.Stop()
		d.err = service.ErrNotStarted
	default:
		c.provider = p
		d.provider = p
	}
	close(d.done)
}

// Call sends req over HTTP, retrying transient failures with the same
// request id, and decodes the result.
func Call[Resp any](ctx context.Context, c *Client, req method.Request[Resp]) (Resp, error) {
	var zero Resp
	env, err := jsonrpc.NewRequest(c.ids.Next(), req.Method(), req.Params())
	if err != nil {
		return zero, err
	}
	var result json.RawMessage
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = sender.Do(ctx, c.sender, env)
		return err
	})
	if err != nil {
		return zero, err
	}
	return method.DecodeResult(req, result)
}

// Subscribe opens a subscription and returns its typed stream.
func Subscribe[N any](ctx context.Context, c *Client, sub method.Subscription[N]) (*Stream[N], error) {
	p, err := c.Provider(ctx)
	if err != nil {
		return nil, err
	}
	s, err := p.Subscribe(ctx, p.NextID(), sub.Method(), sub.UnsubscribeMethod(), sub.Params())
	if err != nil {
		return nil, err
	}
	return &Stream[N]{sub: s, method: sub}, nil
}
