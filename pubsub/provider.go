package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DOIDFoundation/chainrpc/events"
	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/DOIDFoundation/chainrpc/sender"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tidwall/gjson"
)

var (
	ErrConnectionClosed    = errors.New("pub/sub connection closed")
	ErrNotOpen             = errors.New("pub/sub connection not open")
	ErrUnsubscribeRejected = errors.New("unsubscribe rejected by server")
	ErrProviderUsed        = errors.New("pub/sub provider cannot be restarted")
)

// State of the provider connection.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Stats is a snapshot of the dispatch table and drop counter.
type Stats struct {
	Pending       int
	Subscriptions int
	Dropped       uint64
}

// Abandoned ids remembered to tell late replies from unknown ones.
const orphanCacheSize = 1024

// waiter is a pending request. Whoever removes it from the pending table
// completes it, exactly once.
type waiter struct {
	method string
	// onReply runs on the reader goroutine before done is closed, no later
	// frame is processed until it returns.
	onReply func(*jsonrpc.Response) error
	done    chan struct{}
	resp    *jsonrpc.Response
	err     error
}

// orphan is a request whose caller stopped waiting.
type orphan struct {
	method      string
	unsubscribe string
}

func (w *waiter) complete(resp *jsonrpc.Response, err error) {
	w.resp, w.err = resp, err
	close(w.done)
}

// Provider multiplexes unary calls and subscriptions over one websocket
// connection. A provider connects once; after the connection closes a new
// provider is needed.
type Provider struct {
	service.BaseService
	config Config
	url    string
	dialer *websocket.Dialer
	ids    *jsonrpc.IDGenerator

	used  atomic.Bool
	state atomic.Int32
	conn  *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint32]*waiter
	subs    map[uint64]*Subscription

	dropped atomic.Uint64
	orphans *lru.Cache // ids abandoned by their caller, id -> orphan

	quit   chan struct{} // closed when Stop is requested
	closed chan struct{} // closed once the reader has torn the connection down
}

var _ sender.Sender = (*Provider)(nil)

// Option sets a parameter for the provider.
type Option func(*Provider)

// WithURL connects to url instead of the endpoint derived from the HTTP one.
func WithURL(url string) Option {
	return func(p *Provider) {
		if url != "" {
			p.url = url
		}
	}
}

// WithConfig replaces the default configuration. A non empty Config.URL
// takes precedence over the derived endpoint.
func WithConfig(config Config) Option {
	return func(p *Provider) {
		p.config = config
		WithURL(config.URL)(p)
	}
}

// WithIDGenerator shares ids with other senders, so that ids stay unique
// across everything the caller sends over this connection.
func WithIDGenerator(ids *jsonrpc.IDGenerator) Option {
	return func(p *Provider) {
		p.ids = ids
	}
}

// NewProvider returns a provider for the node serving HTTP at endpoint.
func NewProvider(endpoint string, logger log.Logger, options ...Option) *Provider {
	orphans, _ := lru.New(orphanCacheSize)
	p := &Provider{
		config:  DefaultConfig,
		orphans: orphans,
		url:     DeriveURL(endpoint),
		ids:     &jsonrpc.IDGenerator{},
		quit:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
	for _, option := range options {
		option(p)
	}
	if p.config.NotificationBuffer < 0 {
		p.config.NotificationBuffer = 0
	}
	p.dialer = &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: p.config.HandshakeTimeout,
	}
	p.BaseService = *service.NewBaseService(logger.With("module", "pubsub"), "PubSub", p)
	return p
}

func (p *Provider) URL() string {
	return p.url
}

func (p *Provider) State() State {
	return State(p.state.Load())
}

// NextID returns a request id unused by this provider.
func (p *Provider) NextID() uint32 {
	return p.ids.Next()
}

// Closed is closed once the connection has been torn down, by Stop or by
// a read failure.
func (p *Provider) Closed() <-chan struct{} {
	return p.closed
}

func (p *Provider) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Pending:       len(p.pending),
		Subscriptions: len(p.subs),
		Dropped:       p.dropped.Load(),
	}
}

// OnStart dials the websocket endpoint. It implements service.Service.
func (p *Provider) OnStart() error {
	if p.used.Swap(true) {
		return ErrProviderUsed
	}
	p.state.Store(int32(StateConnecting))

	ctx := context.Background()
	if p.config.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.HandshakeTimeout)
		defer cancel()
	}
	p.Logger.Debug("dialing", "url", p.url)
	conn, resp, err := p.dialer.DialContext(ctx, p.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		p.state.Store(int32(StateClosed))
		close(p.closed)
		return &jsonrpc.TransportError{Method: "connect", Err: fmt.Errorf("dial %s: %w", p.url, err)}
	}

	p.mu.Lock()
	p.conn = conn
	p.pending = make(map[uint32]*waiter)
	p.subs = make(map[uint64]*Subscription)
	p.mu.Unlock()
	p.state.Store(int32(StateOpen))

	go p.readLoop()

	p.Logger.Info("connected", "url", p.url)
	events.ConnectionOpened.Send(events.Connection{URL: p.url})
	return nil
}

// OnStop closes the connection and waits for the teardown to finish. It
// implements service.Service.
func (p *Provider) OnStop() {
	close(p.quit)
	if p.conn == nil {
		return
	}
	_ = p.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	_ = p.conn.Close()
	<-p.closed
}

// Send performs a unary call over the connection. It implements
// sender.Sender. When ctx is done first the id is abandoned, a late reply
// for it is dropped.
func (p *Provider) Send(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	start := time.Now()
	resp, err := p.roundTrip(ctx, req, "", nil)
	sender.Observe(req.Method, start, err)
	return resp, err
}

// Subscribe opens a subscription. The registration exists before any
// frame following the subscribe reply is dispatched, so no notification
// is lost between the reply and the first read of Notifications.
func (p *Provider) Subscribe(ctx context.Context, id uint32, name, unsubscribeName string, params any) (*Subscription, error) {
	req, err := jsonrpc.NewRequest(id, name, params)
	if err != nil {
		return nil, err
	}
	sub := newSubscription(p, name, unsubscribeName, p.config.NotificationBuffer)
	_, err = p.roundTrip(ctx, req, unsubscribeName, func(resp *jsonrpc.Response) error {
		if err := resp.Check(req); err != nil {
			return err
		}
		if err := json.Unmarshal(resp.Result, &sub.id); err != nil {
			return &jsonrpc.DecodeError{Method: name, Payload: resp.Result, Err: err}
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[sub.id]; ok {
			return &jsonrpc.ProtocolError{
				Method:  name,
				Payload: resp.Result,
				Err:     fmt.Errorf("%w: subscription %d already registered", jsonrpc.ErrInvalidMessage, sub.id),
			}
		}
		p.subs[sub.id] = sub
		activeSubscriptions.Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.Logger.Debug("subscribed", "method", name, "subscription", sub.id)
	return sub, nil
}

func (p *Provider) unsubscribe(ctx context.Context, sub *Subscription) error {
	req, err := jsonrpc.NewRequest(p.NextID(), sub.unsubscribeMethod, []uint64{sub.id})
	if err != nil {
		return err
	}
	_, err = p.roundTrip(ctx, req, "", func(resp *jsonrpc.Response) error {
		if err := resp.Check(req); err != nil {
			return err
		}
		var ok bool
		if err := json.Unmarshal(resp.Result, &ok); err != nil {
			return &jsonrpc.DecodeError{Method: req.Method, Payload: resp.Result, Err: err}
		}
		if !ok {
			return fmt.Errorf("%w: subscription %d", ErrUnsubscribeRejected, sub.id)
		}
		p.mu.Lock()
		registered := p.subs[sub.id] == sub
		if registered {
			delete(p.subs, sub.id)
		}
		p.mu.Unlock()
		if registered {
			activeSubscriptions.Dec()
			sub.finish(nil)
		}
		return nil
	})
	if err != nil {
		sub.resume()
		return err
	}
	p.Logger.Debug("unsubscribed", "method", sub.method, "subscription", sub.id)
	return nil
}

// roundTrip writes req and waits for its reply. unsubscribe names the
// method ending the subscription req opens, if any.
func (p *Provider) roundTrip(ctx context.Context, req *jsonrpc.Request, unsubscribe string, onReply func(*jsonrpc.Response) error) (*jsonrpc.Response, error) {
	w := &waiter{method: req.Method, onReply: onReply, done: make(chan struct{})}
	if err := p.register(req.ID, w); err != nil {
		return nil, err
	}
	if err := p.write(req); err != nil {
		if p.forget(req.ID, w) {
			return nil, &jsonrpc.TransportError{Method: req.Method, Err: err}
		}
		<-w.done
		return w.resp, w.err
	}

	select {
	case <-w.done:
		return w.resp, w.err
	case <-ctx.Done():
		p.orphans.Add(req.ID, orphan{method: req.Method, unsubscribe: unsubscribe})
		if p.forget(req.ID, w) {
			return nil, fmt.Errorf("%s: %w", req.Method, ctx.Err())
		}
		// The reader took the waiter already, its outcome stands.
		p.orphans.Remove(req.ID)
		<-w.done
		return w.resp, w.err
	}
}

func (p *Provider) register(id uint32, w *waiter) error {
	if p.State() != StateOpen {
		return ErrNotOpen
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return ErrConnectionClosed
	}
	if _, ok := p.pending[id]; ok {
		return fmt.Errorf("%w: %d", jsonrpc.ErrDuplicateID, id)
	}
	p.pending[id] = w
	return nil
}

// forget removes w if it is still pending and reports whether it did.
func (p *Provider) forget(id uint32, w *waiter) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending[id] != w {
		return false
	}
	delete(p.pending, id)
	return true
}

// take removes and returns the waiter of id.
func (p *Provider) take(id uint32) *waiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.pending[id]
	if !ok {
		return nil
	}
	delete(p.pending, id)
	return w
}

func (p *Provider) write(v any) error {
	frame, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.config.WriteTimeout > 0 {
		_ = p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
	}
	return p.conn.WriteMessage(websocket.TextMessage, frame)
}

func (p *Provider) readLoop() {
	var err error
	for {
		var frame []byte
		if _, frame, err = p.conn.ReadMessage(); err != nil {
			break
		}
		p.dispatch(frame)
	}
	select {
	case <-p.quit:
		err = nil
	default:
		p.Logger.Error("connection lost", "url", p.url, "err", err)
	}
	p.teardown(err)
}

func (p *Provider) dispatch(frame []byte) {
	switch jsonrpc.Classify(frame) {
	case jsonrpc.KindReply:
		p.dispatchReply(frame)
	case jsonrpc.KindNotification:
		p.dispatchNotification(frame)
	default:
		p.drop(dropMalformed, frame)
	}
}

func (p *Provider) dispatchReply(frame []byte) {
	resp, err := jsonrpc.DecodeResponse(frame)
	if err != nil {
		// A reply we can still correlate fails its caller instead of
		// leaving it waiting.
		id, ok := replyID(frame)
		if !ok {
			p.drop(dropMalformed, frame)
			return
		}
		w := p.take(id)
		if w == nil {
			p.drop(dropMalformed, frame)
			return
		}
		var pe *jsonrpc.ProtocolError
		if errors.As(err, &pe) {
			pe.Method = w.method
		}
		w.complete(nil, err)
		return
	}

	w := p.take(resp.ID)
	if w == nil {
		if v, ok := p.orphans.Peek(resp.ID); ok {
			p.orphans.Remove(resp.ID)
			p.drop(dropOrphaned, frame)
			p.release(v.(orphan), resp)
			return
		}
		p.drop(dropUnknownID, frame)
		return
	}
	if w.onReply != nil {
		if err := w.onReply(resp); err != nil {
			w.complete(resp, err)
			return
		}
	}
	w.complete(resp, nil)
}

// replyID returns the id of a reply that did not decode, if it is a
// valid request id.
func replyID(frame []byte) (uint32, bool) {
	id := gjson.GetBytes(frame, "id")
	if id.Type != gjson.Number {
		return 0, false
	}
	n, err := strconv.ParseUint(id.Raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// release ends the server side subscription opened by an abandoned
// subscribe request. The unsubscribe reply is orphaned from the start.
func (p *Provider) release(o orphan, resp *jsonrpc.Response) {
	if o.unsubscribe == "" || resp.Error != nil {
		return
	}
	var id uint64
	if err := json.Unmarshal(resp.Result, &id); err != nil {
		return
	}
	req, err := jsonrpc.NewRequest(p.NextID(), o.unsubscribe, []uint64{id})
	if err != nil {
		return
	}
	p.orphans.Add(req.ID, orphan{method: req.Method})
	p.Logger.Debug("releasing abandoned subscription", "method", o.method, "subscription", id)
	// The reader must not block on the write.
	go func() {
		if err := p.write(req); err != nil {
			p.orphans.Remove(req.ID)
			p.Logger.Debug("releasing abandoned subscription", "subscription", id, "err", err)
		}
	}()
}

func (p *Provider) dispatchNotification(frame []byte) {
	n, err := jsonrpc.DecodeNotification(frame)
	if err != nil {
		p.drop(dropMalformed, frame)
		return
	}
	p.mu.Lock()
	sub, ok := p.subs[n.Params.Subscription]
	p.mu.Unlock()
	if !ok {
		p.drop(dropUnknownSubscription, frame)
		return
	}
	if !sub.deliver(n.Params.Result, p.quit) {
		p.drop(dropUnsubscribing, frame)
		return
	}
	deliveredNotifications.Inc()
}

func (p *Provider) drop(reason string, frame []byte) {
	p.dropped.Add(1)
	droppedFrames.WithLabelValues(reason).Inc()
	p.Logger.Debug("dropped frame", "reason", reason, "frame", string(truncate(frame, 256)))
}

// teardown runs on the reader goroutine once reading stopped.
func (p *Provider) teardown(cause error) {
	p.mu.Lock()
	pending, subs := p.pending, p.subs
	p.pending, p.subs = nil, nil
	p.mu.Unlock()
	p.state.Store(int32(StateClosed))
	_ = p.conn.Close()

	failure := ErrConnectionClosed
	if cause != nil {
		failure = fmt.Errorf("%w: %v", ErrConnectionClosed, cause)
	}
	for _, w := range pending {
		w.complete(nil, failure)
	}
	for _, sub := range subs {
		sub.finish(failure)
	}
	activeSubscriptions.Sub(float64(len(subs)))

	p.Logger.Info("disconnected", "url", p.url, "pending", len(pending), "subscriptions", len(subs))
	events.ConnectionClosed.Send(events.Disconnection{URL: p.url, Err: cause})
	close(p.closed)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
