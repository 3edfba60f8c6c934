package mocknode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/libs/service"
	"github.com/gorilla/websocket"
)

var (
	// ErrUnavailable makes an HTTP call fail with status 503.
	ErrUnavailable = errors.New("service unavailable")

	ErrUnknownSubscription = errors.New("unknown subscription")
)

// Handler answers one call with its result or an error.
type Handler func(params json.RawMessage) (any, error)

type topic struct {
	notification string
}

type subscription struct {
	conn         *conn
	notification string
}

// conn is one websocket client.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *conn) writeJSON(v any) error {
	frame, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(frame)
}

type Node struct {
	service.BaseService
	config   *Config
	upgrader websocket.Upgrader

	httpServer *http.Server
	wsServer   *http.Server
	httpAddr   string
	wsAddr     string

	mu           sync.Mutex
	handlers     map[string]Handler
	topics       map[string]topic
	unsubscribes map[string]bool
	calls        map[string]int
	conns        map[*conn]struct{}
	subs         map[uint64]*subscription
	lastSub      uint64
}

// Option sets a parameter for the node.
type Option func(*Node)

func WithConfig(config Config) Option {
	return func(n *Node) {
		n.config = &config
	}
}

func New(logger log.Logger, options ...Option) *Node {
	n := &Node{
		config:       &DefaultConfig,
		handlers:     make(map[string]Handler),
		topics:       make(map[string]topic),
		unsubscribes: make(map[string]bool),
		calls:        make(map[string]int),
		conns:        make(map[*conn]struct{}),
		subs:         make(map[uint64]*subscription),
	}
	for _, option := range options {
		option(n)
	}
	n.BaseService = *service.NewBaseService(logger.With("module", "mocknode"), "MockNode", n)
	return n
}

// Handle registers h for method, replacing any previous handler. Handlers
// take precedence over subscription topics.
func (n *Node) Handle(method string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = h
}

// HandleSubscription serves a subscription topic on the websocket
// listener.
func (n *Node) HandleSubscription(subscribe, unsubscribe, notification string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics[subscribe] = topic{notification: notification}
	n.unsubscribes[unsubscribe] = true
}

func (n *Node) HTTPURL() string { return "http://" + n.httpAddr }

func (n *Node) WSURL() string { return "ws://" + n.wsAddr }

// Calls returns how many calls of method were received on both listeners.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

// Subscriptions returns the number of live subscriptions.
func (n *Node) Subscriptions() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Notify pushes result to the owner of subscription id.
func (n *Node) Notify(id uint64, result any) error {
	n.mu.Lock()
	sub, ok := n.subs[id]
	n.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSubscription, id)
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return sub.conn.writeJSON(jsonrpc.Notification{
		JSONRPC: jsonrpc.Version,
		Method:  sub.notification,
		Params:  jsonrpc.NotificationParams{Result: raw, Subscription: id},
	})
}

// Publish notifies every subscription whose notifications are named
// notification and returns how many were notified.
func (n *Node) Publish(notification string, result any) int {
	n.mu.Lock()
	var ids []uint64
	for id, sub := range n.subs {
		if sub.notification == notification {
			ids = append(ids, id)
		}
	}
	n.mu.Unlock()

	sent := 0
	for _, id := range ids {
		if n.Notify(id, result) == nil {
			sent++
		}
	}
	return sent
}

// Broadcast writes frame as is to every websocket connection and returns
// how many got it.
func (n *Node) Broadcast(frame []byte) int {
	sent := 0
	for _, c := range n.connections() {
		if c.write(frame) == nil {
			sent++
		}
	}
	return sent
}

// CloseConnections drops every websocket connection without a close
// handshake.
func (n *Node) CloseConnections() {
	for _, c := range n.connections() {
		_ = c.ws.Close()
	}
}

func (n *Node) connections() []*conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	conns := make([]*conn, 0, len(n.conns))
	for c := range n.conns {
		conns = append(conns, c)
	}
	return conns
}

func (n *Node) OnStart() error {
	httpListener, wsListener, err := n.listen()
	if err != nil {
		return err
	}
	n.httpAddr = httpListener.Addr().String()
	n.wsAddr = wsListener.Addr().String()

	n.httpServer = n.newServer(http.HandlerFunc(n.serveHTTP))
	n.wsServer = n.newServer(http.HandlerFunc(n.serveWS))

	n.Logger.Info("listening", "http", n.httpAddr, "ws", n.wsAddr)
	go n.httpServer.Serve(httpListener)
	go n.wsServer.Serve(wsListener)
	return nil
}

func (n *Node) OnStop() {
	n.httpServer.Close()
	n.wsServer.Close()
	n.CloseConnections()
}

func (n *Node) newServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadTimeout:       n.config.HTTPTimeouts.ReadTimeout,
		ReadHeaderTimeout: n.config.HTTPTimeouts.ReadHeaderTimeout,
		WriteTimeout:      n.config.HTTPTimeouts.WriteTimeout,
		IdleTimeout:       n.config.HTTPTimeouts.IdleTimeout,
	}
}

// listen opens the HTTP listener and the websocket listener on the port
// right above it. With port 0 free pairs are tried a few times.
func (n *Node) listen() (net.Listener, net.Listener, error) {
	host, port, err := net.SplitHostPort(n.config.ListenAddress)
	if err != nil {
		return nil, nil, err
	}
	attempts := 1
	if port == "0" {
		attempts = 20
	}
	for i := 0; i < attempts; i++ {
		n.Logger.Debug("try listening", "listenAddr", n.config.ListenAddress)
		httpListener, err := net.Listen("tcp", net.JoinHostPort(host, port))
		if err != nil {
			return nil, nil, err
		}
		next := httpListener.Addr().(*net.TCPAddr).Port + 1
		wsListener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(next)))
		if err == nil {
			return httpListener, wsListener, nil
		}
		httpListener.Close()
		n.Logger.Debug("pub/sub port taken", "port", next, "err", err)
	}
	return nil, nil, fmt.Errorf("no free port pair on %s", host)
}

func (n *Node) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req jsonrpc.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, reply(0, nil, &jsonrpc.Error{Code: -32700, Message: "Parse error"}))
		return
	}
	result, err := n.call(&req)
	if errors.Is(err, ErrUnavailable) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, reply(req.ID, result, err))
}

func (n *Node) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.Logger.Error("upgrade failed", "err", err)
		return
	}
	c := &conn{ws: ws}
	n.mu.Lock()
	n.conns[c] = struct{}{}
	n.mu.Unlock()
	defer n.dropConn(c)

	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var req jsonrpc.Request
		if err := json.Unmarshal(frame, &req); err != nil {
			n.Logger.Debug("bad frame", "err", err)
			continue
		}

		n.mu.Lock()
		_, handled := n.handlers[req.Method]
		t, isSubscribe := n.topics[req.Method]
		isUnsubscribe := n.unsubscribes[req.Method]
		n.mu.Unlock()

		switch {
		case !handled && isSubscribe:
			n.count(req.Method)
			_ = c.writeJSON(reply(req.ID, n.subscribe(c, t), nil))
		case !handled && isUnsubscribe:
			n.count(req.Method)
			_ = c.writeJSON(reply(req.ID, n.unsubscribe(c, req.Params), nil))
		default:
			// Plain calls may finish out of order.
			go func(req jsonrpc.Request) {
				result, err := n.call(&req)
				_ = c.writeJSON(reply(req.ID, result, err))
			}(req)
		}
	}
}

func (n *Node) count(method string) {
	n.mu.Lock()
	n.calls[method]++
	n.mu.Unlock()
}

func (n *Node) call(req *jsonrpc.Request) (any, error) {
	n.mu.Lock()
	n.calls[req.Method]++
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()
	n.Logger.Debug("call", "method", req.Method, "id", req.ID)
	if !ok {
		return nil, &jsonrpc.Error{Code: -32601, Message: "Method not found"}
	}
	return h(req.Params)
}

func (n *Node) subscribe(c *conn, t topic) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastSub++
	n.subs[n.lastSub] = &subscription{conn: c, notification: t.notification}
	return n.lastSub
}

func (n *Node) unsubscribe(c *conn, params json.RawMessage) bool {
	var ids []uint64
	if err := json.Unmarshal(params, &ids); err != nil || len(ids) != 1 {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	sub, ok := n.subs[ids[0]]
	if !ok || sub.conn != c {
		return false
	}
	delete(n.subs, ids[0])
	return true
}

func (n *Node) dropConn(c *conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.conns, c)
	for id, sub := range n.subs {
		if sub.conn == c {
			delete(n.subs, id)
		}
	}
	_ = c.ws.Close()
}

func reply(id uint32, result any, err error) *jsonrpc.Response {
	resp := &jsonrpc.Response{ID: id, JSONRPC: jsonrpc.Version}
	if err == nil {
		raw, merr := json.Marshal(result)
		if merr == nil {
			resp.Result = raw
			return resp
		}
		err = merr
	}
	var rpcErr *jsonrpc.Error
	if !errors.As(err, &rpcErr) {
		rpcErr = &jsonrpc.Error{Code: -32603, Message: err.Error()}
	}
	resp.Error = rpcErr
	return resp
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
