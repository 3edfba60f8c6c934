package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/cometbft/cometbft/libs/log"
	"go.uber.org/ratelimit"
)

// Defines the configuration options for the HTTP sender
type Config struct {
	// HTTP(S) endpoint of the node
	URL string `mapstructure:"url"`
	// Timeout of one request, reading the reply included
	Timeout time.Duration `mapstructure:"timeout"`
	// Maximum requests per second, 0 for no limit
	RateLimit int `mapstructure:"rate_limit"`
}

// DefaultConfig returns a default configuration for the HTTP sender
var DefaultConfig = Config{
	URL:     "http://127.0.0.1:8899",
	Timeout: 30 * time.Second,
}

const maxReplySize = 64 << 20

// HTTPSender posts each request as the body of one HTTP request.
type HTTPSender struct {
	config  Config
	client  *http.Client
	limiter ratelimit.Limiter
	logger  log.Logger
}

var _ Sender = (*HTTPSender)(nil)

func NewHTTPSender(config Config, logger log.Logger) *HTTPSender {
	limiter := ratelimit.NewUnlimited()
	if config.RateLimit > 0 {
		limiter = ratelimit.New(config.RateLimit)
	}
	return &HTTPSender{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: limiter,
		logger:  logger.With("module", "sender"),
	}
}

func (s *HTTPSender) URL() string {
	return s.config.URL
}

func (s *HTTPSender) Send(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	start := time.Now()
	resp, err := s.send(ctx, req)
	Observe(req.Method, start, err)
	if err != nil {
		s.logger.Debug("request failed", "method", req.Method, "id", req.ID, "err", err)
	}
	return resp, err
}

func (s *HTTPSender) send(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request %s: %w", req.Method, err)
	}

	s.limiter.Take()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &jsonrpc.TransportError{Method: req.Method, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &jsonrpc.TransportError{Method: req.Method, Err: err}
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxReplySize))
	if err != nil {
		return nil, &jsonrpc.TransportError{Method: req.Method, Err: fmt.Errorf("read reply: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		// Nodes answer some errors with a non 2xx status and a JSON-RPC
		// error body, that body wins over the status.
		if resp, err := jsonrpc.DecodeResponse(payload); err == nil && resp.Error != nil {
			return resp, nil
		}
		return nil, &jsonrpc.TransportError{Method: req.Method, Err: fmt.Errorf("http status %s", httpResp.Status)}
	}

	resp, err := jsonrpc.DecodeResponse(payload)
	if err != nil {
		var pe *jsonrpc.ProtocolError
		if errors.As(err, &pe) {
			pe.Method = req.Method
		}
		return nil, err
	}
	return resp, nil
}
