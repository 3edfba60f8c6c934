// Package sender turns typed requests into typed responses over a
// transport. A Sender makes exactly one transport attempt per call;
// retrying is left to the caller.
package sender

import (
	"context"
	"encoding/json"

	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/DOIDFoundation/chainrpc/method"
)

type Sender interface {
	// Send delivers req and returns the reply it got, unchecked.
	Send(ctx context.Context, req *jsonrpc.Request) (*jsonrpc.Response, error)
	// URL is the endpoint requests are delivered to.
	URL() string
}

// Do sends req once and returns the result of a reply that answers it.
// An error reply comes back as *jsonrpc.Error.
func Do(ctx context.Context, s Sender, req *jsonrpc.Request) (json.RawMessage, error) {
	resp, err := s.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Check(req); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Call sends the typed request req with the given id and decodes the
// result into its response type.
func Call[Resp any](ctx context.Context, s Sender, id uint32, req method.Request[Resp]) (Resp, error) {
	var zero Resp
	env, err := jsonrpc.NewRequest(id, req.Method(), req.Params())
	if err != nil {
		return zero, err
	}
	result, err := Do(ctx, s, env)
	if err != nil {
		return zero, err
	}
	return method.DecodeResult(req, result)
}
