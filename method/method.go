// Package method defines the contract between a typed request and the
// remote method it calls, plus a small catalog of methods built on it.
package method

import (
	"encoding/json"

	"github.com/DOIDFoundation/chainrpc/jsonrpc"
)

// Request pairs a request value with its remote method name and with the
// response type Resp decoded from the reply's result.
type Request[Resp any] interface {
	Method() string
	Params() any
	DecodeResult(json.RawMessage) (Resp, error)
}

// Subscription pairs a subscribe request with its unsubscribe method and
// with the notification type N.
type Subscription[N any] interface {
	Method() string
	UnsubscribeMethod() string
	Params() any
	DecodeNotification(json.RawMessage) (N, error)
}

// JSONResult implements DecodeResult with encoding/json. Embed it in a
// request type to declare its response type.
type JSONResult[Resp any] struct{}

func (JSONResult[Resp]) DecodeResult(raw json.RawMessage) (Resp, error) {
	var resp Resp
	err := json.Unmarshal(raw, &resp)
	return resp, err
}

// JSONNotification implements DecodeNotification with encoding/json.
type JSONNotification[N any] struct{}

func (JSONNotification[N]) DecodeNotification(raw json.RawMessage) (N, error) {
	var n N
	err := json.Unmarshal(raw, &n)
	return n, err
}

// DecodeResult converts a reply result into the typed response of req.
// Failures are returned as *jsonrpc.DecodeError carrying the raw result.
func DecodeResult[Resp any](req Request[Resp], raw json.RawMessage) (Resp, error) {
	resp, err := req.DecodeResult(raw)
	if err != nil {
		var zero Resp
		return zero, &jsonrpc.DecodeError{Method: req.Method(), Payload: raw, Err: err}
	}
	return resp, nil
}

// DecodeNotification converts a notification result into the typed value
// of sub, failures are returned as *jsonrpc.DecodeError.
func DecodeNotification[N any](sub Subscription[N], raw json.RawMessage) (N, error) {
	n, err := sub.DecodeNotification(raw)
	if err != nil {
		var zero N
		return zero, &jsonrpc.DecodeError{Method: sub.Method(), Payload: raw, Err: err}
	}
	return n, nil
}
