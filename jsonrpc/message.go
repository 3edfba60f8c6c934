package jsonrpc

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/tidwall/gjson"
)

// Version is the only protocol version spoken by this package.
const Version = "2.0"

// Request is an outbound call envelope.
type Request struct {
	ID      uint32          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a unary reply. Exactly one of Result and Error is set on a
// well formed reply; a JSON null result is kept as the literal "null".
type Response struct {
	ID      uint32          `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Notification is a subscription message pushed by the server. It carries
// no request id, correlation is by Params.Subscription.
type Notification struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  NotificationParams `json:"params"`
}

// NotificationParams carries the subscription id and its payload.
type NotificationParams struct {
	Result       json.RawMessage `json:"result"`
	Subscription uint64          `json:"subscription"`
}

// Error is the error object of a reply.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewRequest builds a request envelope. Params are marshalled as given,
// except that null and arrays holding only nulls are dropped so that the
// params member is absent on the wire.
func NewRequest(id uint32, method string, params any) (*Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params of %s: %w", method, err)
	}
	if emptyParams(raw) {
		raw = nil
	}
	return &Request{ID: id, JSONRPC: Version, Method: method, Params: raw}, nil
}

// emptyParams reports whether raw is null or an array of nulls. The empty
// array counts as an array of nulls.
func emptyParams(raw []byte) bool {
	res := gjson.ParseBytes(raw)
	if res.Type == gjson.Null {
		return true
	}
	if !res.IsArray() {
		return false
	}
	empty := true
	res.ForEach(func(_, v gjson.Result) bool {
		empty = v.Type == gjson.Null
		return empty
	})
	return empty
}

// DecodeResponse parses a unary reply. The payload must be valid JSON
// with an id and at least one of result or error.
func DecodeResponse(payload []byte) (*Response, error) {
	if !gjson.ValidBytes(payload) {
		return nil, invalid(payload, "not valid JSON")
	}
	if !gjson.GetBytes(payload, "id").Exists() {
		return nil, invalid(payload, "missing id")
	}
	if !gjson.GetBytes(payload, "result").Exists() && !gjson.GetBytes(payload, "error").Exists() {
		return nil, invalid(payload, "missing result")
	}
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, invalid(payload, err.Error())
	}
	return &resp, nil
}

// DecodeNotification parses a subscription notification.
func DecodeNotification(payload []byte) (*Notification, error) {
	if !gjson.ValidBytes(payload) {
		return nil, invalid(payload, "not valid JSON")
	}
	for _, path := range []string{"method", "params.subscription", "params.result"} {
		if !gjson.GetBytes(payload, path).Exists() {
			return nil, invalid(payload, "missing "+path)
		}
	}
	var n Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, invalid(payload, err.Error())
	}
	return &n, nil
}

// Check verifies that r answers req and turns an error reply into *Error.
func (r *Response) Check(req *Request) error {
	if r.ID != req.ID {
		return &ProtocolError{
			Method: req.Method,
			Err:    fmt.Errorf("%w: got %d, want %d", ErrIDMismatch, r.ID, req.ID),
		}
	}
	if r.Error != nil {
		return r.Error
	}
	if r.Result == nil {
		return &ProtocolError{Method: req.Method, Err: fmt.Errorf("%w: missing result", ErrInvalidMessage)}
	}
	return nil
}

func invalid(payload []byte, reason string) error {
	return &ProtocolError{Payload: payload, Err: fmt.Errorf("%w: %s", ErrInvalidMessage, reason)}
}

// Kind is the class of an inbound frame.
type Kind int

const (
	KindInvalid Kind = iota
	KindReply
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindReply:
		return "reply"
	case KindNotification:
		return "notification"
	default:
		return "invalid"
	}
}

// Classify looks at member presence only, the frame is not decoded.
func Classify(frame []byte) Kind {
	if !gjson.ValidBytes(frame) {
		return KindInvalid
	}
	if gjson.GetBytes(frame, "id").Exists() {
		return KindReply
	}
	if gjson.GetBytes(frame, "method").Exists() && gjson.GetBytes(frame, "params.subscription").Exists() {
		return KindNotification
	}
	return KindInvalid
}

// IDGenerator hands out request ids. The zero value is ready to use and
// starts at 1; zero is never returned, also after wrapping.
type IDGenerator struct {
	last atomic.Uint32
}

func (g *IDGenerator) Next() uint32 {
	for {
		if id := g.last.Add(1); id != 0 {
			return id
		}
	}
}
