package method

import "encoding/json"

type SlotInfo struct {
	Parent uint64 `json:"parent"`
	Root   uint64 `json:"root"`
	Slot   uint64 `json:"slot"`
}

// SlotSubscribe notifies each time a slot is processed.
type SlotSubscribe struct {
	JSONNotification[SlotInfo]
}

func (SlotSubscribe) Method() string            { return "slotSubscribe" }
func (SlotSubscribe) UnsubscribeMethod() string { return "slotUnsubscribe" }
func (SlotSubscribe) Params() any               { return nil }

// AccountSubscribe notifies when the lamports or data of an account
// change. The account value is left undecoded.
type AccountSubscribe struct {
	JSONNotification[WithContext[json.RawMessage]]
	Address    string
	Encoding   Encoding
	Commitment Commitment
}

func (AccountSubscribe) Method() string            { return "accountSubscribe" }
func (AccountSubscribe) UnsubscribeMethod() string { return "accountUnsubscribe" }
func (r AccountSubscribe) Params() any {
	return withConfig(config(r.Commitment, r.Encoding), r.Address)
}

type Logs struct {
	Signature string          `json:"signature"`
	Err       json.RawMessage `json:"err"`
	Logs      []string        `json:"logs"`
}

// LogsSubscribe notifies of transaction logs. With no Mentions every
// transaction is reported.
type LogsSubscribe struct {
	JSONNotification[WithContext[Logs]]
	Mentions   []string
	Commitment Commitment
}

func (LogsSubscribe) Method() string            { return "logsSubscribe" }
func (LogsSubscribe) UnsubscribeMethod() string { return "logsUnsubscribe" }
func (r LogsSubscribe) Params() any {
	var filter any = "all"
	if len(r.Mentions) > 0 {
		filter = map[string][]string{"mentions": r.Mentions}
	}
	return withConfig(config(r.Commitment, ""), filter)
}

// SignatureSubscribe notifies once when a transaction reaches the
// commitment. The server drops the subscription after that notification.
type SignatureSubscribe struct {
	JSONNotification[WithContext[json.RawMessage]]
	Signature  string
	Commitment Commitment
}

func (SignatureSubscribe) Method() string            { return "signatureSubscribe" }
func (SignatureSubscribe) UnsubscribeMethod() string { return "signatureUnsubscribe" }
func (r SignatureSubscribe) Params() any {
	return withConfig(config(r.Commitment, ""), r.Signature)
}

// RawSubscription subscribes to any method by name and leaves
// notifications undecoded.
type RawSubscription struct {
	JSONNotification[json.RawMessage]
	Name        string
	Unsubscribe string
	Args        any
}

func (r RawSubscription) Method() string            { return r.Name }
func (r RawSubscription) UnsubscribeMethod() string { return r.Unsubscribe }
func (r RawSubscription) Params() any               { return r.Args }
