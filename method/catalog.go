package method

import "encoding/json"

type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

type Encoding string

const (
	EncodingBase58     Encoding = "base58"
	EncodingBase64     Encoding = "base64"
	EncodingBase64Zstd Encoding = "base64+zstd"
	EncodingJSONParsed Encoding = "jsonParsed"
)

// Context is the slot a value was read at.
type Context struct {
	Slot uint64 `json:"slot"`
}

// WithContext is the {context, value} wrapper used by most state reads.
type WithContext[T any] struct {
	Context Context `json:"context"`
	Value   T       `json:"value"`
}

// config builds the trailing configuration object. It returns a nil map
// when nothing is set, which makes a params array of nulls and so no
// params on the wire.
func config(commitment Commitment, encoding Encoding) map[string]any {
	if commitment == "" && encoding == "" {
		return nil
	}
	c := make(map[string]any, 2)
	if commitment != "" {
		c["commitment"] = commitment
	}
	if encoding != "" {
		c["encoding"] = encoding
	}
	return c
}

func withConfig(cfg map[string]any, args ...any) []any {
	if cfg == nil {
		return append(args, nil)
	}
	return append(args, cfg)
}

type Version struct {
	Core       string `json:"solana-core"`
	FeatureSet uint32 `json:"feature-set"`
}

// GetVersion returns the software version of the node.
type GetVersion struct {
	JSONResult[Version]
}

func (GetVersion) Method() string { return "getVersion" }
func (GetVersion) Params() any    { return nil }

// GetHealth returns "ok" when the node is healthy. An unhealthy node
// answers with an error reply.
type GetHealth struct {
	JSONResult[string]
}

func (GetHealth) Method() string { return "getHealth" }
func (GetHealth) Params() any    { return nil }

// GetSlot returns the slot reached at the given commitment.
type GetSlot struct {
	JSONResult[uint64]
	Commitment Commitment
}

func (GetSlot) Method() string { return "getSlot" }
func (r GetSlot) Params() any  { return withConfig(config(r.Commitment, "")) }

// GetBalance returns the balance of an account in lamports.
type GetBalance struct {
	JSONResult[WithContext[uint64]]
	Address    string
	Commitment Commitment
}

func (GetBalance) Method() string { return "getBalance" }
func (r GetBalance) Params() any  { return withConfig(config(r.Commitment, ""), r.Address) }

// GetAccountInfo returns the account at Address. The value is null when
// the account does not exist and is otherwise left undecoded.
type GetAccountInfo struct {
	JSONResult[WithContext[json.RawMessage]]
	Address    string
	Encoding   Encoding
	Commitment Commitment
}

func (GetAccountInfo) Method() string { return "getAccountInfo" }
func (r GetAccountInfo) Params() any {
	return withConfig(config(r.Commitment, r.Encoding), r.Address)
}

type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// GetLatestBlockhash returns the most recent blockhash.
type GetLatestBlockhash struct {
	JSONResult[WithContext[Blockhash]]
	Commitment Commitment
}

func (GetLatestBlockhash) Method() string { return "getLatestBlockhash" }
func (r GetLatestBlockhash) Params() any  { return withConfig(config(r.Commitment, "")) }

// Raw calls any method by name and leaves the result undecoded.
type Raw struct {
	JSONResult[json.RawMessage]
	Name string
	Args any
}

func (r Raw) Method() string { return r.Name }
func (r Raw) Params() any    { return r.Args }
