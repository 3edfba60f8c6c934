package method_test

import (
	"encoding/json"
	"testing"

	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/DOIDFoundation/chainrpc/method"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wireParams(t *testing.T, name string, params any) string {
	req, err := jsonrpc.NewRequest(1, name, params)
	require.NoError(t, err)
	return string(req.Params)
}

func TestParams(t *testing.T) {
	cases := []struct {
		name   string
		method string
		params any
		want   string
	}{
		{"no config", "getSlot", method.GetSlot{}.Params(), ""},
		{"commitment", "getSlot", method.GetSlot{Commitment: method.CommitmentFinalized}.Params(), `[{"commitment":"finalized"}]`},
		{"balance", "getBalance", method.GetBalance{Address: "abc"}.Params(), `["abc",null]`},
		{"account", "getAccountInfo", method.GetAccountInfo{Address: "abc", Encoding: method.EncodingBase64}.Params(), `["abc",{"encoding":"base64"}]`},
		{"version", "getVersion", method.GetVersion{}.Params(), ""},
		{"logs all", "logsSubscribe", method.LogsSubscribe{}.Params(), `["all",null]`},
		{"logs mentions", "logsSubscribe", method.LogsSubscribe{Mentions: []string{"p1"}, Commitment: method.CommitmentConfirmed}.Params(), `[{"mentions":["p1"]},{"commitment":"confirmed"}]`},
		{"signature", "signatureSubscribe", method.SignatureSubscribe{Signature: "sig"}.Params(), `["sig",null]`},
		{"slot", "slotSubscribe", method.SlotSubscribe{}.Params(), ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := wireParams(t, c.method, c.params)
			if c.want == "" {
				assert.Empty(t, got)
			} else {
				assert.JSONEq(t, c.want, got)
			}
		})
	}
}

func TestMethodNames(t *testing.T) {
	assert.Equal(t, "getBalance", method.GetBalance{}.Method())
	assert.Equal(t, "accountSubscribe", method.AccountSubscribe{}.Method())
	assert.Equal(t, "accountUnsubscribe", method.AccountSubscribe{}.UnsubscribeMethod())
	raw := method.RawSubscription{Name: "rootSubscribe", Unsubscribe: "rootUnsubscribe"}
	assert.Equal(t, "rootSubscribe", raw.Method())
	assert.Equal(t, "rootUnsubscribe", raw.UnsubscribeMethod())
}

func TestDecodeResultRoundTrip(t *testing.T) {
	want := method.WithContext[uint64]{Context: method.Context{Slot: 9}, Value: 1500}
	raw, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := method.DecodeResult[method.WithContext[uint64]](method.GetBalance{Address: "abc"}, raw)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	hash, err := method.DecodeResult[method.WithContext[method.Blockhash]](method.GetLatestBlockhash{},
		json.RawMessage(`{"context":{"slot":2},"value":{"blockhash":"h","lastValidBlockHeight":3}}`))
	require.NoError(t, err)
	assert.Equal(t, "h", hash.Value.Blockhash)
	assert.Equal(t, uint64(3), hash.Value.LastValidBlockHeight)
}

func TestDecodeResultMismatch(t *testing.T) {
	raw := json.RawMessage(`"not a slot"`)
	_, err := method.DecodeResult[uint64](method.GetSlot{}, raw)
	var de *jsonrpc.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "getSlot", de.Method)
	assert.Equal(t, []byte(raw), de.Payload)
	assert.False(t, jsonrpc.IsRetryable(err))
}

func TestDecodeNotification(t *testing.T) {
	info, err := method.DecodeNotification[method.SlotInfo](method.SlotSubscribe{}, json.RawMessage(`{"parent":75,"root":44,"slot":76}`))
	require.NoError(t, err)
	assert.Equal(t, method.SlotInfo{Parent: 75, Root: 44, Slot: 76}, info)

	_, err = method.DecodeNotification[method.SlotInfo](method.SlotSubscribe{}, json.RawMessage(`[]`))
	var de *jsonrpc.DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "slotSubscribe", de.Method)
}

func TestRawKeepsResult(t *testing.T) {
	got, err := method.DecodeResult[json.RawMessage](method.Raw{Name: "getFoo"}, json.RawMessage(`{"a":[1,2]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[1,2]}`, string(got))
}
