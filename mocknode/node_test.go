package mocknode_test

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"testing"

	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/DOIDFoundation/chainrpc/mocknode"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startNode(t *testing.T) *mocknode.Node {
	node := mocknode.New(log.TestingLogger())
	require.NoError(t, node.Start())
	t.Cleanup(func() { _ = node.Stop() })
	return node
}

func post(t *testing.T, url, body string) (*http.Response, *jsonrpc.Response) {
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	var reply jsonrpc.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	return resp, &reply
}

func TestPortLayout(t *testing.T) {
	node := startNode(t)
	_, httpPort, err := net.SplitHostPort(node.HTTPURL()[len("http://"):])
	require.NoError(t, err)
	_, wsPort, err := net.SplitHostPort(node.WSURL()[len("ws://"):])
	require.NoError(t, err)

	h, _ := strconv.Atoi(httpPort)
	w, _ := strconv.Atoi(wsPort)
	assert.Equal(t, h+1, w)
}

func TestHTTPCalls(t *testing.T) {
	node := startNode(t)
	node.Handle("getSlot", func(json.RawMessage) (any, error) { return 7, nil })
	node.Handle("echo", func(params json.RawMessage) (any, error) { return params, nil })
	node.Handle("busy", func(json.RawMessage) (any, error) { return nil, mocknode.ErrUnavailable })

	_, reply := post(t, node.HTTPURL(), `{"id":1,"jsonrpc":"2.0","method":"getSlot"}`)
	assert.Equal(t, uint32(1), reply.ID)
	assert.Equal(t, "7", string(reply.Result))

	_, reply = post(t, node.HTTPURL(), `{"id":2,"jsonrpc":"2.0","method":"echo","params":["a",1]}`)
	assert.JSONEq(t, `["a",1]`, string(reply.Result))

	_, reply = post(t, node.HTTPURL(), `{"id":3,"jsonrpc":"2.0","method":"nope"}`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, -32601, reply.Error.Code)

	resp, _ := post(t, node.HTTPURL(), `{"id":4,"jsonrpc":"2.0","method":"busy"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	assert.Equal(t, 1, node.Calls("getSlot"))
	assert.Equal(t, 1, node.Calls("busy"))
}

func TestWebsocketSubscriptions(t *testing.T) {
	node := startNode(t)
	node.HandleSubscription("slotSubscribe", "slotUnsubscribe", "slotNotification")

	ws, _, err := websocket.DefaultDialer.Dial(node.WSURL(), nil)
	require.NoError(t, err)
	defer ws.Close()

	var reply jsonrpc.Response
	require.NoError(t, ws.WriteJSON(jsonrpc.Request{ID: 1, JSONRPC: jsonrpc.Version, Method: "slotSubscribe"}))
	require.NoError(t, ws.ReadJSON(&reply))
	var id uint64
	require.NoError(t, json.Unmarshal(reply.Result, &id))
	assert.Equal(t, 1, node.Subscriptions())

	require.NoError(t, node.Notify(id, map[string]int{"slot": 5}))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	n, err := jsonrpc.DecodeNotification(frame)
	require.NoError(t, err)
	assert.Equal(t, "slotNotification", n.Method)
	assert.Equal(t, id, n.Params.Subscription)
	assert.JSONEq(t, `{"slot":5}`, string(n.Params.Result))

	params, _ := json.Marshal([]uint64{id})
	require.NoError(t, ws.WriteJSON(jsonrpc.Request{ID: 2, JSONRPC: jsonrpc.Version, Method: "slotUnsubscribe", Params: params}))
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, "true", string(reply.Result))
	assert.Equal(t, 0, node.Subscriptions())
	assert.ErrorIs(t, node.Notify(id, 1), mocknode.ErrUnknownSubscription)

	require.NoError(t, ws.WriteJSON(jsonrpc.Request{ID: 3, JSONRPC: jsonrpc.Version, Method: "slotUnsubscribe", Params: params}))
	require.NoError(t, ws.ReadJSON(&reply))
	assert.Equal(t, "false", string(reply.Result))
}
