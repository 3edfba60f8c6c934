/*
Package mocknode runs an in-process JSON-RPC node for tests and local
experiments.

The node listens for HTTP POST calls on one port and for websocket
connections on the next one, the layout [github.com/DOIDFoundation/chainrpc/pubsub.DeriveURL]
expects.

# Calls

Every method answered by the node is registered with [Node.Handle]:

	node.Handle("getSlot", func(json.RawMessage) (any, error) {
		return 1234, nil
	})

request:

	{"id":1,"jsonrpc":"2.0","method":"getSlot"}

response:

	{"id":1,"jsonrpc":"2.0","result":1234}

A handler returning a [github.com/DOIDFoundation/chainrpc/jsonrpc.Error]
produces an error reply. [ErrUnavailable] makes HTTP calls fail with
status 503 and no body.

# Subscriptions

Subscriptions are served on the websocket listener only. A topic is made
of a subscribe method, an unsubscribe method and the notification method:

	node.HandleSubscription("slotSubscribe", "slotUnsubscribe", "slotNotification")

Subscribing returns a numeric id, notifications are pushed with
[Node.Notify]:

	{"id":2,"jsonrpc":"2.0","method":"slotSubscribe"}
	{"id":2,"jsonrpc":"2.0","result":1}
	{"jsonrpc":"2.0","method":"slotNotification","params":{"result":{"slot":5},"subscription":1}}

[Node.Broadcast] writes arbitrary frames to every connection and
[Node.CloseConnections] drops them all.
*/
package mocknode
