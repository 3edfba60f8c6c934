/*
Package jsonrpc holds the JSON-RPC 2.0 envelopes exchanged with a node,
over HTTP and over websocket streams.

# Example

request:

	{"id":1,"jsonrpc":"2.0","method":"getBalance","params":["83astBRguLMdt2h5U1Tpdq5tjFoJ6noeGwaY3mDLVcri"]}

response:

	{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":0}}

A request without parameters leaves `params` out:

	{"id":2,"jsonrpc":"2.0","method":"getSlot"}

The same holds when every parameter is null, so `[null, null]` is sent as
no parameters at all.

# Response

`id` in a reply must be the id of the request it answers, a reply with
another id is reported as a [ProtocolError] wrapping [ErrIDMismatch].
A reply carrying an `error` object is returned as [*Error].

# Subscriptions

Subscriptions are only available on websocket streams. The subscribe call
is an ordinary request whose result is a numeric subscription id:

	{"id":3,"jsonrpc":"2.0","method":"slotSubscribe"}
	{"jsonrpc":"2.0","id":3,"result":42}

Notifications for it carry the id in `params.subscription` and no request
id:

	{"jsonrpc":"2.0","method":"slotNotification","params":{"result":{"parent":75,"root":44,"slot":76},"subscription":42}}

Use [Classify] to tell replies and notifications apart.
*/
package jsonrpc
