package flags

const (
	Home  = "home"
	Trace = "trace"

	Log_Level = "log.level"
	Log_File  = "log.file"

	Metrics_Addr = "metrics.addr"

	Retry_Attempts = "retry.attempts"
	Retry_Delay    = "retry.delay"

	RPC_URL       = "rpc.url"
	RPC_Timeout   = "rpc.timeout"
	RPC_RateLimit = "rpc.rate_limit"

	WS_URL              = "ws.url"
	WS_Buffer           = "ws.buffer"
	WS_HandshakeTimeout = "ws.handshake_timeout"
	WS_WriteTimeout     = "ws.write_timeout"
)
