package mocknode

import "github.com/ethereum/go-ethereum/rpc"

// Defines the configuration options for the mock node
type Config struct {
	// TCP address of the HTTP listener, port 0 picks a free pair. The
	// pub/sub listener always takes the next port.
	ListenAddress string `mapstructure:"laddr"`
	// HTTPTimeouts allows for customization of the timeout values used by
	// both listeners.
	HTTPTimeouts rpc.HTTPTimeouts
}

// DefaultConfig returns a default configuration for the mock node
var DefaultConfig = Config{
	ListenAddress: "127.0.0.1:0",
	HTTPTimeouts:  rpc.DefaultHTTPTimeouts,
}
