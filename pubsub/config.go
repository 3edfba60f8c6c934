package pubsub

import "time"

// Defines the configuration options for the pub/sub provider
type Config struct {
	// Explicit websocket endpoint. When empty it is derived from the HTTP
	// endpoint given to NewProvider.
	URL string `mapstructure:"url"`
	// Notifications buffered per subscription before the reader blocks
	NotificationBuffer int `mapstructure:"buffer"`
	// Timeout of the websocket handshake
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	// Timeout of writing one frame
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns a default configuration for the pub/sub provider
var DefaultConfig = Config{
	NotificationBuffer: 64,
	HandshakeTimeout:   10 * time.Second,
	WriteTimeout:       10 * time.Second,
}
