package config

import (
	"fmt"

	"github.com/DOIDFoundation/chainrpc/flags"
	"github.com/DOIDFoundation/chainrpc/pubsub"
	"github.com/DOIDFoundation/chainrpc/retry"
	"github.com/DOIDFoundation/chainrpc/sender"
	"github.com/spf13/viper"
)

// Config gathers the settings of every client component.
type Config struct {
	RPC   sender.Config `mapstructure:"rpc"`
	Retry retry.Config  `mapstructure:"retry"`
	WS    pubsub.Config `mapstructure:"ws"`
}

var DefaultConfig = Config{
	RPC:   sender.DefaultConfig,
	Retry: retry.DefaultConfig,
	WS:    pubsub.DefaultConfig,
}

// SetDefaults registers the default of every key with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(flags.RPC_URL, DefaultConfig.RPC.URL)
	v.SetDefault(flags.RPC_Timeout, DefaultConfig.RPC.Timeout)
	v.SetDefault(flags.RPC_RateLimit, DefaultConfig.RPC.RateLimit)
	v.SetDefault(flags.Retry_Attempts, DefaultConfig.Retry.MaxAttempts)
	v.SetDefault(flags.Retry_Delay, DefaultConfig.Retry.Delay)
	v.SetDefault(flags.WS_URL, DefaultConfig.WS.URL)
	v.SetDefault(flags.WS_Buffer, DefaultConfig.WS.NotificationBuffer)
	v.SetDefault(flags.WS_HandshakeTimeout, DefaultConfig.WS.HandshakeTimeout)
	v.SetDefault(flags.WS_WriteTimeout, DefaultConfig.WS.WriteTimeout)
}

// Load reads the configuration from the global viper instance.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (Config, error) {
	config := DefaultConfig
	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("load config: %w", err)
	}
	if err := config.Retry.Validate(); err != nil {
		return config, fmt.Errorf("load config: %w", err)
	}
	return config, nil
}
