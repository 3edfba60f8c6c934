package config_test

import (
	"testing"
	"time"

	"github.com/DOIDFoundation/chainrpc/config"
	"github.com/DOIDFoundation/chainrpc/flags"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	c, err := config.LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig, c)
	assert.Equal(t, 40, c.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, c.Retry.Delay)
	assert.Equal(t, "http://127.0.0.1:8899", c.RPC.URL)
	assert.Empty(t, c.WS.URL)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set(flags.RPC_URL, "https://api.example.com")
	v.Set(flags.RPC_RateLimit, 5)
	v.Set(flags.Retry_Attempts, 3)
	v.Set(flags.Retry_Delay, "1s")
	v.Set(flags.WS_URL, "wss://stream.example.com")
	v.Set(flags.WS_Buffer, 8)

	c, err := config.LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", c.RPC.URL)
	assert.Equal(t, 5, c.RPC.RateLimit)
	assert.Equal(t, 3, c.Retry.MaxAttempts)
	assert.Equal(t, time.Second, c.Retry.Delay)
	assert.Equal(t, "wss://stream.example.com", c.WS.URL)
	assert.Equal(t, 8, c.WS.NotificationBuffer)
	assert.Equal(t, 30*time.Second, c.RPC.Timeout)
}

func TestInvalidRetry(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set(flags.Retry_Delay, "0s")
	_, err := config.LoadFrom(v)
	assert.ErrorContains(t, err, "retry delay")
}
