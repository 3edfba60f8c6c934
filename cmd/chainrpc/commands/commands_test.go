package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetArgs(args)
	defer RootCmd.SetArgs(nil)
	err := RootCmd.Execute()
	return out.String(), err
}

func TestEndpoint(t *testing.T) {
	out, err := execute(t, "endpoint", "http://localhost:8899")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8900\n", out)

	out, err = execute(t, "endpoint", "https://api.example.com")
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com\n", out)
}

func TestCall(t *testing.T) {
	n, slot := newMockNode("127.0.0.1:0")
	require.NoError(t, n.Start())
	defer n.Stop()
	slot.Store(77)

	out, err := execute(t, "call", "getSlot", "--rpc.url", n.HTTPURL(), "--log.level", "error")
	require.NoError(t, err)
	assert.Equal(t, "77\n", out)

	out, err = execute(t, "call", "getVersion", "--rpc.url", n.HTTPURL(), "--log.level", "error")
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.True(t, strings.HasPrefix(v["solana-core"].(string), "0.1.0"))
}

func TestCallRejectsBadParams(t *testing.T) {
	_, err := execute(t, "call", "getSlot", "{not json", "--log.level", "error")
	assert.ErrorContains(t, err, "not valid JSON")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: 0.1.0")
}
