package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DOIDFoundation/chainrpc/jsonrpc"
	"github.com/DOIDFoundation/chainrpc/mocknode"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropReasons(t *testing.T) {
	node := mocknode.New(log.TestingLogger())
	release := make(chan struct{})
	node.Handle("slow", func(json.RawMessage) (any, error) {
		<-release
		return 1, nil
	})
	require.NoError(t, node.Start())
	defer node.Stop()

	p := NewProvider(node.HTTPURL(), log.TestingLogger())
	require.NoError(t, p.Start())
	defer p.Stop()

	orphaned := testutil.ToFloat64(droppedFrames.WithLabelValues(dropOrphaned))
	unknown := testutil.ToFloat64(droppedFrames.WithLabelValues(dropUnknownID))
	malformed := testutil.ToFloat64(droppedFrames.WithLabelValues(dropMalformed))

	req, err := jsonrpc.NewRequest(p.NextID(), "slow", nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Send(ctx, req)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, p.orphans.Contains(req.ID))

	close(release)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(droppedFrames.WithLabelValues(dropOrphaned)) == orphaned+1
	}, 5*time.Second, 5*time.Millisecond)
	assert.False(t, p.orphans.Contains(req.ID))

	node.Broadcast([]byte(`{"jsonrpc":"2.0","id":4000000000,"result":1}`))
	node.Broadcast([]byte(`[`))
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(droppedFrames.WithLabelValues(dropUnknownID)) == unknown+1 &&
			testutil.ToFloat64(droppedFrames.WithLabelValues(dropMalformed)) == malformed+1
	}, 5*time.Second, 5*time.Millisecond)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
}
