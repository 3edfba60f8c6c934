package commands

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/DOIDFoundation/chainrpc/method"
	"github.com/DOIDFoundation/chainrpc/mocknode"
	"github.com/DOIDFoundation/chainrpc/version"
	"github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagListenAddr   = "laddr"
	flagSlotInterval = "slot-interval"
)

// addMockNodeFlags exposes configuration options for running a mock node.
func addMockNodeFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagListenAddr, "127.0.0.1:8899", "HTTP listen address, pub/sub listens on the next port")
	cmd.Flags().Duration(flagSlotInterval, 400*time.Millisecond, "interval between two slot notifications")
}

// newMockNode returns a node answering a few read methods and producing a
// slot every interval.
func newMockNode(laddr string) (*mocknode.Node, *atomic.Uint64) {
	config := mocknode.DefaultConfig
	config.ListenAddress = laddr
	n := mocknode.New(logger, mocknode.WithConfig(config))

	var slot atomic.Uint64
	n.Handle("getHealth", func(json.RawMessage) (any, error) { return "ok", nil })
	n.Handle("getVersion", func(json.RawMessage) (any, error) {
		return method.Version{Core: version.VersionWithMeta}, nil
	})
	n.Handle("getSlot", func(json.RawMessage) (any, error) { return slot.Load(), nil })
	n.HandleSubscription("slotSubscribe", "slotUnsubscribe", "slotNotification")
	return n, &slot
}

// MockNodeCmd runs an in-process node to try the other commands against.
var MockNodeCmd = &cobra.Command{
	Use:     "mocknode",
	Aliases: []string{"node"},
	Short:   "Run a local mock node",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, slot := newMockNode(viper.GetString(flagListenAddr))
		if err := n.Start(); err != nil {
			return fmt.Errorf("failed to start mock node: %w", err)
		}
		logger.Info("started mock node", "http", n.HTTPURL(), "ws", n.WSURL())

		ticker := time.NewTicker(viper.GetDuration(flagSlotInterval))
		defer ticker.Stop()

		// Stop upon receiving SIGTERM or CTRL-C.
		os.TrapSignal(logger, func() {
			if n.IsRunning() {
				if err := n.Stop(); err != nil {
					logger.Error("unable to stop the mock node", "error", err)
				}
			}
		})

		for {
			select {
			case <-ticker.C:
				s := slot.Add(1)
				info := method.SlotInfo{Parent: s - 1, Slot: s}
				if s > 32 {
					info.Root = s - 32
				}
				n.Publish("slotNotification", info)
			case <-n.Quit():
				return nil
			}
		}
	},
}

func init() {
	addMockNodeFlags(MockNodeCmd)
}
