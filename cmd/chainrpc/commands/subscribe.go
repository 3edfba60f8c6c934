package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DOIDFoundation/chainrpc/client"
	"github.com/DOIDFoundation/chainrpc/flags"
	"github.com/DOIDFoundation/chainrpc/method"
	"github.com/cometbft/cometbft/libs/os"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// SubscribeCmd prints the notifications of one subscription until
// interrupted or the connection closes.
var SubscribeCmd = &cobra.Command{
	Use:     "subscribe <method> <unsubscribe-method> [params-json]",
	Aliases: []string{"sub"},
	Short:   "Subscribe and print notifications",
	Example: `  chainrpc subscribe slotSubscribe slotUnsubscribe
  chainrpc subscribe logsSubscribe logsUnsubscribe '["all"]'`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[2:])
		if err != nil {
			return err
		}
		if addr := viper.GetString(flags.Metrics_Addr); addr != "" {
			serveMetrics(addr)
		}

		c, err := newClient()
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		defer c.Stop()

		ctx := cmd.Context()
		stream, err := client.Subscribe[json.RawMessage](ctx, c, method.RawSubscription{
			Name:        args[0],
			Unsubscribe: args[1],
			Args:        params,
		})
		if err != nil {
			return err
		}
		logger.Info("subscribed", "method", args[0], "subscription", stream.ID())

		// Unsubscribe upon receiving SIGTERM or CTRL-C.
		os.TrapSignal(logger, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := stream.Unsubscribe(ctx); err != nil {
				logger.Error("unable to unsubscribe", "error", err)
			}
			if err := c.Stop(); err != nil {
				logger.Error("unable to stop the client", "error", err)
			}
		})

		for {
			n, err := stream.Next(ctx)
			if errors.Is(err, client.ErrStreamEnded) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := printJSON(cmd, n); err != nil {
				return err
			}
		}
	},
}

func init() {
	SubscribeCmd.Flags().String(flags.Metrics_Addr, "", "serve prometheus metrics on this address")
	SubscribeCmd.Flags().Int(flags.WS_Buffer, 64, "notifications buffered before the reader waits")
}
