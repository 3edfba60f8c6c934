package commands

import (
	"fmt"

	"github.com/DOIDFoundation/chainrpc/flags"
	"github.com/DOIDFoundation/chainrpc/pubsub"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EndpointCmd prints the websocket endpoint subscriptions would use.
var EndpointCmd = &cobra.Command{
	Use:   "endpoint [http-url]",
	Short: "Print the websocket endpoint derived from an HTTP endpoint",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			fmt.Fprintln(cmd.OutOrStdout(), pubsub.DeriveURL(args[0]))
			return
		}
		if url := viper.GetString(flags.WS_URL); url != "" {
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), pubsub.DeriveURL(viper.GetString(flags.RPC_URL)))
	},
}
