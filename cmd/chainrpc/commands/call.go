package commands

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/DOIDFoundation/chainrpc/client"
	"github.com/DOIDFoundation/chainrpc/flags"
	"github.com/DOIDFoundation/chainrpc/method"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CallCmd sends one call, retrying transient failures, and prints the
// result.
var CallCmd = &cobra.Command{
	Use:   "call <method> [params-json]",
	Short: "Call a method and print its result",
	Example: `  chainrpc call getSlot
  chainrpc call getBalance '["83astBRguLMdt2h5U1Tpdq5tjFoJ6noeGwaY3mDLVcri"]'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[1:])
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

		result, err := client.Call[json.RawMessage](cmd.Context(), c, method.Raw{Name: args[0], Args: params})
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	},
}

func init() {
	CallCmd.Flags().String(flags.Metrics_Addr, "", "serve prometheus metrics on this address")
}

// parseParams returns the optional params argument as raw JSON.
func parseParams(args []string) (json.RawMessage, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil
	}
	if !json.Valid([]byte(args[0])) {
		return nil, fmt.Errorf("params are not valid JSON: %s", args[0])
	}
	return json.RawMessage(args[0]), nil
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	buf.WriteByte('\n')
	_, err := cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
