package commands

import (
	"io"
	"net/http"
	"os"

	"github.com/DOIDFoundation/chainrpc/client"
	"github.com/DOIDFoundation/chainrpc/config"
	"github.com/DOIDFoundation/chainrpc/flags"
	"github.com/cometbft/cometbft/libs/cli"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	"github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger  = log.NewTMLogger(log.NewSyncWriter(os.Stdout))
	verbose bool
)

// RootCmd is the root command for chainrpc. It is called once in the main
// function.
var RootCmd = &cobra.Command{
	Use:   "chainrpc",
	Short: "JSON-RPC client for HTTP calls and websocket subscriptions",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		viper.AddConfigPath(".")
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		var out io.Writer = os.Stderr
		if file := viper.GetString(flags.Log_File); file != "" {
			out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
				Filename:   file,
				MaxSize:    100, // megabytes
				MaxBackups: 3,
				Compress:   true,
			})
		}
		logger = log.NewTMLogger(log.NewSyncWriter(out))
		if viper.GetBool(flags.Trace) {
			logger = log.NewTracingLogger(logger)
		}

		logger, err = cmtflags.ParseLogLevel(viper.GetString(flags.Log_Level), logger.With("module", "main"), cmd.Flag(flags.Log_Level).DefValue)
		return err
	},
}

func init() {
	config.SetDefaults(viper.GetViper())

	pf := RootCmd.PersistentFlags()
	pf.String(flags.Log_Level, "info", "level of logging, can be debug, info, error, none or comma-separated list of module:level pairs with an optional *:level pair (* means all other modules). e.g. 'pubsub:debug,*:error'")
	pf.String(flags.Log_File, "", "also write logs to this file, rotated")
	pf.String(flags.RPC_URL, config.DefaultConfig.RPC.URL, "HTTP endpoint of the node")
	pf.Duration(flags.RPC_Timeout, config.DefaultConfig.RPC.Timeout, "timeout of one HTTP request")
	pf.Int(flags.RPC_RateLimit, config.DefaultConfig.RPC.RateLimit, "maximum requests per second, 0 for no limit")
	pf.Int(flags.Retry_Attempts, config.DefaultConfig.Retry.MaxAttempts, "attempts per call, the first one included")
	pf.Duration(flags.Retry_Delay, config.DefaultConfig.Retry.Delay, "delay between two attempts")
	pf.String(flags.WS_URL, "", "websocket endpoint, derived from --rpc.url when empty")

	RootCmd.AddCommand(
		CallCmd,
		SubscribeCmd,
		EndpointCmd,
		MockNodeCmd,
		VersionCmd,
		cli.NewCompletionCmd(RootCmd, true),
	)
}

func newClient() (*client.Client, error) {
	c, err := config.Load()
	if err != nil {
		return nil, err
	}
	cl, err := client.New(c, logger)
	if err != nil {
		return nil, err
	}
	return cl, cl.Start()
}

// serveMetrics exposes the default prometheus registry on addr until the
// process exits.
func serveMetrics(addr string) {
	srv := &http.Server{
		Addr: addr,
		Handler: promhttp.InstrumentMetricHandler(
			prometheus.DefaultRegisterer, promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{MaxRequestsInFlight: 10},
			),
		),
	}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server", "err", err)
		}
	}()
}
