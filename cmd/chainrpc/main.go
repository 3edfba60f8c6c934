package main

import (
	"os"
	"path/filepath"

	"github.com/DOIDFoundation/chainrpc/cmd/chainrpc/commands"

	"github.com/cometbft/cometbft/libs/cli"
)

func main() {
	cmd := cli.PrepareBaseCmd(commands.RootCmd, "CHAINRPC", os.ExpandEnv(filepath.Join("$HOME", ".chainrpc")))

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
