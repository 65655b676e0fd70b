// clipstack: clipboard history manager.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clipstack",
		Short: "Clipboard history manager",
		Long: `clipstack records everything copied to the system clipboard and keeps
a deduplicated, most-recent-first history of text, rich text and images.

Run "clipstack daemon" to start observing the clipboard. The other commands
talk to the running daemon over a local socket, or over TCP with --server
and --token when the daemon was started with --listen.

Config file search order (first found wins):
  /etc/clipstack/clipstack.toml
  $HOME/.config/clipstack/clipstack.toml
  path supplied via --config

All flags can be set via CLIPSTACK_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newListCmd(),
		newShowCmd(),
		newCopyCmd(),
		newDeleteCmd(),
		newEditCmd(),
		newClearCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipstack %s\n", Version)
		},
	}
}
