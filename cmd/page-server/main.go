package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "page-server",
		Short: "Server-rendered pages with signed sessions and fingerprinted assets",
		Long: `page-server serves a small server-rendered application.

It serves the client build with long-lived cache headers, keeps a signed
cookie session for every visitor and renders pages whose slow data is
streamed in after the first byte.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		serveCmd(),
		buildCmd(),
		secretCmd(),
		versionCmd(),
	)
	return root
}
