package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗┌─┐┌┬┐┌─┐┬ ┬┌─┐┬ ┬┌─┐┌─┐
  ║ ╦├─┤ │ ├┤ ├─┤│ ││ │└─┐├┤
  ╚═╝┴ ┴ ┴ └─┘┴ ┴└─┘└─┘└─┘└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "gatehouse",
		Short: "Embeddable web server with gated areas and a WebSocket bridge",
		Long: `Gatehouse serves a static file tree through a rewrite and caching
pipeline, protects configured subtrees behind session cookies, and
bridges WebSocket clients to an application goroutine over a pair of
bounded event queues.

Features:

  • URI aliases, redirects and per-subtree document roots
  • Accept-Language file localization
  • Cache-busting and server-side include expansion
  • Session-gated areas backed by SQLite
  • WebSocket sessions with per-connection packet queues
  • HTTP uploads and app-driven downloads tied to live sessions`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the Gatehouse ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}
