// cmd/bookctl/main.go
//
// bookctl is the operator CLI for the trade site.
//
// Commands
// --------
//
//	submit   – fill a booking draft from flags and send it through the
//	           same coordinator the site uses
//	places   – query the site's address lookup proxy
//	log      – list recent or undelivered bookings from the submission log
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanizio/tradesite/internal/logger"
)

// globalOpts are the persistent flags shared by every subcommand.
type globalOpts struct {
	site    string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	g := &globalOpts{}
	root := &cobra.Command{
		Use:   "bookctl",
		Short: "Operate the trade site booking flow",
		Long: `bookctl talks to a running trade site.

Available subcommands:
  submit - Send a booking exactly as the web form would
  places - Query address suggestions
  log    - Inspect the submission log`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.site, "site", envOr("TRADE_SITE", "http://localhost:8080"), "site base URL")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 15*time.Second, "per-request timeout")

	root.AddCommand(newSubmitCmd(g), newPlacesCmd(g), newLogCmd())
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	logger.Console()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
