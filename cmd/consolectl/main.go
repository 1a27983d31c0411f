// Package main is the entry point for consolectl.
//
// consolectl drives the Odoo platform backend from a terminal: log in,
// browse templates and domains, deploy an instance through the same wizard
// the dashboard uses, and activate a subscription after a manual payment.
//
// For detailed usage information, run:
//
//	consolectl --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"odoodeploy.io/console/cmd/consolectl/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Ctrl-C aborts an in-flight deploy or activation.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
