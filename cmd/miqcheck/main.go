// Package main is the entry point for the miqcheck CLI.
//
// miqcheck talks to the REST API of a ManageIQ appliance. It waits for
// resource attributes to reach a value, waits for automation requests to
// finish, and prints the entry point or the records of a collection. Poll
// outcomes can be pushed to a Prometheus Pushgateway.
//
// Commands: wait, requests wait, info, query, version, completion.
//
// For detailed usage information, run:
//
//	miqcheck --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/miqcheck/cmd/miqcheck/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	commands.SetVersionInfo(version, commit, date)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
