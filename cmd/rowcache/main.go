package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/unkn0wn-root/rowcache/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(version).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
