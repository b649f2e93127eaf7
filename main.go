// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/reqini/catalogo-indumentaria-sub000/cmd"
	"github.com/reqini/catalogo-indumentaria-sub000/internal/observability"
)

// main is the entry point for the guardian application. Long-running
// subcommands (schedule, serve) stop cleanly on SIGINT/SIGTERM through the
// cancelled context.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	cmd.ExecuteContext(ctx)
}
