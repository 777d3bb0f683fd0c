// Command snapgen writes <machine>_snapshot.go accessors for the state
// machines declared in the given Go files or directories.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/librescoot/fsmsnap/internal/config"
	"github.com/librescoot/fsmsnap/internal/snapgen"
)

func main() {
	cfg, err := snapgen.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := snapgen.Run(ctx, cfg, os.Stdout, logger); err != nil {
		config.Exitf("snapgen: %v", err)
	}
}
