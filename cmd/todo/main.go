package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/idilsaglam/tada-sync/internal/cli"
	"github.com/idilsaglam/tada-sync/internal/config"
	"github.com/idilsaglam/tada-sync/internal/logging"
	"github.com/idilsaglam/tada-sync/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	cfg, args, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		ui.Fail("config: " + err.Error())
		os.Exit(2)
	}
	ui.SetTheme(cfg.Theme)

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Prefix: "tada",
	})
	if err != nil {
		ui.Fail("log: " + err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Hand the remaining args to the CLI runner.
	code := cli.Run(ctx, args, cli.Options{
		Config: cfg,
		Logger: logger,
	})
	stop()
	_ = closeLog()
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}
