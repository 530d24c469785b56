package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/ichi0g0y/keepsake/internal/env"
	"github.com/ichi0g0y/keepsake/internal/shared/logger"
	"github.com/ichi0g0y/keepsake/internal/version"
	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: keepsake [flags] <command> [args]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(flag.CommandLine.Output(), "  %s\n", commands[name].usage)
	}
	fmt.Fprintf(flag.CommandLine.Output(), "  version\n\nflags:\n")
	flag.PrintDefaults()
}

func main() {
	var opts options
	var envFile string
	flag.StringVar(&opts.catalogPath, "catalog", "", "content catalog YAML (default: embedded catalog)")
	flag.StringVar(&opts.viewerID, "viewer", "", "viewer identifier (default: stored or generated)")
	flag.StringVar(&envFile, "env", ".env", "env file to load")
	flag.Usage = usage
	flag.Parse()

	logger.Init(false)
	defer logger.Sync()

	env.LoadEnv(envFile)
	if env.Value.DebugMode {
		logger.Init(true)
		logger.Debug("Debug mode enabled")
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	if args[0] == "version" {
		// DBを開かずに表示する
		_ = writeJSON(os.Stdout, version.Get())
		return
	}
	logger.Debug("Starting keepsake", zap.String("version", version.String()))
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts)
	if err != nil {
		logger.Error("Failed to start", zap.Error(err))
		os.Exit(1)
	}

	err = cmd.run(ctx, a, args[1:], os.Stdin, os.Stdout)
	a.close()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "usage: keepsake %s\n", cmd.usage)
		os.Exit(2)
	case errors.Is(err, errRejected):
		os.Exit(1)
	default:
		logger.Error("Command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}
