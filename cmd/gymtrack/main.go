package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// cliActor is the audit actor for changes made from the command line.
const cliActor = "cli"

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "gymtrack",
		Usage:   "gym membership tracker",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			remindCommand(),
			membersCommand(),
			usersCommand(),
			auditCommand(),
		},
		Action: runServe,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		slog.Error("command_failed", "error", err.Error())
		stop()
		os.Exit(1)
	}
}
