package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	auditStore "gymtrack/internal/adapters/storage/audit"
	"gymtrack/internal/domain/audit"
)

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:   "audit",
		Usage:  "show recent staff actions",
		Action: runAudit,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "account, member or reminder",
			},
			&cli.StringFlag{
				Name:  "actor",
				Usage: "only events by this username",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "maximum events to show",
				Value: 20,
			},
		},
	}
}

func runAudit(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.audit.List(ctx, auditStore.Filter{
		Category: audit.Category(cmd.String("category")),
		Actor:    cmd.String("actor"),
		Limit:    int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tACTOR\tEVENT\tDETAILS")
	now := time.Now()
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\n", humanize.RelTime(e.Timestamp, now, "ago", "from now"), e.Actor, e.Category, e.Action, e.Description)
	}
	return tw.Flush()
}
