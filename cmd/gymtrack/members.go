package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"gymtrack/internal/application/orchestrators"
	"gymtrack/internal/application/projections"
	"gymtrack/internal/domain/membership"
)

func membersCommand() *cli.Command {
	return &cli.Command{
		Name:  "members",
		Usage: "list and import members",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "print members, optionally only those expiring soon",
				Action: runMembersList,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "filter by name or phone",
					},
					&cli.BoolFlag{
						Name:  "expiring",
						Usage: "only members whose membership ends within the window",
					},
					&cli.IntFlag{
						Name:  "window",
						Usage: "days ahead to look (default: GYMTRACK_REMINDER_WINDOW_DAYS)",
						Value: -1,
					},
				},
			},
			{
				Name:      "import",
				Usage:     "add members from a legacy .xlsx or .csv file",
				ArgsUsage: "<file>",
				Action:    runMembersImport,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "validate the file without saving",
					},
					&cli.StringFlag{
						Name:  "recorded-by",
						Usage: "username stored on imported rows that do not name one",
						Value: cliActor,
					},
				},
			},
		},
	}
}

func expiryText(days int, hasExpiry bool) string {
	if !hasExpiry {
		return "-"
	}
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days < 0:
		return humanize.Comma(int64(-days)) + " days ago"
	}
	return "in " + humanize.Comma(int64(days)) + " days"
}

func runMembersList(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	window := a.cfg.Reminder.WindowDays
	if w := int(cmd.Int("window")); w >= 0 {
		window = w
	}
	out := cmd.Root().Writer
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if cmd.Bool("expiring") {
		res, err := projections.QueryExpiringMembers(ctx, projections.ExpiringQuery{WindowDays: window}, projections.ExpiringDeps{
			MemberStore: a.members,
			Clock:       a.clock,
			Location:    a.cfg.Location(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "NAME\tPHONE\tPLAN\tEXPIRES\tWHEN")
		for _, m := range res.Members {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.Phone, m.Plan.Label(), membership.FormatDate(m.ExpiryDate), expiryText(m.DaysLeft, true))
		}
		tw.Flush()
		for _, s := range res.Skipped {
			fmt.Fprintf(out, "skipped %s: %s\n", s.Name, s.Reason)
		}
		return nil
	}

	res, err := projections.QueryMemberList(ctx, projections.MemberListQuery{Query: cmd.String("query"), WindowDays: window}, projections.MemberListDeps{
		MemberStore: a.members,
		Clock:       a.clock,
		Location:    a.cfg.Location(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "NAME\tPHONE\tPLAN\tEXPIRES\tSTATUS")
	for _, m := range res.Members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.Phone, m.Plan.Label(), expiryText(m.DaysLeft, m.HasExpiry), m.Status)
	}
	tw.Flush()
	fmt.Fprintf(out, "%d of %d members\n", len(res.Members), res.Total)
	return nil
}

func runMembersImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("usage: gymtrack members import <file>")
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := orchestrators.ExecuteImportMembers(ctx, orchestrators.ImportMembersInput{
		Path:       path,
		RecordedBy: cmd.String("recorded-by"),
		Actor:      cliActor,
		DryRun:     cmd.Bool("dry-run"),
	}, orchestrators.ImportMembersDeps{
		MemberStore: a.members,
		Calculator:  a.calc,
		Clock:       a.clock,
		Audit:       a.audit,
	})
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	for _, e := range res.Errors {
		fmt.Fprintf(out, "row %d (%s): %s\n", e.Row, e.Name, e.Message)
	}
	verb := "imported"
	if res.DryRun {
		verb = "would import"
	}
	fmt.Fprintf(out, "%s %d of %d rows, skipped %d\n", verb, res.Created, res.Total, res.Skipped)
	return nil
}
