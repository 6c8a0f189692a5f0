package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"gymtrack/internal/application/orchestrators"
	"gymtrack/internal/domain/notification"
)

func remindCommand() *cli.Command {
	return &cli.Command{
		Name:   "remind",
		Usage:  "send renewal reminders to members whose membership is about to end",
		Action: runRemind,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "window",
				Usage: "days ahead to look (default: GYMTRACK_REMINDER_WINDOW_DAYS)",
				Value: -1,
			},
			&cli.StringFlag{
				Name:  "channels",
				Usage: "comma-separated channels (default: GYMTRACK_REMINDER_CHANNELS)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "show who would be reminded without sending",
			},
		},
	}
}

func runRemind(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	input := orchestrators.SendRemindersInput{
		WindowDays:  a.cfg.Reminder.WindowDays,
		Channels:    a.cfg.Channels(),
		DryRun:      cmd.Bool("dry-run"),
		TriggeredBy: cliActor,
	}
	if w := int(cmd.Int("window")); w >= 0 {
		input.WindowDays = w
	}
	if v := cmd.String("channels"); v != "" {
		ch, err := notification.ParseChannels(v)
		if err != nil {
			return err
		}
		input.Channels = ch
	}

	res, err := orchestrators.ExecuteSendReminders(ctx, input, a.reminderDeps())
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "%s: %d expiring within %d days\n", res.Today.Format("2006-01-02"), res.Considered, input.WindowDays)
	if len(res.Outcomes) > 0 {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MEMBER\tCHANNEL\tRECIPIENT\tDAYS\tSTATUS")
		for _, o := range res.Outcomes {
			status := o.Status
			if o.Error != "" {
				status += " (" + o.Error + ")"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", o.MemberName, o.Channel, o.Recipient, o.DaysLeft, status)
		}
		tw.Flush()
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "skipped %s: %s\n", s.Name, s.Reason)
	}
	if res.DryRun {
		fmt.Fprintln(out, "dry run: nothing was sent")
		return nil
	}
	fmt.Fprintf(out, "sent %d, failed %d, already sent %d, no contact %d\n", res.Sent, res.Failed, res.AlreadySent, res.NoContact)
	if res.Simulated > 0 {
		fmt.Fprintf(out, "simulated %d: no provider configured, nothing was delivered\n", res.Simulated)
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d reminders failed", res.Failed)
	}
	return nil
}
