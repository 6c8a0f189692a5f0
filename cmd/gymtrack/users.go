package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"gymtrack/internal/application/orchestrators"
	"gymtrack/internal/domain/account"
)

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "manage staff logins",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "create a staff login",
				ArgsUsage: "<username>",
				Action:    runUsersAdd,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "role",
						Usage: "admin or trainer",
						Value: account.RoleTrainer,
					},
					&cli.StringFlag{
						Name:    "password",
						Usage:   "initial password",
						Sources: cli.EnvVars("GYMTRACK_NEW_USER_PASSWORD"),
					},
				},
			},
		},
	}
}

func runUsersAdd(ctx context.Context, cmd *cli.Command) error {
	username := cmd.Args().First()
	if username == "" {
		return errors.New("usage: gymtrack users add <username> --role trainer")
	}
	password := cmd.String("password")
	if password == "" {
		return errors.New("a password is required: pass --password or set GYMTRACK_NEW_USER_PASSWORD")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := orchestrators.ExecuteCreateUser(ctx, orchestrators.CreateUserInput{
		Username:  username,
		Password:  password,
		Role:      cmd.String("role"),
		CreatedBy: cliActor,
	}, orchestrators.CreateUserDeps{AccountStore: a.accounts, Clock: a.clock, Audit: a.audit})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "created %s %s (%s)\n", cmd.String("role"), account.NormalizeUsername(username), id)
	return nil
}
