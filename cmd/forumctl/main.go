// AngelaMos | 2026
// main.go

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "path to client config file",
		EnvVars: []string{"FORUMCTL_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "email",
		Usage:   "account email to sign in with",
		EnvVars: []string{"FORUM_EMAIL"},
	},
	&cli.StringFlag{
		Name:    "password",
		Usage:   "account password",
		EnvVars: []string{"FORUM_PASSWORD"},
	},
}

func run(args []string) error {
	app := cli.App{
		Name:  "forumctl",
		Usage: "forum member and moderator command line",
		Flags: globalFlags,
	}
	app.Commands = []*cli.Command{
		cmdWhoami,
		cmdRegister,
		cmdOpen,
		cmdMakeMember,
		cmdRole,
		cmdPost,
		cmdVote,
		cmdReport,
	}
	return app.Run(args)
}
