// AngelaMos | 2026
// commands.go

package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/urfave/cli/v2"

	"github.com/carterperez-dev/templates/forum/internal/forum"
	"github.com/carterperez-dev/templates/forum/internal/guard"
)

var cmdWhoami = &cli.Command{
	Name:  "whoami",
	Usage: "show the signed-in principal with its role and tier",
	Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
		p := a.session.CurrentPrincipal()
		if p == nil {
			return forum.ErrUnauthenticated
		}

		rec, err := a.roles.Current(ctx)
		if err != nil {
			return err
		}

		return printJSON(map[string]any{
			"principal": p,
			"role":      rec,
		})
	}),
}

var cmdRegister = &cli.Command{
	Name:  "register",
	Usage: "create an account with --email and --password",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "display name", Required: true},
	},
	Action: func(cctx *cli.Context) error {
		a, err := newApp(cctx)
		if err != nil {
			return err
		}
		defer a.session.Close()

		email, password := cctx.String("email"), cctx.String("password")
		if email == "" || password == "" {
			return errors.New("register needs --email and --password")
		}

		p, err := a.source.SignUp(cctx.Context, email, password, cctx.String("name"))
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var cmdOpen = &cli.Command{
	Name:      "open",
	Usage:     "run the route guard for a view",
	ArgsUsage: "<view>",
	Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
		view := cctx.Args().First()
		route, ok := views[view]
		if !ok {
			route = guard.Route{Path: view}
		}

		d := a.guard.Evaluate(ctx, route)
		out := map[string]any{"state": d.State.String()}
		if d.Redirect != "" {
			out["redirect"] = d.Redirect
			out["afterSignIn"] = a.guard.NextFromSignIn(d.Redirect)
		}
		if d.Reason != nil {
			out["reason"] = d.Reason.Error()
		}
		return printJSON(out)
	}),
}

var cmdMakeMember = &cli.Command{
	Name:  "make-member",
	Usage: "upgrade the signed-in account to the elevated tier",
	Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
		if err := a.enter(ctx, "/membership"); err != nil {
			return err
		}

		var rec forum.RoleRecord
		if err := a.api.Patch(ctx, "/users/make-member", nil, &rec); err != nil {
			return err
		}
		a.roles.Invalidate(rec.PrincipalID)

		return printJSON(rec)
	}),
}

var cmdRole = &cli.Command{
	Name:  "role",
	Usage: "look up or change roles",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			Usage:     "show the role record for an email",
			ArgsUsage: "<email>",
			Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
				var rec forum.RoleRecord
				path := "/users/" + url.PathEscape(cctx.Args().First())
				if err := a.api.Get(ctx, path, &rec); err != nil {
					return err
				}
				return printJSON(rec)
			}),
		},
		{
			Name:      "set",
			Usage:     "promote or demote a user",
			ArgsUsage: "<user-id> <member|admin>",
			Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
				if err := a.enter(ctx, "/admin/users"); err != nil {
					return err
				}

				userID, role := cctx.Args().Get(0), cctx.Args().Get(1)
				if !forum.ValidRole(role) {
					return fmt.Errorf("role %q: %w", role, forum.ErrInvalidInput)
				}

				var updated map[string]any
				body := map[string]string{"role": role}
				if err := a.api.Patch(ctx, "/users/role/"+url.PathEscape(userID), body, &updated); err != nil {
					return err
				}
				a.roles.Invalidate(userID)

				return printJSON(updated)
			}),
		},
	},
}

var cmdPost = &cli.Command{
	Name:  "post",
	Usage: "create posts and check the post quota",
	Subcommands: []*cli.Command{
		{
			Name:  "create",
			Usage: "create a post",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "title", Required: true},
				&cli.StringFlag{Name: "body", Required: true},
				&cli.StringSliceFlag{Name: "tag"},
			},
			Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
				if err := a.enter(ctx, "/posts/new"); err != nil {
					return err
				}
				if err := a.quota.Check(ctx, a.session.CurrentPrincipal()); err != nil {
					return err
				}

				tags := cctx.StringSlice("tag")
				if tags == nil {
					tags = []string{}
				}

				var post forum.Post
				body := map[string]any{
					"title": cctx.String("title"),
					"body":  cctx.String("body"),
					"tags":  tags,
				}
				if err := a.api.Post(ctx, "/posts", body, &post); err != nil {
					return err
				}
				return printJSON(post)
			}),
		},
		{
			Name:  "quota",
			Usage: "show whether another post is allowed",
			Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
				ok, err := a.quota.CanPost(ctx, a.session.CurrentPrincipal())
				if err != nil {
					return err
				}
				return printJSON(map[string]any{
					"canPost": ok,
					"limit":   a.quota.Limit(),
				})
			}),
		},
	},
}

var cmdVote = &cli.Command{
	Name:      "vote",
	Usage:     "toggle an up or down vote on a post",
	ArgsUsage: "<post-id> <up|down>",
	Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
		dir, err := forum.ParseDirection(cctx.Args().Get(1))
		if err != nil {
			return err
		}

		post, err := a.voting.Vote(ctx, cctx.Args().Get(0), dir)
		if err != nil {
			return err
		}
		return printJSON(post)
	}),
}

var cmdReport = &cli.Command{
	Name:  "report",
	Usage: "file and moderate reports",
	Subcommands: []*cli.Command{
		{
			Name:      "file",
			Usage:     "report a post or comment",
			ArgsUsage: "<post|comment> <target-id> <reason>",
			Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
				args := cctx.Args()
				rep, err := a.moderation.FileReport(ctx, args.Get(0), args.Get(1), args.Get(2))
				if err != nil {
					return err
				}
				return printJSON(rep)
			}),
		},
		{
			Name:  "list",
			Usage: "list reports for review",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "type", Usage: "post or comment"},
				&cli.StringFlag{Name: "status", Usage: "open, actioned or dismissed", Value: forum.ReportOpen},
			},
			Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
				if err := a.enter(ctx, "/admin/reports"); err != nil {
					return err
				}
				reports, err := a.moderation.List(ctx, cctx.String("type"), cctx.String("status"))
				if err != nil {
					return err
				}
				return printJSON(reports)
			}),
		},
		{
			Name:      "action",
			Usage:     "delete the reported content and close the report",
			ArgsUsage: "<report-id>",
			Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
				if err := a.enter(ctx, "/admin/reports"); err != nil {
					return err
				}
				return a.moderation.TakeAction(ctx, cctx.Args().First())
			}),
		},
		{
			Name:      "dismiss",
			Usage:     "close the report and keep the content",
			ArgsUsage: "<report-id>",
			Action: withApp(func(ctx context.Context, a *app, cctx *cli.Context) error {
				if err := a.enter(ctx, "/admin/reports"); err != nil {
					return err
				}
				return a.moderation.Dismiss(ctx, cctx.Args().First())
			}),
		},
	},
}
