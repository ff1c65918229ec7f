package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/aquaportal/app/routes"
	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/event"
	"github.com/shashiranjanraj/aquaportal/pkg/rbac"
	"github.com/shashiranjanraj/aquaportal/pkg/router"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

func register(a *app.App) {
	a.Routes(func(r *router.Router) {
		routes.RegisterWeb(r, a)
		routes.RegisterAPI(r, a)
	})
}

// aquaportal serve: the web UI.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI on APP_HOST:APP_PORT (loopback by default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
			register(a)
			fmt.Fprintf(cmd.OutOrStdout(), "Aquaportal listening on http://%s\n", app.Addr())
			return a.Serve(ctx)
		})
	},
}

// aquaportal watch: stream push events and notices until interrupted or
// logged out.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream order events and notices for the logged-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, func(ctx context.Context, a *app.App) error {
			id, ok := a.Session.Identity()
			if !ok {
				return errors.New("not logged in; run `aquaportal login` first")
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			var mu sync.Mutex
			out := cmd.OutOrStdout()
			printf := func(format string, args ...any) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "%s  "+format+"\n", append([]any{time.Now().Format("15:04:05")}, args...)...)
			}

			offEvents := a.Bus.ListenAll(func(ev event.Event) {
				printf("event  %-16s %s", ev.Name, string(ev.Data))
			})
			defer offEvents()

			offSession := a.Session.OnChange(func(id *session.Identity) {
				if id == nil {
					cancel()
				}
			})
			defer offSession()

			notices, unsubscribe := a.Notices.Subscribe(16)
			defer unsubscribe()

			printf("watching as %s (%s); Ctrl-C to stop", id.Email, id.Role)
			for {
				select {
				case <-ctx.Done():
					if a.Session.Current() == nil {
						printf("session ended")
					}
					return nil
				case n, ok := <-notices:
					if !ok {
						return nil
					}
					printf("notice %-7s %s", n.Level, n.Message)
				}
			}
		})
	},
}

var routesHTTP bool

// aquaportal routes: the navigation table with the decision for the current
// identity, or the registered web routes with --http.
var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List navigation routes and where the current session may go",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			tw := table(cmd.OutOrStdout())

			if routesHTTP {
				register(a)
				fmt.Fprintln(tw, "METHOD\tPATH\tNAME")
				fmt.Fprintln(tw, "------\t----\t----")
				for _, e := range a.Router().Entries() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Method, e.Path, orDash(e.Name))
				}
				return tw.Flush()
			}

			current := a.Session.Current()
			fmt.Fprintln(tw, "PATH\tACCESS\tROLE\tDECISION")
			fmt.Fprintln(tw, "----\t------\t----\t--------")
			for _, rt := range rbac.Routes {
				d := rbac.Decide(current, rt.Pattern)
				decision := "allow"
				if !d.Allow {
					decision = "redirect " + d.Redirect
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", rt.Pattern, rt.Access, orDash(string(rt.Role)), decision)
			}
			return tw.Flush()
		})
	},
}

func init() {
	routesCmd.Flags().BoolVar(&routesHTTP, "http", false, "list the web UI's HTTP routes instead")
}
