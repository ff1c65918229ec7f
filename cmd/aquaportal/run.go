package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/notification"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

// errReported ends a command whose failure was already shown as a notice.
var errReported = errors.New("reported")

// withApp boots the portal for one command and prints every notice the
// command raised. events opens the push channel.
func withApp(cmd *cobra.Command, events bool, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Boot(ctx, events)
	if err != nil {
		return err
	}
	defer a.Close()

	before := map[string]bool{}
	for _, n := range a.Notices.Recent() {
		before[n.ID] = true
	}

	err = fn(ctx, a)

	reported := false
	for _, n := range a.Notices.Recent() {
		if before[n.ID] {
			continue
		}
		printNotice(cmd.OutOrStdout(), n)
		reported = reported || n.Level == notification.LevelError
	}
	if err != nil && reported {
		return errReported
	}
	return err
}

// boardFor returns the mounted board of type T, or an error telling the
// caller which role to log in as.
func boardFor[T dashboard.Board](a *app.App, role session.Role) (T, error) {
	b, ok := app.BoardAs[T](a)
	if !ok {
		return b, fmt.Errorf("not logged in as %s; run `aquaportal login --role %s`", role, role)
	}
	return b, nil
}

func printNotice(w io.Writer, n notification.Notice) {
	fmt.Fprintf(w, "[%s] %s\n", strings.ToUpper(string(n.Level)), n.Message)
}

// stdin is shared so consecutive prompts do not lose buffered input.
var stdin *bufio.Reader

// readSecret takes a secret from the flag value or, when empty, one line of
// stdin.
func readSecret(cmd *cobra.Command, value, prompt string) string {
	if value != "" {
		return value
	}
	if stdin == nil {
		stdin = bufio.NewReader(cmd.InOrStdin())
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt+": ")
	line, _ := stdin.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
}

func printOrders(w io.Writer, list []orders.Order, loaded bool) error {
	if !loaded {
		fmt.Fprintln(w, "Orders could not be loaded.")
		return nil
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No orders.")
		return nil
	}

	tw := table(w)
	fmt.Fprintln(tw, "ID\tQTY\tSTATUS\tPAYMENT\tCUSTOMER\tSUPPLIER\tADDRESS\tCREATED")
	fmt.Fprintln(tw, "--\t---\t------\t-------\t--------\t--------\t-------\t-------")
	for _, o := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.Quantity, o.Status, o.Payment(), o.User.Label(), o.Supplier.Label(),
			orDash(o.Address), when(o.CreatedAt))
	}
	return tw.Flush()
}

func printIdentities(w io.Writer, list []session.Identity) error {
	if len(list) == 0 {
		fmt.Fprintln(w, "No accounts.")
		return nil
	}

	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE")
	fmt.Fprintln(tw, "--\t----\t-----\t----")
	for _, id := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id.ID, orDash(id.Name), id.Email, id.Role)
	}
	return tw.Flush()
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// viewOrders filters list through the view named key. "all" skips filtering.
func viewOrders(views []orders.View, key string, list []orders.Order) []orders.Order {
	if key == "all" {
		return list
	}
	return orders.FindView(views, key).Filter(list)
}
