package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/aquaportal/config"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
	"github.com/shashiranjanraj/aquaportal/pkg/testkit"
)

// newPortal starts a fake backend and points the file session driver at a
// fresh temp file.
func newPortal(t *testing.T) *testkit.Portal {
	t.Helper()
	require.NoError(t, config.Load())
	config.Set("SESSION_DRIVER", "file")
	config.Set("SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))

	p := testkit.NewPortal(t)
	p.AddAccount(testkit.Account{
		Identity: session.Identity{ID: "u1", Name: "Mira", Email: "mira@example.com", Role: session.RoleUser},
		Password: "pw", Token: "tok-mira",
	})
	p.AddOrder(orders.Order{ID: "o8", Quantity: 10, Status: orders.StatusPending, User: orders.Party{ID: "u1", Name: "Mira"}})
	p.AddOrder(orders.Order{ID: "o9", Quantity: 20, Status: orders.StatusPaid, User: orders.Party{ID: "u1", Name: "Mira"}, PaymentStatus: "paid"})
	return p
}

// execute runs one CLI invocation against p and returns what it printed.
func execute(t *testing.T, p *testkit.Portal, args ...string) (string, error) {
	t.Helper()

	// Flag variables outlive a single Execute.
	flagAPI, flagEvents, flagProfile = "", "", ""
	loginEmail, loginPassword, loginRole = "", "", string(session.RoleUser)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--api", p.APIURL(), "--events", p.EventsURL()))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLoginRoleMismatch(t *testing.T) {
	p := newPortal(t)

	_, err := execute(t, p, "login", "--email", "mira@example.com", "--password", "pw", "--role", "supplier")
	require.Error(t, err)
	assert.Equal(t, "You are not authorized to login as supplier", err.Error())
	assert.Equal(t, 1, p.Calls("POST /auth/login"))

	out, err := execute(t, p, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}

func TestLoginThenCancel(t *testing.T) {
	p := newPortal(t)

	out, err := execute(t, p, "login", "--email", "mira@example.com", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "[SUCCESS] Welcome, Mira!")
	assert.Contains(t, out, "Dashboard: /user-dashboard")

	// Paid orders are refused locally, before any backend call.
	_, err = execute(t, p, "orders", "cancel", "o9")
	require.Error(t, err)
	assert.Equal(t, "This order can no longer be cancelled.", err.Error())
	assert.Zero(t, p.Calls("DELETE /orders/o9"))
	o, _ := p.Order("o9")
	assert.Equal(t, orders.StatusPaid, o.Status)

	out, err = execute(t, p, "orders", "cancel", "o8")
	require.NoError(t, err)
	assert.Contains(t, out, "Order cancelled successfully")
	o, _ = p.Order("o8")
	assert.Equal(t, orders.StatusCancelled, o.Status)
}

func TestCommandsNeedMatchingLogin(t *testing.T) {
	p := newPortal(t)

	_, err := execute(t, p, "supplier", "orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aquaportal login --role supplier")
}
