package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/aquaportal/pkg/notification"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

var sample = []orders.Order{
	{ID: "o1", Quantity: 10, Status: orders.StatusPaid, User: orders.Party{ID: "u1", Name: "Mira"}, PaymentStatus: "paid"},
	{ID: "o2", Quantity: 5, Status: orders.StatusDelivered, User: orders.Party{ID: "u1"}, Supplier: &orders.Party{ID: "s1", Name: "Ravi"}},
	{ID: "o3", Quantity: 7, Status: orders.StatusCancelled, User: orders.Party{ID: "u2"}},
}

func TestViewOrders(t *testing.T) {
	assert.Len(t, viewOrders(orders.UserViews, "all", sample), 3)
	assert.Equal(t, "o1", viewOrders(orders.UserViews, "orders", sample)[0].ID)
	assert.Len(t, viewOrders(orders.UserViews, "history", sample), 2)
	// Unknown keys fall back to the first view.
	assert.Len(t, viewOrders(orders.SupplierViews, "nope", sample), 1)
}

func TestPrintOrders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printOrders(&buf, sample[:2], true))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[2], "Mira")
	assert.Contains(t, lines[2], "Not assigned")
	assert.Contains(t, lines[3], "Ravi")
	assert.Contains(t, lines[3], "unpaid")

	buf.Reset()
	require.NoError(t, printOrders(&buf, nil, true))
	assert.Equal(t, "No orders.\n", buf.String())

	buf.Reset()
	require.NoError(t, printOrders(&buf, sample, false))
	assert.Equal(t, "Orders could not be loaded.\n", buf.String())
}

func TestPrintIdentities(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printIdentities(&buf, []session.Identity{
		{ID: "s1", Email: "ravi@example.com", Role: session.RoleSupplier},
	}))
	assert.Contains(t, buf.String(), "ravi@example.com")
	assert.Contains(t, buf.String(), "supplier")
}

func TestPrintNotice(t *testing.T) {
	var buf bytes.Buffer
	printNotice(&buf, notification.Notice{Level: notification.LevelError, Message: "Failed to mark as delivered"})
	assert.Equal(t, "[ERROR] Failed to mark as delivered\n", buf.String())
}
