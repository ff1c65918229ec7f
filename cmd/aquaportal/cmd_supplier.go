package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

var supplierCmd = &cobra.Command{
	Use:   "supplier",
	Short: "Supplier dashboard: incoming, active and delivered orders",
}

var supplierView string

var supplierOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders (--view incoming|active|delivered|all)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			board, err := boardFor[*dashboard.SupplierBoard](a, session.RoleSupplier)
			if err != nil {
				return err
			}
			return printOrders(cmd.OutOrStdout(), viewOrders(orders.SupplierViews, supplierView, board.Orders()), board.Loaded())
		})
	},
}

// supplierAction builds `aquaportal supplier <action> <order_id>`.
func supplierAction(action orders.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <order_id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
				board, err := boardFor[*dashboard.SupplierBoard](a, session.RoleSupplier)
				if err != nil {
					return err
				}

				id := args[0]
				switch action {
				case orders.ActionAccept:
					err = board.Accept(ctx, id)
				case orders.ActionReject:
					err = board.Reject(ctx, id)
				case orders.ActionDeliver:
					err = board.Deliver(ctx, id)
				default:
					return fmt.Errorf("unknown action %q", action)
				}
				if errors.Is(err, dashboard.ErrNotOffered) || errors.Is(err, dashboard.ErrUnknownOrder) {
					return errors.New("That action is not available for this order.")
				}
				return err
			})
		},
	}
}

func init() {
	supplierOrdersCmd.Flags().StringVar(&supplierView, "view", "incoming", "incoming, active, delivered or all")

	supplierCmd.AddCommand(
		supplierOrdersCmd,
		supplierAction(orders.ActionAccept, "Accept a paid order"),
		supplierAction(orders.ActionReject, "Reject a paid order"),
		supplierAction(orders.ActionDeliver, "Mark an accepted order delivered"),
	)
}
