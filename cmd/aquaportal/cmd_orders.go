package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/checkout"
	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Customer orders: list, pay for and cancel",
}

var ordersView string

// aquaportal orders list: the user dashboard tables.
var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your orders (--view orders|history|all)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			board, err := boardFor[*dashboard.UserBoard](a, session.RoleUser)
			if err != nil {
				return err
			}
			return printOrders(cmd.OutOrStdout(), viewOrders(orders.UserViews, ordersView, board.Orders()), board.Loaded())
		})
	},
}

var checkoutForm checkout.Form

// aquaportal orders create: start a hosted payment for a new order.
var ordersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Order water; prints the payment page to open",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			if _, err := boardFor[*dashboard.UserBoard](a, session.RoleUser); err != nil {
				return err
			}
			who, _ := a.Session.Identity()

			url, err := a.Checkout.Start(ctx, who, checkoutForm)
			if err != nil {
				return errors.New(checkout.Message(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Complete the payment at:")
			fmt.Fprintln(cmd.OutOrStdout(), url)
			fmt.Fprintln(cmd.OutOrStdout(), "then run `aquaportal orders confirm <session_id>`.")
			return nil
		})
	},
}

// aquaportal orders confirm: the terminal twin of the payment return page.
var ordersConfirmCmd = &cobra.Command{
	Use:   "confirm <session_id>",
	Short: "Confirm a completed payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			board, err := boardFor[*dashboard.UserBoard](a, session.RoleUser)
			if err != nil {
				return err
			}
			if strings.TrimSpace(args[0]) == "" {
				return checkout.ErrMissingSession
			}

			fmt.Fprintln(cmd.OutOrStdout(), checkout.ReturnMessage)
			if _, err := a.Checkout.Return(ctx, args[0]); err != nil {
				return err
			}
			if err := board.Refresh(ctx); err != nil {
				return err
			}
			return printOrders(cmd.OutOrStdout(), board.Active(), board.Loaded())
		})
	},
}

// aquaportal orders cancel: cancel a pending order.
var ordersCancelCmd = &cobra.Command{
	Use:   "cancel <order_id>",
	Short: "Cancel one of your unpaid orders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			board, err := boardFor[*dashboard.UserBoard](a, session.RoleUser)
			if err != nil {
				return err
			}

			err = board.Cancel(ctx, args[0])
			switch {
			case errors.Is(err, orders.ErrNotCancellable), errors.Is(err, dashboard.ErrUnknownOrder):
				return errors.New("This order can no longer be cancelled.")
			}
			return err
		})
	},
}

func init() {
	ordersListCmd.Flags().StringVar(&ordersView, "view", "orders", "orders, history or all")

	ordersCreateCmd.Flags().IntVar(&checkoutForm.Quantity, "quantity", 0, "litres to order")
	ordersCreateCmd.Flags().StringVar(&checkoutForm.Address, "address", "", "delivery address")
	ordersCreateCmd.Flags().StringVar(&checkoutForm.DateTime, "at", "", "delivery date and time")

	ordersCmd.AddCommand(ordersListCmd, ordersCreateCmd, ordersConfirmCmd, ordersCancelCmd)
}
