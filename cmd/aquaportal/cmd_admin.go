package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/aquaportal/pkg/app"
	"github.com/shashiranjanraj/aquaportal/pkg/dashboard"
	"github.com/shashiranjanraj/aquaportal/pkg/orders"
	"github.com/shashiranjanraj/aquaportal/pkg/session"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Admin dashboard: accounts and order reports",
}

var adminRole string

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List accounts (--role user|supplier)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			board, err := boardFor[*dashboard.AdminBoard](a, session.RoleAdmin)
			if err != nil {
				return err
			}

			switch adminRole {
			case string(session.RoleUser):
				return printIdentities(cmd.OutOrStdout(), board.Users())
			case string(session.RoleSupplier):
				return printIdentities(cmd.OutOrStdout(), board.Suppliers())
			default:
				return fmt.Errorf("unknown role %q: want user or supplier", adminRole)
			}
		})
	},
}

var adminView string

var adminOrdersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List orders (--view completedOrders|cancelledOrders|all)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app.App) error {
			board, err := boardFor[*dashboard.AdminBoard](a, session.RoleAdmin)
			if err != nil {
				return err
			}
			return printOrders(cmd.OutOrStdout(), viewOrders(orders.AdminViews, adminView, board.Orders()), board.Loaded())
		})
	},
}

func init() {
	adminUsersCmd.Flags().StringVar(&adminRole, "role", string(session.RoleUser), "user or supplier")
	adminOrdersCmd.Flags().StringVar(&adminView, "view", "completedOrders", "completedOrders, cancelledOrders or all")

	adminCmd.AddCommand(adminUsersCmd, adminOrdersCmd)
}
