package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/aquaportal/config"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

var (
	flagAPI     string
	flagEvents  string
	flagProfile string
)

var rootCmd = &cobra.Command{
	Use:   "aquaportal",
	Short: "Aquaportal, the water delivery portal client",
	Long: "Aquaportal talks to the water delivery backend on behalf of users, " +
		"suppliers and admins. Run `aquaportal serve` for the web UI or use the " +
		"subcommands directly from a terminal.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		if flagAPI != "" {
			config.Set("API_BASE_URL", flagAPI)
		}
		if flagEvents != "" {
			config.Set("EVENTS_URL", flagEvents)
		}
		if flagProfile != "" {
			config.Set("SESSION_PROFILE", flagProfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagAPI, "api", "", "backend REST root (overrides API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&flagEvents, "events", "", "backend push channel URL (overrides EVENTS_URL)")
	rootCmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "session profile for the redis driver (overrides SESSION_PROFILE)")

	// Session
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(passwordCmd)

	// Dashboards
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(supplierCmd)
	rootCmd.AddCommand(adminCmd)

	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(routesCmd)
}
