package main

import (
	"fmt"
	"os"

	"portal/internal/app"
	"portal/internal/config"
	"portal/internal/database"
	"portal/internal/logger"
	"portal/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:          "portalctl",
	Short:        "Maintenance commands for the portal billing database",
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := open()
		return err
	},
}

var recomputeAll bool

var recomputeCmd = &cobra.Command{
	Use:   "recompute [invoice-id]",
	Short: "Reprice time entries and rewrite invoice totals",
	Args: func(cmd *cobra.Command, args []string) error {
		if recomputeAll && len(args) > 0 {
			return fmt.Errorf("--all takes no invoice id")
		}
		if !recomputeAll && len(args) != 1 {
			return fmt.Errorf("expected one invoice id or --all")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if recomputeAll {
			n, err := a.Invoices.RecomputeAll(ctx, service.System)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recomputed %d invoices\n", n)
			return nil
		}
		invoice, err := a.Invoices.Recompute(ctx, service.System, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Invoice %d: hours %s, amount %s, balance %s\n",
			invoice.InvoiceNumber, invoice.Hours, invoice.Amount, invoice.Balance)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report maintenance",
}

var reportBuildCmd = &cobra.Command{
	Use:   "build <report-id>",
	Short: "Rebuild a report from its invoices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open()
		if err != nil {
			return err
		}
		report, err := a.Reports.Build(cmd.Context(), service.System, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report %s: hours %s, amount %s, cost %s, net %s\n",
			report.Name, report.Hours, report.Amount, report.Cost, report.Net)
		return nil
	},
}

var createSuperuserCmd = &cobra.Command{
	Use:   "create-superuser <username> <password>",
	Short: "Create an active superuser account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open()
		if err != nil {
			return err
		}
		user, err := a.Users.CreateUser(cmd.Context(), service.System, service.CreateUserRequest{
			Username:    args[0],
			Password:    args[1],
			IsSuperuser: true,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created superuser %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

// open loads config, connects, migrates and builds the service graph.
func open() (*app.App, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	zl, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		return nil, err
	}
	db, err := database.NewConnection(cfg.DatabaseURI, zl)
	if err != nil {
		zl.Error("database connection failed", zap.Error(err))
		return nil, err
	}
	return app.New(cfg, db, zl), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "configs/.env", "path to the env file")
	recomputeCmd.Flags().BoolVar(&recomputeAll, "all", false, "recompute every invoice")

	reportCmd.AddCommand(reportBuildCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(createSuperuserCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
